package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

var testSalon = Salon{Name: "YM Coiffure", Address: "58 rue Abbé Prévost, Clermont-Ferrand"}

func TestVerificationMessage_ContainsCode(t *testing.T) {
	msg := verificationMessage(testSalon, "4821")
	assert.Contains(t, msg.subject, "YM Coiffure")
	assert.Contains(t, msg.text, "4821")
	assert.Contains(t, msg.html, "4821")
}

func TestConfirmationMessage_EscapesClientName(t *testing.T) {
	a := &domain.Appointment{ClientName: "<b>Eve</b>", Date: "2026-11-02", Time: "10:30"}
	msg := confirmationMessage(testSalon, a, "https://salon.test/cancel?token=abc")

	assert.NotContains(t, msg.html, "<b>Eve</b>")
	assert.Contains(t, msg.html, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.Contains(t, msg.text, "https://salon.test/cancel?token=abc")
}

func TestConfirmationMessage_OmitsCancelLinkWhenEmpty(t *testing.T) {
	a := &domain.Appointment{ClientName: "Eve", Date: "2026-11-02", Time: "10:30"}
	msg := confirmationMessage(testSalon, a, "")
	assert.NotContains(t, msg.html, "Annuler")
	assert.NotContains(t, msg.text, "annuler")
}

func TestReminderMessage_HasDateTimeAndAddress(t *testing.T) {
	a := &domain.Appointment{ClientName: "Eve", Date: "2026-11-02", Time: "10:30"}
	msg := reminderMessage(testSalon, a)
	assert.Contains(t, msg.text, "2026-11-02")
	assert.Contains(t, msg.text, "10:30")
	assert.Contains(t, msg.html, "Clermont-Ferrand")
}

func TestBuildMIME_HasBothParts(t *testing.T) {
	body := string(buildMIME("from@salon.test", "to@client.test", verificationMessage(testSalon, "1234")))
	assert.Contains(t, body, "To: to@client.test\r\n")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "text/html")
	assert.True(t, strings.HasSuffix(body, "--salon-alt-boundary--\r\n"))
}

func TestMailerSend_NotConfigured(t *testing.T) {
	m := NewMailerSend("", "YM", "", testSalon)
	err := m.SendVerificationCode(context.Background(), "a@b.co", "A", "1234")
	require.Error(t, err)
}

func TestDevMailer_NeverFails(t *testing.T) {
	d := NewDevMailer(testSalon)
	a := &domain.Appointment{Email: "a@b.co", ClientName: "A", Date: "2026-11-02", Time: "10:30"}
	ctx := context.Background()

	require.NoError(t, d.SendVerificationCode(ctx, "a@b.co", "A", "1234"))
	require.NoError(t, d.SendConfirmation(ctx, a, ""))
	require.NoError(t, d.SendReminder(ctx, a))
}

func TestSMTPMailer_RejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPMailer("localhost", 1025, "from@salon.test", "", "", false, testSalon)
	err := s.SendVerificationCode(context.Background(), "  ", "A", "1234")
	require.Error(t, err)
}
