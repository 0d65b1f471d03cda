package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type SMTPMailer struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	UseTLS bool
	salon  Salon
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool, salon Salon) *SMTPMailer {
	return &SMTPMailer{
		Host:   strings.TrimSpace(host),
		Port:   port,
		From:   strings.TrimSpace(from),
		User:   strings.TrimSpace(user),
		Pass:   strings.TrimSpace(pass),
		UseTLS: useTLS,
		salon:  salon,
	}
}

func (s *SMTPMailer) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	return s.send(ctx, toEmail, verificationMessage(s.salon, code))
}

func (s *SMTPMailer) SendConfirmation(ctx context.Context, a *domain.Appointment, cancelURL string) error {
	return s.send(ctx, a.Email, confirmationMessage(s.salon, a, cancelURL))
}

func (s *SMTPMailer) SendReminder(ctx context.Context, a *domain.Appointment) error {
	return s.send(ctx, a.Email, reminderMessage(s.salon, a))
}

func (s *SMTPMailer) send(ctx context.Context, toEmail string, msg message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return errors.New("empty recipient email")
	}

	body := buildMIME(s.From, toEmail, msg)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Mailpit and friends: no auth, no TLS.
	if !s.UseTLS && s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{toEmail}, body)
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	// STARTTLS when the server offers it.
	err := smtp.SendMail(addr, auth, s.From, []string{toEmail}, body)
	if err == nil || !s.UseTLS {
		return err
	}

	// Implicit TLS, port 465.
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(s.From); err != nil {
		return err
	}
	if err := c.Rcpt(toEmail); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

func buildMIME(from, to string, msg message) []byte {
	var buf bytes.Buffer
	boundary := "salon-alt-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", msg.text)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", msg.html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}
