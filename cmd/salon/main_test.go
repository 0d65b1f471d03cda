package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymcoiffure/salon-bookings/pkg/config"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "purge", "remind", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "salon dev")
}

func TestNewCalendar_FallsBackToDev(t *testing.T) {
	cfg := &config.Config{Salon: config.SalonConfig{Timezone: "Europe/Paris"}}
	cal, err := newCalendar(testContext(t), cfg)
	require.NoError(t, err)
	assert.NotNil(t, cal)
}

func TestNewCalendar_RequiresCredentials(t *testing.T) {
	cfg := &config.Config{
		Salon:    config.SalonConfig{Timezone: "Europe/Paris"},
		Calendar: config.CalendarConfig{CalendarID: "salon@group.calendar.google.com"},
	}
	_, err := newCalendar(testContext(t), cfg)
	assert.ErrorIs(t, err, errCalendarCredentials)
}

func TestNewPublisher_NoopWithoutURL(t *testing.T) {
	bus := newPublisher(config.NATSConfig{})
	assert.NoError(t, bus.Publish(testContext(t), "salon.test", map[string]string{}))
	assert.NoError(t, bus.Close())
}

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled
// when the test's cleanup runs.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
