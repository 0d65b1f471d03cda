package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ymcoiffure/salon-bookings/internal/calendar"
	"github.com/ymcoiffure/salon-bookings/internal/domain"
	"github.com/ymcoiffure/salon-bookings/internal/mailer"
	"github.com/ymcoiffure/salon-bookings/internal/migrate"
	"github.com/ymcoiffure/salon-bookings/internal/ratelimit"
	"github.com/ymcoiffure/salon-bookings/internal/repository"
	"github.com/ymcoiffure/salon-bookings/internal/scheduler"
	"github.com/ymcoiffure/salon-bookings/internal/service"
	"github.com/ymcoiffure/salon-bookings/pkg/config"
	"github.com/ymcoiffure/salon-bookings/pkg/database"
	"github.com/ymcoiffure/salon-bookings/pkg/events"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

// app holds everything a subcommand may need. Close releases it in reverse
// order of acquisition.
type app struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	bus   events.Publisher
	redis *redis.Client
	deps  service.Deps
}

type appOptions struct {
	migrate  bool
	calendar bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL")))

	clock, err := domain.LoadSalonClock(cfg.Salon.Timezone)
	if err != nil {
		return nil, err
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &app{cfg: cfg, pool: pool}

	if opts.migrate {
		if err := migrate.Up(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.bus = newPublisher(cfg.NATS)

	cal := calendar.Service(calendar.NewDevCalendar())
	if opts.calendar {
		if cal, err = newCalendar(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.deps = service.Deps{
		Appointments:  repository.NewAppointmentRepository(pool),
		Verifications: repository.NewVerificationRepository(pool),
		Settings:      repository.NewSettingsRepository(pool),
		Blacklist:     repository.NewBlacklistRepository(pool),
		Mailer:        newMailer(cfg),
		Calendar:      cal,
		Events:        a.bus,
		Clock:         clock,
	}
	return a, nil
}

func (a *app) scheduler() *scheduler.Scheduler {
	return scheduler.New(
		a.deps.Appointments,
		a.deps.Verifications,
		a.deps.Mailer,
		a.deps.Events,
		a.deps.Clock,
		a.cfg.Maintenance,
	)
}

// limiters returns the per-IP request limiter and the per-email confirm
// attempt limiter. Both prefer Redis so several instances share one budget,
// and fall back to a per-process window when Redis is not configured.
func (a *app) limiters(ctx context.Context) (requests, attempts ratelimit.Limiter, err error) {
	rl := a.cfg.RateLimit
	maxAttempts, ttl := a.cfg.Booking.MaxConfirmAttempts, a.cfg.Booking.VerificationTTL
	if a.cfg.Redis.URL == "" {
		logger.Warn("REDIS_URL not set, using in-memory rate limiting")
		return ratelimit.NewMemoryLimiter(rl.Requests, rl.Window), ratelimit.NewMemoryLimiter(maxAttempts, ttl), nil
	}
	client, err := ratelimit.NewRedisClient(ctx, a.cfg.Redis.URL, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	a.redis = client
	return ratelimit.NewRedisLimiter(client, rl.Requests, rl.Window), ratelimit.NewRedisLimiter(client, maxAttempts, ttl), nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			logger.Warn("Failed to drain event bus", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func newPublisher(cfg config.NATSConfig) events.Publisher {
	if cfg.URL == "" {
		return events.NoopPublisher{}
	}
	bus, err := events.NewNATSEventBus(cfg.URL)
	if err != nil {
		// events are informational; bookings keep working without them
		logger.Error("Failed to connect to NATS, events disabled", "error", err)
		return events.NoopPublisher{}
	}
	return bus
}

func newMailer(cfg *config.Config) mailer.Service {
	salon := mailer.Salon{Name: cfg.Salon.Name, Address: cfg.Salon.Address}
	e := cfg.Email
	switch {
	case e.DevMode:
		logger.Info("Using development mailer, emails will be logged")
		return mailer.NewDevMailer(salon)
	case e.MailerSendKey != "":
		logger.Info("Using MailerSend mailer")
		return mailer.NewMailerSend(e.MailerSendKey, e.FromName, e.From, salon)
	default:
		logger.Info("Using SMTP mailer", "host", e.SMTPHost, "port", e.SMTPPort)
		return mailer.NewSMTPMailer(e.SMTPHost, e.SMTPPort, e.From, e.SMTPUser, e.SMTPPass, e.SMTPUseTLS, salon)
	}
}

var errCalendarCredentials = errors.New("GOOGLE_CALENDAR_ID is set but no Google credentials were given")

func newCalendar(ctx context.Context, cfg *config.Config) (calendar.Service, error) {
	c := cfg.Calendar
	if c.CalendarID == "" {
		logger.Info("GOOGLE_CALENDAR_ID not set, using development calendar")
		return calendar.NewDevCalendar(), nil
	}
	if c.CredentialsJSON == "" && c.CredentialsFile == "" {
		return nil, errCalendarCredentials
	}
	cal, err := calendar.NewGoogleCalendar(ctx, c.CalendarID, cfg.Salon.Timezone, c.CredentialsJSON, c.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	return cal, nil
}
