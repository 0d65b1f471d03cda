package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type AppointmentRepository interface {
	// Create assigns the ID and returns domain.ErrSlotTaken when the
	// (date, time) pair is already booked.
	Create(ctx context.Context, a *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	FindActiveByEmail(ctx context.Context, email, fromDate string) ([]domain.Appointment, error)
	ExistsAtSlot(ctx context.Context, date, hhmm string) (bool, error)
	ListTimesByDate(ctx context.Context, date string) ([]string, error)
	ListAll(ctx context.Context) ([]domain.Appointment, error)
	ListReminderCandidates(ctx context.Context, date string) ([]domain.Appointment, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentCols = `id, date, time, client_name, phone, email,
calendar_event_id, reminder_sent, origin_ip, created_at`

const uniqueViolation = "23505"

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(
		&a.ID, &a.Date, &a.Time, &a.ClientName, &a.Phone, &a.Email,
		&a.CalendarEventID, &a.ReminderSent, &a.OriginIP, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) list(ctx context.Context, q string, args ...any) ([]domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := []domain.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *a)
	}
	return appointments, rows.Err()
}

func (r *appointmentRepository) Create(ctx context.Context, a *domain.Appointment) error {
	const q = `INSERT INTO appointments (
		id, date, time, client_name, phone, email,
		calendar_event_id, reminder_sent, origin_ip, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,false,$8,$9)`

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.ReminderSent = false

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		a.ID, a.Date, a.Time, a.ClientName, a.Phone, a.Email,
		a.CalendarEventID, a.OriginIP, a.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrSlotTaken
	}
	return err
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *appointmentRepository) FindActiveByEmail(ctx context.Context, email, fromDate string) ([]domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments
		WHERE email=$1 AND date >= $2
		ORDER BY date ASC, time ASC`
	return r.list(ctx, q, email, fromDate)
}

func (r *appointmentRepository) ExistsAtSlot(ctx context.Context, date, hhmm string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM appointments WHERE date=$1 AND time=$2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, date, hhmm).Scan(&exists)
	return exists, err
}

func (r *appointmentRepository) ListTimesByDate(ctx context.Context, date string) ([]string, error) {
	const q = `SELECT time FROM appointments WHERE date=$1 ORDER BY time ASC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if times == nil {
		times = []string{}
	}
	return times, nil
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments ORDER BY date DESC, time DESC`
	return r.list(ctx, q)
}

func (r *appointmentRepository) ListReminderCandidates(ctx context.Context, date string) ([]domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments
		WHERE date=$1 AND reminder_sent=false
		ORDER BY time ASC`
	return r.list(ctx, q, date)
}

// MarkReminderSent flips the flag once; false means another tick got there first.
func (r *appointmentRepository) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE appointments SET reminder_sent=true WHERE id=$1 AND reminder_sent=false`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	const q = `DELETE FROM appointments WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteBefore removes every appointment dated strictly before date in a
// single statement, so a concurrent purge sees all or nothing.
func (r *appointmentRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	const q = `DELETE FROM appointments WHERE date < $1`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, date)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
