package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type SettingsRepository interface {
	// GetStatus returns nil when the salon status was never set.
	GetStatus(ctx context.Context) (*domain.SalonStatus, error)
	SetOpen(ctx context.Context, open bool) (*domain.SalonStatus, error)
}

type BlacklistRepository interface {
	Contains(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]domain.BlacklistEntry, error)
	Add(ctx context.Context, entry *domain.BlacklistEntry) error
	Remove(ctx context.Context, email string) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) GetStatus(ctx context.Context) (*domain.SalonStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.SalonStatus
	err := r.pool.QueryRow(ctx, `SELECT is_open, updated_at FROM salon_settings WHERE id=1`).Scan(&s.IsOpen, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) SetOpen(ctx context.Context, open bool) (*domain.SalonStatus, error) {
	const q = `
		INSERT INTO salon_settings (id, is_open, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET is_open=EXCLUDED.is_open, updated_at=now()
		RETURNING is_open, updated_at
	`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.SalonStatus
	if err := r.pool.QueryRow(ctx, q, open).Scan(&s.IsOpen, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

type blacklistRepository struct {
	pool *pgxpool.Pool
}

func NewBlacklistRepository(pool *pgxpool.Pool) BlacklistRepository {
	return &blacklistRepository{pool: pool}
}

func (r *blacklistRepository) Contains(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM blacklist WHERE email=$1)`, email).Scan(&exists)
	return exists, err
}

func (r *blacklistRepository) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT email, reason, created_at FROM blacklist ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.BlacklistEntry{}
	for rows.Next() {
		var e domain.BlacklistEntry
		if err := rows.Scan(&e.Email, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *blacklistRepository) Add(ctx context.Context, entry *domain.BlacklistEntry) error {
	const q = `
		INSERT INTO blacklist (email, reason) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET reason=EXCLUDED.reason
		RETURNING created_at
	`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.pool.QueryRow(ctx, q, entry.Email, entry.Reason).Scan(&entry.CreatedAt)
}

func (r *blacklistRepository) Remove(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, `DELETE FROM blacklist WHERE email=$1`, email)
	return err
}
