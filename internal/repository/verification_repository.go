package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type VerificationRepository interface {
	// Upsert replaces any pending verification for the same email.
	Upsert(ctx context.Context, p *domain.PendingVerification) error
	Get(ctx context.Context, email string) (*domain.PendingVerification, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) VerificationRepository {
	return &verificationRepository{pool: pool}
}

func (r *verificationRepository) Upsert(ctx context.Context, p *domain.PendingVerification) error {
	const q = `
		INSERT INTO pending_verifications
			(email, code_hash, client_name, date, time, phone, origin_ip, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (email) DO UPDATE SET
			code_hash   = EXCLUDED.code_hash,
			client_name = EXCLUDED.client_name,
			date        = EXCLUDED.date,
			time        = EXCLUDED.time,
			phone       = EXCLUDED.phone,
			origin_ip   = EXCLUDED.origin_ip,
			expires_at  = EXCLUDED.expires_at,
			created_at  = EXCLUDED.created_at
	`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		p.Email, p.CodeHash, p.ClientName, p.Date, p.Time, p.Phone,
		p.OriginIP, p.ExpiresAt, p.CreatedAt,
	)
	return err
}

func (r *verificationRepository) Get(ctx context.Context, email string) (*domain.PendingVerification, error) {
	const q = `
		SELECT email, code_hash, client_name, date, time, phone, origin_ip, expires_at, created_at
		FROM pending_verifications
		WHERE email=$1
	`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.PendingVerification
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&p.Email, &p.CodeHash, &p.ClientName, &p.Date, &p.Time, &p.Phone,
		&p.OriginIP, &p.ExpiresAt, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *verificationRepository) Delete(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_verifications WHERE email=$1`, email)
	return err
}

func (r *verificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM pending_verifications WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
