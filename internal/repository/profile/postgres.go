package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"luminix/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const profileColumns = `id::text, email, first_name, last_name, phone_number, display_name, created_at, updated_at`

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return r.scanProfile("get", r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) Insert(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	q := `
INSERT INTO profiles (id, email, first_name, last_name, phone_number, display_name)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + profileColumns
	return r.scanProfile("insert", r.pool.QueryRow(ctx, q,
		p.ID, strings.ToLower(p.Email), p.FirstName, p.LastName, p.PhoneNumber, p.DisplayName))
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	q := `
INSERT INTO profiles (id, email, first_name, last_name, phone_number, display_name)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET email = EXCLUDED.email,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    phone_number = EXCLUDED.phone_number,
    display_name = EXCLUDED.display_name,
    updated_at = now()
RETURNING ` + profileColumns
	return r.scanProfile("upsert", r.pool.QueryRow(ctx, q,
		p.ID, strings.ToLower(p.Email), p.FirstName, p.LastName, p.PhoneNumber, p.DisplayName))
}

func (r *postgresRepo) Update(ctx context.Context, id string, ch Changes) (*domain.Profile, error) {
	q := `
UPDATE profiles
SET first_name = COALESCE($2, first_name),
    last_name = COALESCE($3, last_name),
    phone_number = COALESCE($4, phone_number),
    display_name = COALESCE($5, display_name),
    updated_at = now()
WHERE id = $1
RETURNING ` + profileColumns
	return r.scanProfile("update", r.pool.QueryRow(ctx, q, id, ch.FirstName, ch.LastName, ch.PhoneNumber, ch.DisplayName))
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("profile repo: delete id=%s err=%v", id, err)
		return fmt.Errorf("%w: delete profile: %w", domain.ErrPersistence, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanProfile(op string, row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.PhoneNumber,
		&p.DisplayName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("profile repo: %s error=%v", op, err)
		return nil, fmt.Errorf("%w: %s profile: %w", domain.ErrPersistence, op, err)
	}
	return &p, nil
}
