package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"luminix/internal/domain"
)

// PostgresStore keeps codes in the verification_codes table so every API instance sees them.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, opts: buildOptions(opts)}
}

func (s *PostgresStore) Issue(ctx context.Context, email string, names Names) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	const q = `
INSERT INTO verification_codes (email, code, first_name, last_name, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE
SET code = EXCLUDED.code,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    expires_at = EXCLUDED.expires_at,
    created_at = now()
`
	expiresAt := s.opts.now().Add(s.opts.ttl)
	if _, err := s.pool.Exec(ctx, q, domain.NormalizeEmail(email), code, names.FirstName, names.LastName, expiresAt); err != nil {
		return "", fmt.Errorf("%w: issue code: %w", domain.ErrPersistence, err)
	}
	return code, nil
}

func (s *PostgresStore) Consume(ctx context.Context, email, code string) (Names, error) {
	key := domain.NormalizeEmail(email)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Names{}, fmt.Errorf("%w: begin: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	var (
		rec   record
		found = true
	)
	err = tx.QueryRow(ctx, `
SELECT code, first_name, last_name, expires_at
FROM verification_codes
WHERE email = $1
FOR UPDATE
`, key).Scan(&rec.code, &rec.names.FirstName, &rec.names.LastName, &rec.expiresAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Names{}, fmt.Errorf("%w: load code: %w", domain.ErrPersistence, err)
		}
		found = false
	}

	names, remove, checkErr := check(rec, found, code, s.opts.now())
	if remove {
		if _, err := tx.Exec(ctx, `DELETE FROM verification_codes WHERE email = $1`, key); err != nil {
			return Names{}, fmt.Errorf("%w: delete code: %w", domain.ErrPersistence, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return Names{}, fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
		}
	}
	return names, checkErr
}

func (s *PostgresStore) Sweep(ctx context.Context) (int, error) {
	cmd, err := s.pool.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, s.opts.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return 0, fmt.Errorf("%w: sweep codes: %w", domain.ErrPersistence, err)
	}
	return int(cmd.RowsAffected()), nil
}
