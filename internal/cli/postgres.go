package cli

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"luminix/internal/config"
	"luminix/internal/db"
	"luminix/internal/identity"
	"luminix/internal/migrate"
	cartrepo "luminix/internal/repository/cart"
	profilerepo "luminix/internal/repository/profile"
	profilesvc "luminix/internal/service/profile"
	"luminix/internal/session"
	"luminix/internal/verification"
)

type poolMigrator struct {
	pool *pgxpool.Pool
}

func (m poolMigrator) Apply(ctx context.Context) error { return migrate.Apply(ctx, m.pool) }

func (m poolMigrator) Rollback(ctx context.Context, steps int) error {
	return migrate.Rollback(ctx, m.pool, steps)
}

func (m poolMigrator) Version(ctx context.Context) (uint, bool, error) {
	return migrate.Version(ctx, m.pool)
}

// PostgresFactory connects to the configured database for each command run.
func PostgresFactory(cfg config.Config, logger *log.Logger) Factory {
	return func(ctx context.Context) (Deps, func(), error) {
		pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
		if err != nil {
			return Deps{}, nil, err
		}

		profileRepo := profilerepo.NewPostgres(pool, logger)
		profiles := profilesvc.New(profileRepo, nil, logger)
		if idc := identity.New(cfg.Auth.URL, cfg.Auth.ServiceKey, cfg.Commerce.Timeout); idc != nil {
			profiles = profilesvc.New(profileRepo, idc, logger)
		}

		return Deps{
			Migrator: poolMigrator{pool: pool},
			Carts:    cartrepo.NewPostgres(pool, logger),
			Profiles: profiles,
			Codes:    verification.NewPostgresStore(pool, verification.WithTTL(cfg.Verification.TTL)),
			Sessions: session.NewVerifier(cfg.Auth.JWTSecret),
		}, pool.Close, nil
	}
}
