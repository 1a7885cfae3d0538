// Package cli holds the luminixctl operations commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"
	"luminix/internal/config"
	"luminix/internal/domain"
)

type migrator interface {
	Apply(ctx context.Context) error
	Rollback(ctx context.Context, steps int) error
	Version(ctx context.Context) (uint, bool, error)
}

type cartStore interface {
	ListIdle(ctx context.Context, idleFor time.Duration, limit int) ([]domain.AbandonedCart, error)
	PruneStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type profileDeleter interface {
	DeleteProfile(ctx context.Context, id string) error
}

type codeSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type tokenIssuer interface {
	Issue(userID, email string, ttl time.Duration) (string, error)
}

// Deps are the backends a command may touch.
type Deps struct {
	Migrator migrator
	Carts    cartStore
	Profiles profileDeleter
	Codes    codeSweeper
	Sessions tokenIssuer
}

// Factory opens backends for one command run. The returned func releases them.
type Factory func(ctx context.Context) (Deps, func(), error)

type app struct {
	cfg     config.Config
	logger  *log.Logger
	factory Factory
}

// NewRootCommand builds the luminixctl command tree.
func NewRootCommand(cfg config.Config, logger *log.Logger, factory Factory) *cobra.Command {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	a := &app{cfg: cfg, logger: logger, factory: factory}

	root := &cobra.Command{
		Use:           "luminixctl",
		Short:         "Operations tooling for the Luminix storefront backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.migrateCmd(),
		a.pruneCartsCmd(),
		a.listIdleCartsCmd(),
		a.deleteProfileCmd(),
		a.sweepCodesCmd(),
		a.issueSessionCmd(),
	)
	return root
}

// with opens deps, runs fn and releases them.
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, d Deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, release, err := a.factory(ctx)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer release()
	return fn(ctx, d)
}

func (a *app) migrateCmd() *cobra.Command {
	var rollback int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back with --rollback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, d Deps) error {
				if rollback > 0 {
					if err := d.Migrator.Rollback(ctx, rollback); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", rollback)
					return nil
				}
				if err := d.Migrator.Apply(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "number of migrations to roll back")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, d Deps) error {
				v, dirty, err := d.Migrator.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	})
	return cmd
}

func (a *app) pruneCartsCmd() *cobra.Command {
	olderThan := a.cfg.AbandonedCartRetention
	cmd := &cobra.Command{
		Use:   "prune-carts",
		Short: "Delete abandoned cart snapshots past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, d Deps) error {
				n, err := d.Carts.PruneStale(ctx, olderThan)
				if err != nil {
					return err
				}
				a.logger.Printf("cli: prune-carts older_than=%s deleted=%d", olderThan, n)
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshot(s) older than %s\n", n, olderThan)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", olderThan, "retention window")
	return cmd
}

func (a *app) listIdleCartsCmd() *cobra.Command {
	var (
		idle  time.Duration
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list-idle-carts",
		Short: "List non-empty abandoned carts untouched for a while",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, d Deps) error {
				carts, err := d.Carts.ListIdle(ctx, idle, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, c := range carts {
					fmt.Fprintf(out, "%s\t%s\t%d\t%s\n", c.UserID, c.CartID, c.TotalQuantity, c.UpdatedAt.UTC().Format(time.RFC3339))
				}
				fmt.Fprintf(out, "%d cart(s)\n", len(carts))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&idle, "idle", 24*time.Hour, "minimum time since the last update")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func (a *app) deleteProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-profile <user-id>",
		Short: "Delete a user's identity and profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, d Deps) error {
				if err := d.Profiles.DeleteProfile(ctx, args[0]); err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("profile %s not found", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted profile %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) sweepCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-codes",
		Short: "Remove expired verification codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, d Deps) error {
				n, err := d.Codes.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired code(s)\n", n)
				return nil
			})
		},
	}
}

func (a *app) issueSessionCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-session <user-id>",
		Short: "Sign a session token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(_ context.Context, d Deps) error {
				tok, err := d.Sessions.Issue(args[0], email, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
