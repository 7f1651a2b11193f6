// Command migrate applies the embedded schema migrations with goose.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"backend-meetspot/internal/config"
	"backend-meetspot/internal/logging"
	"backend-meetspot/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(openDB).Execute(); err != nil {
		os.Exit(1)
	}
}

type openFunc func(ctx context.Context, dsn string) (*sql.DB, error)

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func newProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
}

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the meetspot database schema",
	}

	withProvider := func(fn func(cmd *cobra.Command, p *goose.Provider) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logging.New(cfg.LogLevel, cfg.LogFormat)

			db, err := open(cmd.Context(), cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := newProvider(db)
			if err != nil {
				return err
			}
			return fn(cmd, p)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withProvider(func(cmd *cobra.Command, p *goose.Provider) error {
				results, err := p.Up(cmd.Context())
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s (%s)\n", r.Source.Path, r.Duration)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withProvider(func(cmd *cobra.Command, p *goose.Provider) error {
				r, err := p.Down(cmd.Context())
				if r != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", r.Source.Path)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration state",
			RunE: withProvider(func(cmd *cobra.Command, p *goose.Provider) error {
				statuses, err := p.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", s.State, s.Source.Path)
				}
				return nil
			}),
		},
	)
	return root
}
