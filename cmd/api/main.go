package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-meetspot/internal/config"
	"backend-meetspot/internal/db"
	"backend-meetspot/internal/logging"
	"backend-meetspot/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "api",
		Short:        "Serve the meetspot HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logging.New(cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()

			pg, err := db.ConnectPostgres(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			rdb, err := db.ConnectRedis(ctx, cfg)
			if err != nil {
				log.Warn("redis unavailable, offer events stay in-process", "error", err)
			}
			if rdb != nil {
				defer rdb.Close()
			}

			return Run(ctx, cfg, pg, rdb, log, nil)
		},
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdown = func(ctx context.Context, app *fiber.App) error {
	return app.ShutdownWithContext(ctx)
}

// Run serves the API until ctx is cancelled or the listener fails. The caller
// keeps ownership of pg and rdb.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, log *slog.Logger, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, log)
	defer srv.Close()

	if listen == nil {
		listen = defaultListen
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", "addr", cfg.ServerPort)
		if err := listen(srv.App, cfg.ServerPort); err != nil {
			return fmt.Errorf("listen %s: %w", cfg.ServerPort, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx, srv.App); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
