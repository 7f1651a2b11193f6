// Command importer loads OpenStreetMap sport locations into the location store.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/config"
	"backend-meetspot/internal/db"
	"backend-meetspot/internal/location"
	"backend-meetspot/internal/logging"
	"backend-meetspot/internal/metrics"
	"backend-meetspot/internal/shared/apperr"

	"github.com/spf13/cobra"
)

// Importer is the part of location.Service the command drives.
type Importer interface {
	Import(ctx context.Context, in location.NewLocation, modified time.Time) (location.Detailed, bool, error)
}

type stats struct {
	Imported int
	Skipped  int
	Invalid  int
}

func main() {
	if err := newRootCmd(connectImporter).Execute(); err != nil {
		os.Exit(1)
	}
}

type connectFunc func(ctx context.Context, cfg config.Config, log *slog.Logger) (Importer, func(), error)

func connectImporter(ctx context.Context, cfg config.Config, log *slog.Logger) (Importer, func(), error) {
	pool, err := db.ConnectPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := location.NewService(
		location.NewStore(pool),
		db.NewTxManager(pool),
		auth.NewService(cfg.JWTSecret, pool, cfg.Locations.MinTrustToAdd),
		cfg.Locations,
		log,
		metrics.Discard(),
	)
	return svc, pool.Close, nil
}

func newRootCmd(connect connectFunc) *cobra.Command {
	var timestamp string

	cmd := &cobra.Command{
		Use:   "importer [extract.json ...]",
		Short: "Import Overpass sport extracts as locations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			modified := time.Now().UTC()
			if timestamp != "" {
				t, err := time.Parse(time.RFC3339, timestamp)
				if err != nil {
					return fmt.Errorf("parse --timestamp: %w", err)
				}
				modified = t
			}

			ctx := cmd.Context()
			importer, closeFn, err := connect(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			var total stats
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				st, err := importExtract(ctx, importer, f, modified, log)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				log.Info("extract imported", "file", path, "imported", st.Imported, "skipped", st.Skipped, "invalid", st.Invalid)
				total.Imported += st.Imported
				total.Skipped += st.Skipped
				total.Invalid += st.Invalid
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, invalid %d\n", total.Imported, total.Skipped, total.Invalid)
			return nil
		},
	}
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "extract time (RFC 3339), defaults to now")
	return cmd
}

// importExtract imports every element of one extract. Elements that cannot be
// mapped are counted and skipped; store failures abort the run.
func importExtract(ctx context.Context, importer Importer, r io.Reader, modified time.Time, log *slog.Logger) (stats, error) {
	ex, err := location.DecodeOSMExtract(r)
	if err != nil {
		return stats{}, err
	}

	var st stats
	for _, el := range ex.Elements {
		in, err := location.NewLocationFromOSM(el)
		if err != nil {
			log.Warn("skipping osm element", "osm_id", el.ID, "error", err)
			st.Invalid++
			continue
		}
		_, ok, err := importer.Import(ctx, in, modified)
		if apperr.KindOf(err) == apperr.KindInvalid {
			log.Warn("rejected osm element", "osm_id", el.ID, "error", err)
			st.Invalid++
			continue
		}
		if err != nil {
			return st, err
		}
		if ok {
			st.Imported++
		} else {
			st.Skipped++
		}
	}
	return st, nil
}
