package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/app"
	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/logger"
)

const batchSize = 500

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg, "noshow-worker")
	if cfg.StorageDriver != config.StoragePostgres {
		log.Fatal().Str("storage", cfg.StorageDriver).Msg("noshow-worker needs STORAGE_DRIVER=postgres")
	}
	log.Info().Dur("interval", cfg.WorkerInterval).Msg("noshow-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer deps.Close()

	// Run once at startup
	runOnce(rootCtx, log, deps.Appointments)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping noshow-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, log, deps.Appointments)
		}
	}
}

// runOnce sweeps in batches until a batch comes back short.
func runOnce(ctx context.Context, log zerolog.Logger, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	total := 0
	for {
		n, err := svc.SweepNoShows(runCtx, batchSize)
		if err != nil {
			log.Error().Err(err).Int("marked", total).Msg("no-show sweep failed")
			return
		}
		total += n
		if n < batchSize {
			break
		}
	}
	log.Info().Int("marked", total).Dur("took", time.Since(start)).Msg("no-show sweep complete")
}
