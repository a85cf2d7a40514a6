package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/db"
	"github.com/hackgods/clinic-appointment-core/internal/logger"
	"github.com/hackgods/clinic-appointment-core/internal/memstore"
)

const (
	practitionerCount = 20
	patientCount      = 5000
	batchSize         = 500
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg, "seed")
	if cfg.StorageDriver != config.StoragePostgres {
		log.Fatal().Msg("seed needs STORAGE_DRIVER=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	ctx = context.Background()
	if err := seedPractitioners(ctx, log, pool, practitionerCount); err != nil {
		log.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedPatients(ctx, log, pool, patientCount); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedMedications(ctx, log, pool); err != nil {
		log.Fatal().Err(err).Msg("seed medications")
	}

	log.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, log zerolog.Logger, pool *pgxpool.Pool, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for range count {
		specialty := memstore.Specialties[gofakeit.Number(0, len(memstore.Specialties)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), "Dr. "+gofakeit.Name(), specialty)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info().Int("count", count).Msg("practitioners seeded")
	return nil
}

func seedPatients(ctx context.Context, log zerolog.Logger, pool *pgxpool.Pool, count int) error {
	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for range end - offset {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}
	return nil
}

func seedMedications(ctx context.Context, log zerolog.Logger, pool *pgxpool.Pool) error {
	for _, name := range memstore.Medications {
		_, err := pool.Exec(ctx, `
			INSERT INTO medications (id, name, unit, stock, created_at, updated_at)
			VALUES ($1, $2, 'unit', $3, now(), now())
		`, uuid.New(), name, gofakeit.Number(50, 500))
		if err != nil {
			return err
		}
	}
	log.Info().Int("count", len(memstore.Medications)).Msg("medications seeded")
	return nil
}
