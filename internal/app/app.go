// Package app wires the services to a storage driver for the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/audit"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/db"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
	"github.com/hackgods/clinic-appointment-core/internal/memstore"
	redisclient "github.com/hackgods/clinic-appointment-core/internal/redis"
)

// lockWait is how long a booking waits for a busy practitioner day.
const lockWait = 2 * time.Second

type App struct {
	Appointments *appointment.Service
	Clinical     *clinical.Service

	// nil under the memory driver
	PgPool *pgxpool.Pool
	Redis  *redis.Client

	closers []func()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New builds the services for cfg.StorageDriver.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return newMemory(cfg, log), nil
	case config.StoragePostgres:
		return newPostgres(ctx, cfg, log)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newMemory(cfg config.Config, log zerolog.Logger) *App {
	store := memstore.New()
	store.SeedDemo(50, 5)
	log.Info().
		Int("patients", len(store.Patients())).
		Int("practitioners", len(store.Practitioners())).
		Msg("memory store seeded")

	return &App{
		Appointments: appointment.NewService(store, store, store, store, cfg, log),
		Clinical:     clinical.NewService(store, store, store, store, store, cfg, log),
	}
}

func newPostgres(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		return nil, err
	}
	a.PgPool = pool
	a.closers = append(a.closers, pool.Close)
	log.Info().Msg("connected to Postgres")

	if cfg.MigrateOnStart {
		n, err := db.NewMigrator(pool).Up(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Int("applied", n).Msg("migrations applied")
	}

	rdb, err := redisclient.NewRedisClient(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Redis = rdb
	a.closers = append(a.closers, func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	appts := appointment.NewPgRepository(pool)
	tx := db.NewPgTransactor(pool)
	recorder := audit.NewPgRecorder(pool)

	a.Appointments = appointment.NewService(appts,
		redisclient.NewRedisLocker(rdb, cfg.LockTTL, lockWait),
		tx, recorder, cfg, log)
	a.Clinical = clinical.NewService(appts,
		clinical.NewPgRepository(pool),
		inventory.NewPgRepository(pool),
		tx, recorder, cfg, log)
	return a, nil
}
