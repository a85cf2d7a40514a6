package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Clinical     *clinical.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
	CORSOrigins  []string
	RateLimitRPM int // 0 disables rate limiting
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", ActorHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPM > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPM, time.Minute))
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	appts := cfg.Appointments
	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(appts))
			r.Get("/", listAppointmentsHandler(appts))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getAppointmentHandler(appts))
				r.Patch("/", editAppointmentHandler(appts))
				r.Delete("/", deleteAppointmentHandler(appts))

				r.Post("/cancel", cancelAppointmentHandler(appts))
				r.Post("/check-in", checkInHandler(appts))
				r.Post("/start", transitionHandler(appts, startConsultation))
				r.Post("/ready", transitionHandler(appts, markReady))
				r.Post("/complete", transitionHandler(appts, completeAppointment))
				r.Post("/no-show", transitionHandler(appts, markNoShow))

				r.Get("/vitals", getVitalsHandler(appts))
				r.Put("/vitals", updateVitalsHandler(appts))

				r.Post("/completion", completeConsultationHandler(cfg.Clinical))
				r.Get("/completion", getCompletionHandler(cfg.Clinical))
			})
		})

		r.Get("/practitioners/{id}/slots", listSlotsHandler(appts))
	})

	return r
}
