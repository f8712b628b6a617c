package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/waymaker/tour-booking/internal/booking"
	"github.com/waymaker/tour-booking/internal/jobs"
	"github.com/waymaker/tour-booking/internal/ratelimit"
)

type RouterConfig struct {
	Service    *booking.Service
	Limiter    *ratelimit.Limiter
	Jobs       *jobs.Runner
	Redis      *redis.Client
	PgPool     *pgxpool.Pool // nil when the audit log is disabled
	CronSecret string
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.Redis, cfg.PgPool, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/api/bookings", createBookingHandler(cfg.Service, cfg.Limiter))
	r.Post("/api/bookings/cancel", cancelBookingHandler(cfg.Service))

	r.Get("/api/cron/reminder", reminderHandler(cfg.Jobs, cfg.CronSecret))
	r.Get("/api/cron/cleanup", cleanupHandler(cfg.Jobs, cfg.CronSecret))

	return r
}
