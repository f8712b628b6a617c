package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waymaker/tour-booking/internal/api"
	"github.com/waymaker/tour-booking/internal/booking"
	"github.com/waymaker/tour-booking/internal/config"
	"github.com/waymaker/tour-booking/internal/db"
	"github.com/waymaker/tour-booking/internal/events"
	"github.com/waymaker/tour-booking/internal/jobs"
	"github.com/waymaker/tour-booking/internal/notify"
	"github.com/waymaker/tour-booking/internal/partner"
	"github.com/waymaker/tour-booking/internal/ratelimit"
	"github.com/waymaker/tour-booking/internal/store"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s timezone=%s", cfg.Env, cfg.HTTPPort, cfg.Timezone)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var pgPool *pgxpool.Pool
	var recorder events.Recorder = events.NopRecorder{}
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		recorder = events.NewPgRecorder(pgPool)
		log.Println("connected to Postgres, audit event log enabled")
	} else {
		log.Println("POSTGRES_DSN not set, audit event log disabled")
	}

	directory, err := partner.LoadDirectory()
	if err != nil {
		log.Fatalf("load partner directory: %v", err)
	}

	notifier := buildNotifier(cfg)

	svc := booking.NewService(st, directory, notifier, recorder, booking.Options{
		Capacity:   cfg.Capacity,
		TxAttempts: cfg.TxAttempts,
		TxBackoff:  cfg.TxBackoff,
	}, cfg.BaseURL, cfg.Timezone, cfg.FacilityNotifyEmail)

	limiter := ratelimit.NewLimiter(st, cfg.RateLimitMax, cfg.RateLimitWindow)

	runner, err := jobs.NewRunner(st, notifier, recorder, cfg.Timezone)
	if err != nil {
		log.Fatalf("job runner init: %v", err)
	}

	handler := api.NewRouter(api.RouterConfig{
		Service:    svc,
		Limiter:    limiter,
		Jobs:       runner,
		Redis:      st.Client(),
		PgPool:     pgPool,
		CronSecret: cfg.CronSecret,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func buildNotifier(cfg config.Config) notify.Notifier {
	if cfg.SMTPHost == "" {
		log.Println("SMTP_HOST not set, notifications are logged only")
		return notify.LogNotifier{}
	}
	n, err := notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	if err != nil {
		log.Fatalf("smtp notifier init: %v", err)
	}
	log.Printf("smtp notifier ready host=%s", cfg.SMTPHost)
	return n
}
