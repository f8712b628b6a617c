// cron-trigger invokes the service's cron endpoints with the shared-secret
// bearer token. Run it once from an external scheduler, or with -interval to
// keep triggering on a timer.
//
// Usage:
//
//	cron-trigger -job reminder
//	cron-trigger -job cleanup -interval 24h
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/waymaker/tour-booking/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	job := flag.String("job", "reminder", "cron job to trigger: reminder or cleanup")
	baseURL := flag.String("url", "", "service base URL (defaults to BASE_URL from the environment)")
	interval := flag.Duration("interval", 0, "re-trigger on this interval; 0 runs once")
	flag.Parse()

	if *job != "reminder" && *job != "cleanup" {
		log.Fatalf("unknown job %q, want reminder or cleanup", *job)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.CronSecret == "" {
		log.Fatal("CRON_SECRET is required")
	}

	target := cfg.BaseURL
	if *baseURL != "" {
		target = *baseURL
	}
	endpoint := fmt.Sprintf("%s/api/cron/%s", target, *job)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 60 * time.Second}

	trigger(rootCtx, client, endpoint, cfg.CronSecret)

	if *interval <= 0 {
		return
	}

	log.Printf("re-triggering %s every %s", *job, *interval)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping cron-trigger")
			return
		case <-ticker.C:
			trigger(rootCtx, client, endpoint, cfg.CronSecret)
		}
	}
}

func trigger(ctx context.Context, client *http.Client, endpoint, secret string) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Printf("build request: %v", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("trigger %s: %v", endpoint, err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	log.Printf("trigger %s status=%d duration=%s body=%s", endpoint, resp.StatusCode, time.Since(start), body)
}
