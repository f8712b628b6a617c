// seed creates fake confirmed bookings so the reminder and cleanup jobs have
// something to act on. By default it books tomorrow's date (in the service
// timezone) at every facility in the directory.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/waymaker/tour-booking/internal/booking"
	"github.com/waymaker/tour-booking/internal/config"
	"github.com/waymaker/tour-booking/internal/events"
	"github.com/waymaker/tour-booking/internal/notify"
	"github.com/waymaker/tour-booking/internal/partner"
	"github.com/waymaker/tour-booking/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	count := flag.Int("count", 2, "bookings to create per facility")
	date := flag.String("date", "", "target date YYYY-MM-DD (default: tomorrow in the service timezone)")
	slug := flag.String("facility", "", "only seed this facility slug")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	st, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer st.Close()

	directory, err := partner.LoadDirectory()
	if err != nil {
		log.Fatalf("load partner directory: %v", err)
	}

	target := *date
	if target == "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("load timezone: %v", err)
		}
		target = time.Now().In(loc).AddDate(0, 0, 1).Format("2006-01-02")
	}

	svc := booking.NewService(st, directory, notify.LogNotifier{}, events.NopRecorder{}, booking.Options{
		Capacity:   cfg.Capacity,
		TxAttempts: cfg.TxAttempts,
		TxBackoff:  cfg.TxBackoff,
	}, cfg.BaseURL, cfg.Timezone, cfg.FacilityNotifyEmail)

	gofakeit.Seed(time.Now().UnixNano())

	ctx := context.Background()
	created := 0

	for _, facility := range directory.All() {
		if *slug != "" && facility.Slug != *slug {
			continue
		}
		for i := 0; i < *count; i++ {
			b, err := svc.Create(ctx, booking.CreateRequest{
				ParentName:   gofakeit.Name(),
				Email:        gofakeit.Email(),
				Phone:        gofakeit.Phone(),
				FacilitySlug: facility.Slug,
				Date:         target,
				TimeWindow:   facility.TourHours,
				Message:      gofakeit.Sentence(8),
			})
			if err != nil {
				log.Printf("seed booking at %s: %v", facility.Slug, err)
				continue
			}
			log.Printf("created booking %s at %s for %s", b.ID, facility.Slug, target)
			created++
		}
	}

	log.Printf("seed complete: %d bookings for %s", created, target)
}
