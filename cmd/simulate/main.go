// simulate fires concurrent booking requests at a running api-server to
// exercise the capacity check under contention. With capacity 4 and a fresh
// facility/date, any number of workers must end with exactly 4 confirmed
// bookings and the rest rejected.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

type result struct {
	Success     int64
	Capacity    int64
	RateLimited int64
	Busy        int64
	Other       int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := flag.String("url", "http://localhost:8080", "api-server base URL")
	facility := flag.String("facility", "acorn-kids", "facility slug to book")
	date := flag.String("date", "", "target date YYYY-MM-DD (required)")
	workers := flag.Int("workers", 20, "concurrent booking requests")
	flag.Parse()

	if *date == "" {
		log.Fatal("-date is required")
	}

	gofakeit.Seed(time.Now().UnixNano())

	client := &http.Client{Timeout: 10 * time.Second}
	endpoint := *baseURL + "/api/bookings"

	var res result
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		// Distinct forwarded addresses so the rate limiter does not collapse
		// all workers onto one identifier.
		forwardedFor := fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)
		go func() {
			defer wg.Done()
			status, err := postBooking(client, endpoint, *facility, *date, forwardedFor)
			if err != nil {
				log.Printf("request error: %v", err)
				atomic.AddInt64(&res.Other, 1)
				return
			}
			switch status {
			case http.StatusOK:
				atomic.AddInt64(&res.Success, 1)
			case http.StatusConflict:
				atomic.AddInt64(&res.Capacity, 1)
			case http.StatusTooManyRequests:
				atomic.AddInt64(&res.RateLimited, 1)
			case http.StatusInternalServerError:
				atomic.AddInt64(&res.Busy, 1)
			default:
				atomic.AddInt64(&res.Other, 1)
			}
		}()
	}
	wg.Wait()

	log.Printf("simulate complete in %s", time.Since(start))
	log.Printf("workers=%d success=%d capacity_rejected=%d rate_limited=%d busy=%d other=%d",
		*workers, res.Success, res.Capacity, res.RateLimited, res.Busy, res.Other)
}

func postBooking(client *http.Client, endpoint, facility, date, forwardedFor string) (int, error) {
	payload := map[string]string{
		"parentName":   gofakeit.Name(),
		"email":        gofakeit.Email(),
		"phone":        gofakeit.Phone(),
		"facilitySlug": facility,
		"date":         date,
		"message":      gofakeit.Sentence(6),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
