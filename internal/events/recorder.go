// Package events provides a best-effort audit trail of booking lifecycle
// events. Recording never blocks or fails a booking mutation: callers log
// and continue on error.
package events

import (
	"context"
	"time"
)

const (
	TypeBookingCreated   = "BOOKING_CREATED"
	TypeBookingCancelled = "BOOKING_CANCELLED"
	TypeBookingPurged    = "BOOKING_PURGED"
)

type Event struct {
	Type      string
	BookingID string
	Payload   map[string]any
	CreatedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// NopRecorder is used when no audit database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, ev Event) error {
	return nil
}
