package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking is the record stored per reservation. It is created only by the
// creation transaction, and removed by cancellation or the nightly cleanup.
type Booking struct {
	ID           string    `json:"id"`
	ParentName   string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	FacilitySlug string    `json:"daycareSlug"`
	FacilityName string    `json:"daycareName"`
	Date         string    `json:"date"` // YYYY-MM-DD, civil date
	TimeWindow   string    `json:"time"`
	Message      string    `json:"message,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (b *Booking) Marshal() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal booking %s: %w", b.ID, err)
	}
	return string(data), nil
}

func Unmarshal(data string) (*Booking, error) {
	var b Booking
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("parse booking record: %w", err)
	}
	return &b, nil
}

// Key layout in the shared store.

func RecordKey(id string) string {
	return "booking:" + id
}

func CounterKey(slug, date string) string {
	return fmt.Sprintf("daycare:%s:date:%s:count", slug, date)
}

func DateIndexKey(date string) string {
	return "bookings:date:" + date
}

func FacilityIndexKey(slug string) string {
	return fmt.Sprintf("daycare:%s:bookings", slug)
}
