package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRecorder persists events to Postgres.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS booking_events (
//	    id         BIGSERIAL PRIMARY KEY,
//	    event_type TEXT NOT NULL,
//	    booking_id TEXT,
//	    payload    JSONB,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PgRecorder struct {
	pool *pgxpool.Pool
}

func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

func (r *PgRecorder) Record(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO booking_events (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.Type, ev.BookingID, payload, createdAt)
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}
	return nil
}
