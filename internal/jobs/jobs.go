// Package jobs contains the unattended daily batch jobs: the reminder run
// that mails parents the day before their tour, and the cleanup run that
// purges yesterday's bookings. Both compute their target date in one fixed
// civil timezone regardless of the host clock, and both tolerate partial
// failure: one broken booking never aborts the rest of the batch.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/waymaker/tour-booking/internal/booking"
	"github.com/waymaker/tour-booking/internal/events"
	"github.com/waymaker/tour-booking/internal/notify"
	"github.com/waymaker/tour-booking/internal/store"
)

type Runner struct {
	store    store.Store
	notifier notify.Notifier
	recorder events.Recorder
	loc      *time.Location

	// now is swapped out by tests to pin the target dates.
	now func() time.Time
}

func NewRunner(s store.Store, notifier notify.Notifier, recorder events.Recorder, timezone string) (*Runner, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Runner{
		store:    s,
		notifier: notifier,
		recorder: recorder,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// SetNow overrides the runner's clock for tests.
func (r *Runner) SetNow(now func() time.Time) {
	r.now = now
}

// targetDate formats the current instant shifted by offset calendar days in
// the runner's fixed zone. This mirrors the behaviour the business signed off
// on: format the zoned instant plus/minus one day, rather than attempting
// exhaustive civil-calendar arithmetic around DST transitions.
func (r *Runner) targetDate(offsetDays int) string {
	return r.now().In(r.loc).AddDate(0, 0, offsetDays).Format("2006-01-02")
}

type ReminderResult struct {
	Date  string
	Found int
	Sent  int
}

// RunReminder mails every parent with a confirmed booking tomorrow. Send
// failures are logged per booking and the batch continues. Booking state is
// never mutated.
func (r *Runner) RunReminder(ctx context.Context) (ReminderResult, error) {
	date := r.targetDate(1)
	res := ReminderResult{Date: date}

	ids, err := r.store.SMembers(ctx, booking.DateIndexKey(date))
	if err != nil {
		return res, fmt.Errorf("read date index for %s: %w", date, err)
	}
	res.Found = len(ids)

	if len(ids) == 0 {
		log.Printf("reminder run: no bookings for %s", date)
		return res, nil
	}

	log.Printf("reminder run: %d bookings for %s", len(ids), date)

	for _, id := range ids {
		data, err := r.store.Get(ctx, booking.RecordKey(id))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("reminder run: read booking %s: %v", id, err)
			continue
		}

		b, err := booking.Unmarshal(data)
		if err != nil {
			log.Printf("reminder run: parse booking %s: %v", id, err)
			continue
		}
		if b.Status != booking.StatusConfirmed {
			continue
		}

		msg := notify.ReminderMessage(notify.Tour{
			BookingID:    b.ID,
			ParentName:   b.ParentName,
			ParentEmail:  b.Email,
			FacilityName: b.FacilityName,
			FacilitySlug: b.FacilitySlug,
			Date:         b.Date,
			TimeWindow:   b.TimeWindow,
		})
		if err := r.notifier.Send(ctx, msg); err != nil {
			log.Printf("reminder run: send to %s for booking %s: %v", notify.MaskEmail(b.Email), id, err)
			continue
		}
		res.Sent++
	}

	log.Printf("reminder run complete: sent=%d date=%s", res.Sent, date)
	return res, nil
}

type CleanupResult struct {
	Date    string
	Deleted int
}

// RunCleanup sweeps yesterday's bookings: each record is removed from its
// facility index and deleted, then the date index itself is dropped.
// Re-running for an already-swept date is a no-op.
func (r *Runner) RunCleanup(ctx context.Context) (CleanupResult, error) {
	date := r.targetDate(-1)
	res := CleanupResult{Date: date}

	dateKey := booking.DateIndexKey(date)
	ids, err := r.store.SMembers(ctx, dateKey)
	if err != nil {
		return res, fmt.Errorf("read date index for %s: %w", date, err)
	}

	log.Printf("cleanup run: %d bookings for %s", len(ids), date)

	for _, id := range ids {
		recordKey := booking.RecordKey(id)

		// Read first to recover the facility slug for index removal. A
		// missing or unreadable record still gets its key deleted below.
		data, err := r.store.Get(ctx, recordKey)
		if err == nil {
			if b, perr := booking.Unmarshal(data); perr == nil && b.FacilitySlug != "" {
				if rerr := r.store.SRem(ctx, booking.FacilityIndexKey(b.FacilitySlug), id); rerr != nil {
					log.Printf("cleanup run: remove %s from facility index: %v", id, rerr)
				}
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("cleanup run: read booking %s: %v", id, err)
		}

		if err := r.store.Del(ctx, recordKey); err != nil {
			log.Printf("cleanup run: delete booking %s: %v", id, err)
			continue
		}
		res.Deleted++

		r.record(ctx, events.Event{
			Type:      events.TypeBookingPurged,
			BookingID: id,
			Payload:   map[string]any{"date": date},
		})
	}

	if err := r.store.Del(ctx, dateKey); err != nil {
		return res, fmt.Errorf("delete date index for %s: %w", date, err)
	}

	log.Printf("cleanup run complete: deleted=%d date=%s", res.Deleted, date)
	return res, nil
}

func (r *Runner) record(ctx context.Context, ev events.Event) {
	if err := r.recorder.Record(ctx, ev); err != nil {
		log.Printf("failed to record %s event for booking %s: %v", ev.Type, ev.BookingID, err)
	}
}
