package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/waymaker/tour-booking/internal/events"
	"github.com/waymaker/tour-booking/internal/notify"
	"github.com/waymaker/tour-booking/internal/partner"
	"github.com/waymaker/tour-booking/internal/store"
)

var (
	ErrCapacityExceeded     = errors.New("no tour slots left for this date")
	ErrConcurrencyExhausted = errors.New("could not commit booking after retries")
	ErrNotFound             = errors.New("booking not found")
	ErrAlreadyCancelled     = errors.New("booking already cancelled")
	ErrDateBlocked          = errors.New("facility does not offer tours on this date")
)

// Options tune the coordinators. Zero values fall back to the production
// defaults: capacity 4, 3 attempts, 50ms base backoff.
type Options struct {
	Capacity   int
	TxAttempts int
	TxBackoff  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = 4
	}
	if o.TxAttempts <= 0 {
		o.TxAttempts = 3
	}
	if o.TxBackoff <= 0 {
		o.TxBackoff = 50 * time.Millisecond
	}
	return o
}

// Service holds the booking and cancellation coordinators. Correctness under
// concurrent requests is delegated to the store's optimistic transactions;
// the service holds no locks of its own.
type Service struct {
	store     store.Store
	directory *partner.Directory
	notifier  notify.Notifier
	recorder  events.Recorder
	opts      Options

	baseURL       string
	timezone      string
	facilityInbox string

	// sleep is swapped out by tests to avoid real backoff delays.
	sleep func(time.Duration)
}

func NewService(s store.Store, directory *partner.Directory, notifier notify.Notifier, recorder events.Recorder, opts Options, baseURL, timezone, facilityInbox string) *Service {
	return &Service{
		store:         s,
		directory:     directory,
		notifier:      notifier,
		recorder:      recorder,
		opts:          opts.withDefaults(),
		baseURL:       baseURL,
		timezone:      timezone,
		facilityInbox: facilityInbox,
		sleep:         time.Sleep,
	}
}

type CreateRequest struct {
	ParentName   string
	Email        string
	Phone        string
	FacilitySlug string
	Date         string // YYYY-MM-DD
	TimeWindow   string
	Message      string
}

// Create reserves a tour slot if the day's capacity is not exhausted.
//
// The capacity check and all four writes (record, counter, date index,
// facility index) happen inside one optimistic transaction watching the slot
// counter. A concurrent commit on the same counter aborts ours; we retry up
// to the bound with incremental backoff and surface ErrConcurrencyExhausted
// if the retries run out. Capacity rejection is a business outcome, not a
// race, and is never retried.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	facility, err := s.directory.BySlug(req.FacilitySlug)
	if err != nil {
		return nil, err
	}
	if facility.DateBlocked(req.Date) {
		return nil, ErrDateBlocked
	}

	// The id is generated before the transaction. Nothing is written until
	// commit, so discarding it on an aborted transaction leaks no state.
	b := &Booking{
		ID:           uuid.NewString(),
		ParentName:   req.ParentName,
		Email:        req.Email,
		Phone:        req.Phone,
		FacilitySlug: facility.Slug,
		FacilityName: facility.Name,
		Date:         req.Date,
		TimeWindow:   req.TimeWindow,
		Message:      req.Message,
		Status:       StatusConfirmed,
		CreatedAt:    time.Now().UTC(),
	}
	if b.TimeWindow == "" {
		b.TimeWindow = facility.TourHours
	}

	record, err := b.Marshal()
	if err != nil {
		return nil, err
	}

	counterKey := CounterKey(b.FacilitySlug, b.Date)

	for attempt := 1; attempt <= s.opts.TxAttempts; attempt++ {
		err = s.store.Watch(ctx, func(tx store.Tx) error {
			count, err := readCount(ctx, tx, counterKey)
			if err != nil {
				return err
			}
			if count >= int64(s.opts.Capacity) {
				return ErrCapacityExceeded
			}

			return tx.Exec(ctx, func(p store.Pipeliner) error {
				p.Set(RecordKey(b.ID), record)
				p.Incr(counterKey)
				p.SAdd(DateIndexKey(b.Date), b.ID)
				p.SAdd(FacilityIndexKey(b.FacilitySlug), b.ID)
				return nil
			})
		}, counterKey)

		if err == nil {
			s.afterCreate(ctx, b)
			return b, nil
		}
		if errors.Is(err, store.ErrTxConflict) {
			s.sleep(s.opts.TxBackoff * time.Duration(attempt))
			continue
		}
		return nil, err
	}

	return nil, ErrConcurrencyExhausted
}

// Cancel reverses a confirmed booking. It is idempotent: cancelling a record
// that already carries cancelled status mutates nothing.
func (s *Service) Cancel(ctx context.Context, bookingID string) error {
	recordKey := RecordKey(bookingID)

	data, err := s.store.Get(ctx, recordKey)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	b, err := Unmarshal(data)
	if err != nil {
		return err
	}
	if b.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	for attempt := 1; attempt <= s.opts.TxAttempts; attempt++ {
		err = s.store.Watch(ctx, func(tx store.Tx) error {
			// Re-read inside the transaction: the booking may have been
			// cancelled or purged since the lookup above.
			data, err := tx.Get(ctx, recordKey)
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			cur, err := Unmarshal(data)
			if err != nil {
				return err
			}
			if cur.Status == StatusCancelled {
				return ErrAlreadyCancelled
			}
			b = cur

			return tx.Exec(ctx, func(p store.Pipeliner) error {
				p.Decr(CounterKey(cur.FacilitySlug, cur.Date))
				p.SRem(DateIndexKey(cur.Date), cur.ID)
				p.SRem(FacilityIndexKey(cur.FacilitySlug), cur.ID)
				p.Del(recordKey)
				return nil
			})
		}, recordKey)

		if err == nil {
			s.afterCancel(ctx, b)
			return nil
		}
		if errors.Is(err, store.ErrTxConflict) {
			s.sleep(s.opts.TxBackoff * time.Duration(attempt))
			continue
		}
		return err
	}

	return ErrConcurrencyExhausted
}

// Get reads a booking record by id.
func (s *Service) Get(ctx context.Context, bookingID string) (*Booking, error) {
	data, err := s.store.Get(ctx, RecordKey(bookingID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// afterCreate sends the confirmation and facility notices. The booking has
// already committed: a failed send is logged and the booking stands.
func (s *Service) afterCreate(ctx context.Context, b *Booking) {
	tour := s.tour(b)

	if err := s.notifier.Send(ctx, notify.ConfirmationMessage(tour, s.baseURL, s.timezone)); err != nil {
		log.Printf("confirmation send failed for booking %s to %s: %v", b.ID, notify.MaskEmail(b.Email), err)
	}
	if err := s.notifier.Send(ctx, notify.FacilityBookingMessage(tour, s.facilityInbox)); err != nil {
		log.Printf("facility notice send failed for booking %s: %v", b.ID, err)
	}

	s.record(ctx, events.Event{
		Type:      events.TypeBookingCreated,
		BookingID: b.ID,
		Payload: map[string]any{
			"facility": b.FacilitySlug,
			"date":     b.Date,
		},
	})
}

func (s *Service) afterCancel(ctx context.Context, b *Booking) {
	if err := s.notifier.Send(ctx, notify.FacilityCancellationMessage(s.tour(b), s.facilityInbox)); err != nil {
		log.Printf("cancellation notice send failed for booking %s: %v", b.ID, err)
	}

	s.record(ctx, events.Event{
		Type:      events.TypeBookingCancelled,
		BookingID: b.ID,
		Payload: map[string]any{
			"facility": b.FacilitySlug,
			"date":     b.Date,
		},
	})
}

func (s *Service) record(ctx context.Context, ev events.Event) {
	if err := s.recorder.Record(ctx, ev); err != nil {
		log.Printf("failed to record %s event for booking %s: %v", ev.Type, ev.BookingID, err)
	}
}

func (s *Service) tour(b *Booking) notify.Tour {
	return notify.Tour{
		BookingID:    b.ID,
		ParentName:   b.ParentName,
		ParentEmail:  b.Email,
		FacilityName: b.FacilityName,
		FacilitySlug: b.FacilitySlug,
		Date:         b.Date,
		TimeWindow:   b.TimeWindow,
		Message:      b.Message,
	}
}

func readCount(ctx context.Context, tx store.Tx, key string) (int64, error) {
	v, err := tx.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-integer value %q", key, v)
	}
	return n, nil
}
