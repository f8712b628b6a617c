package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waymaker/tour-booking/internal/events"
	"github.com/waymaker/tour-booking/internal/notify"
	"github.com/waymaker/tour-booking/internal/partner"
	"github.com/waymaker/tour-booking/internal/store"
)

const fixtureFacilities = `[
  {"name": "Acorn Kids Academy", "slug": "acorn-kids", "tourHours": "10:00 AM - 11:00 AM", "email": "hello@acorn.test"},
  {"name": "Little Sprouts Daycare", "slug": "little-sprouts", "tourHours": "9:30 AM - 10:30 AM", "email": "office@sprouts.test", "blockedDates": ["2026-12-25"]}
]`

type capturingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	fail bool
}

func (n *capturingNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *capturingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

type capturingRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *capturingRecorder) Record(ctx context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *capturingNotifier, *capturingRecorder) {
	t.Helper()

	dir, err := partner.NewDirectory([]byte(fixtureFacilities))
	require.NoError(t, err)

	st := store.NewMemoryStore()
	notifier := &capturingNotifier{}
	recorder := &capturingRecorder{}

	svc := NewService(st, dir, notifier, recorder, Options{
		Capacity:   4,
		TxAttempts: 3,
		TxBackoff:  time.Millisecond,
	}, "http://localhost:8080", "America/Los_Angeles", "daycare@inbox.test")
	svc.sleep = func(time.Duration) {}

	return svc, st, notifier, recorder
}

func createReq(slug, date string) CreateRequest {
	return CreateRequest{
		ParentName:   "Jamie Rivera",
		Email:        "jamie@example.com",
		FacilitySlug: slug,
		Date:         date,
		Message:      "Looking forward to the tour",
	}
}

func counterValue(t *testing.T, st *store.MemoryStore, slug, date string) int64 {
	t.Helper()
	v, err := st.Get(context.Background(), CounterKey(slug, date))
	if errors.Is(err, store.ErrNotFound) {
		return 0
	}
	require.NoError(t, err)
	var n int64
	for _, c := range v {
		n = n*10 + int64(c-'0')
	}
	return n
}

func TestCreateWritesRecordCounterAndIndices(t *testing.T) {
	ctx := context.Background()
	svc, st, notifier, recorder := newTestService(t)

	b, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, "Acorn Kids Academy", b.FacilityName)
	assert.Equal(t, "10:00 AM - 11:00 AM", b.TimeWindow) // defaulted from tour hours

	assert.Equal(t, int64(1), counterValue(t, st, "acorn-kids", "2026-03-10"))

	dateIdx, err := st.SMembers(ctx, DateIndexKey("2026-03-10"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID}, dateIdx)

	facIdx, err := st.SMembers(ctx, FacilityIndexKey("acorn-kids"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID}, facIdx)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.ID)
	assert.Equal(t, "2026-03-10", stored.Date)

	// One confirmation to the parent, one notice to the facility inbox.
	msgs := notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "jamie@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Text, "calendar.google.com")
	assert.Contains(t, msgs[0].Text, "/booking/cancel?id="+b.ID)
	assert.Equal(t, "daycare@inbox.test", msgs[1].To)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, events.TypeBookingCreated, recorder.events[0].Type)
}

func TestCreateFourthSucceedsFifthRejected(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), counterValue(t, st, "acorn-kids", "2026-03-10"))

	_, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), counterValue(t, st, "acorn-kids", "2026-03-10"))

	_, err = svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, int64(4), counterValue(t, st, "acorn-kids", "2026-03-10"))

	ids, err := st.SMembers(ctx, DateIndexKey("2026-03-10"))
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestCreateCapacityDoesNotBlockOtherDatesOrFacilities(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	for i := 0; i < 4; i++ {
		_, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-11"))
	assert.NoError(t, err)
	_, err = svc.Create(ctx, createReq("little-sprouts", "2026-03-10"))
	assert.NoError(t, err)
}

func TestCreateUnknownFacility(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createReq("no-such-place", "2026-03-10"))
	assert.ErrorIs(t, err, partner.ErrNotFound)
}

func TestCreateBlockedDate(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createReq("little-sprouts", "2026-12-25"))
	assert.ErrorIs(t, err, ErrDateBlocked)
	assert.Equal(t, int64(0), counterValue(t, st, "little-sprouts", "2026-12-25"))
}

func TestCreateNotificationFailureDoesNotFailBooking(t *testing.T) {
	ctx := context.Background()
	svc, st, notifier, _ := newTestService(t)
	notifier.fail = true

	b, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)

	// The booking committed even though both sends failed.
	_, err = svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counterValue(t, st, "acorn-kids", "2026-03-10"))
}

func TestCancelReversesBooking(t *testing.T) {
	ctx := context.Background()
	svc, st, notifier, recorder := newTestService(t)

	b, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, b.ID))

	assert.Equal(t, int64(0), counterValue(t, st, "acorn-kids", "2026-03-10"))

	dateIdx, err := st.SMembers(ctx, DateIndexKey("2026-03-10"))
	require.NoError(t, err)
	assert.Empty(t, dateIdx)
	facIdx, err := st.SMembers(ctx, FacilityIndexKey("acorn-kids"))
	require.NoError(t, err)
	assert.Empty(t, facIdx)

	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Facility got a cancellation notice on top of the two creation mails.
	msgs := notifier.messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[2].Subject, "Cancelled")

	require.Len(t, recorder.events, 2)
	assert.Equal(t, events.TypeBookingCancelled, recorder.events[1].Type)
}

func TestCancelFreesCapacity(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	var last *Booking
	for i := 0; i < 4; i++ {
		b, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
		require.NoError(t, err)
		last = b
	}

	_, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	require.NoError(t, svc.Cancel(ctx, last.ID))

	_, err = svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	assert.NoError(t, err)
}

func TestCancelNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.Cancel(context.Background(), "dead-beef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelAlreadyCancelledIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newTestService(t)

	b, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)

	// Flip the stored record to cancelled without touching counter/indices,
	// as an older record format would look after a status-flip cancel.
	b.Status = StatusCancelled
	record, err := b.Marshal()
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, RecordKey(b.ID), record))

	before := counterValue(t, st, "acorn-kids", "2026-03-10")

	err = svc.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	// No mutation happened.
	assert.Equal(t, before, counterValue(t, st, "acorn-kids", "2026-03-10"))
	ids, err := st.SMembers(ctx, DateIndexKey("2026-03-10"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID}, ids)
}

func TestConcurrentCreatesNeverOvershootCapacity(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newTestService(t)

	// A generous retry bound so every worker resolves to a real outcome
	// (booked or capacity) instead of exhausting its attempts mid-storm.
	svc.opts.TxAttempts = 64

	const workers = 16
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrConcurrencyExhausted):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, workers, succeeded+rejected)
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, int64(4), counterValue(t, st, "acorn-kids", "2026-03-10"))

	ids, err := st.SMembers(ctx, DateIndexKey("2026-03-10"))
	require.NoError(t, err)
	assert.Len(t, ids, succeeded)
}

func TestCounterMatchesConfirmedBookings(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newTestService(t)

	b1, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)
	b2, err := svc.Create(ctx, createReq("acorn-kids", "2026-03-10"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createReq("acorn-kids", "2026-03-11"))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, b1.ID))

	assert.Equal(t, int64(1), counterValue(t, st, "acorn-kids", "2026-03-10"))
	assert.Equal(t, int64(1), counterValue(t, st, "acorn-kids", "2026-03-11"))

	ids, err := st.SMembers(ctx, DateIndexKey("2026-03-10"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b2.ID}, ids)
}
