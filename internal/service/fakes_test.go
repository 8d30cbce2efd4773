package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-seat-locking/internal/clock"
	"github.com/iliyamo/ticket-seat-locking/internal/config"
	"github.com/iliyamo/ticket-seat-locking/internal/model"
	"github.com/iliyamo/ticket-seat-locking/internal/pkg/metrics"
	"github.com/iliyamo/ticket-seat-locking/internal/queue"
	"github.com/iliyamo/ticket-seat-locking/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockSessions struct{ mock.Mock }

func (m *mockSessions) GetWithEvent(ctx context.Context, sessionID uint64) (*model.SessionWithEvent, error) {
	args := m.Called(ctx, sessionID)
	s, _ := args.Get(0).(*model.SessionWithEvent)
	return s, args.Error(1)
}

type mockTicketTypes struct{ mock.Mock }

func (m *mockTicketTypes) GetWithSession(ctx context.Context, id uint64) (*model.TicketTypeWithSession, error) {
	args := m.Called(ctx, id)
	tt, _ := args.Get(0).(*model.TicketTypeWithSession)
	return tt, args.Error(1)
}

func (m *mockTicketTypes) ListBySession(ctx context.Context, sessionID uint64) ([]model.TicketType, error) {
	args := m.Called(ctx, sessionID)
	tts, _ := args.Get(0).([]model.TicketType)
	return tts, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev queue.SeatLockEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// fakeSeats is an in-memory seats table with the same filtering rules as
// repository.SeatRepo.
type fakeSeats struct {
	mu    sync.Mutex
	rows  map[uint64]model.Seat
	order []uint64

	markLockedErr    error
	markAvailableErr error
}

func newFakeSeats(seats ...model.Seat) *fakeSeats {
	f := &fakeSeats{rows: make(map[uint64]model.Seat)}
	for _, s := range seats {
		f.rows[s.ID] = s
		f.order = append(f.order, s.ID)
	}
	return f
}

func (f *fakeSeats) get(id uint64) model.Seat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

func (f *fakeSeats) ListBySession(_ context.Context, sessionID uint64, ids []uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Seat
	for _, id := range ids {
		if s, ok := f.rows[id]; ok && s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSeats) ListByIDs(_ context.Context, ids []uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Seat
	for _, id := range ids {
		if s, ok := f.rows[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeats) ListAvailableByTicketType(_ context.Context, ticketTypeID uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Seat
	for _, id := range f.order {
		s := f.rows[id]
		if s.TicketTypeID == ticketTypeID && s.Status == model.SeatAvailable {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeats) MarkLocked(_ context.Context, ids []uint64, ownerID uint64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markLockedErr != nil {
		return f.markLockedErr
	}
	for _, id := range ids {
		s := f.rows[id]
		owner, exp := ownerID, expiresAt
		s.Status, s.LockedBy, s.LockExpiresAt = model.SeatLocked, &owner, &exp
		f.rows[id] = s
	}
	return nil
}

func (f *fakeSeats) MarkAvailable(_ context.Context, ids []uint64, ownerID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markAvailableErr != nil {
		return 0, f.markAvailableErr
	}
	var n int64
	for _, id := range ids {
		s, ok := f.rows[id]
		if !ok || s.Status != model.SeatLocked || s.LockedBy == nil || *s.LockedBy != ownerID {
			continue
		}
		s.Status, s.LockedBy, s.LockExpiresAt = model.SeatAvailable, nil, nil
		f.rows[id] = s
		n++
	}
	return n, nil
}

// faultyLocks wraps a real LockStore and fails selected calls.
type faultyLocks struct {
	LockStore
	putErr    error
	createErr error
	failAfter int

	mu      sync.Mutex
	creates int
}

func (f *faultyLocks) CreateSeatLock(ctx context.Context, seatID uint64, lock model.SeatLock, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	f.creates++
	n := f.creates
	f.mu.Unlock()
	if f.createErr != nil && n > f.failAfter {
		return false, f.createErr
	}
	return f.LockStore.CreateSeatLock(ctx, seatID, lock, ttl)
}

func (f *faultyLocks) PutUserLock(ctx context.Context, ownerID uint64, lockID string, entry model.UserLockEntry, ttl time.Duration) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.LockStore.PutUserLock(ctx, ownerID, lockID, entry, ttl)
}

type fixture struct {
	mr          *miniredis.Miniredis
	rdb         *redis.Client
	locks       *store.LockStore
	sessions    *mockSessions
	ticketTypes *mockTicketTypes
	seats       *fakeSeats
	clock       *clock.Fixed
	metrics     *metrics.Metrics
	cfg         config.LockConfig
}

const (
	sessionID    uint64 = 10
	ticketTypeID uint64 = 3
	alice        uint64 = 100
	bob          uint64 = 200
)

func seat(id uint64, row, number string) model.Seat {
	return model.Seat{
		ID:             id,
		SessionID:      sessionID,
		TicketTypeID:   ticketTypeID,
		RowLabel:       row,
		SeatNumber:     number,
		Status:         model.SeatAvailable,
		TicketTypeName: "Stalls",
		PriceCents:     3000,
		MaxPerOrder:    4,
	}
}

func openSession() *model.SessionWithEvent {
	return &model.SessionWithEvent{
		Session: model.Session{ID: sessionID, EventID: 1, StartsAt: t0.Add(72 * time.Hour)},
		Event: model.Event{
			ID:        1,
			Name:      "Spring Gala",
			SaleStart: t0.Add(-time.Hour),
			SaleEnd:   t0.Add(24 * time.Hour),
		},
	}
}

func newFixture(t *testing.T, seats ...model.Seat) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if len(seats) == 0 {
		seats = []model.Seat{seat(1, "A", "1"), seat(2, "A", "2"), seat(3, "A", "3"), seat(4, "A", "4")}
	}
	f := &fixture{
		mr:          mr,
		rdb:         rdb,
		locks:       store.NewLockStore(rdb),
		sessions:    &mockSessions{},
		ticketTypes: &mockTicketTypes{},
		seats:       newFakeSeats(seats...),
		clock:       clock.NewFixed(t0),
		metrics:     metrics.NewWithRegistry(prometheus.NewRegistry()),
		cfg:         config.LockConfig{HoldDuration: 10 * time.Minute, IndexGrace: time.Minute},
	}
	f.sessions.On("GetWithEvent", mock.Anything, sessionID).Return(openSession(), nil).Maybe()
	return f
}

func (f *fixture) service(opts ...LockOption) *LockService {
	return f.serviceWith(f.locks, opts...)
}

func (f *fixture) serviceWith(locks LockStore, opts ...LockOption) *LockService {
	base := []LockOption{WithClock(f.clock), WithMetrics(f.metrics)}
	return NewLockService(f.cfg, locks, f.sessions, f.seats, f.ticketTypes, append(base, opts...)...)
}

func (f *fixture) seatOwner(t *testing.T, seatID uint64) *model.SeatLock {
	t.Helper()
	lock, err := f.locks.GetSeatLock(context.Background(), seatID)
	require.NoError(t, err)
	return lock
}
