// Package service contains the seat locking, seat selection, inventory and
// availability logic.  Storage sits behind the interfaces in ports.go so the
// same code runs against Redis/MySQL in production and fakes in tests.
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-seat-locking/internal/clock"
	"github.com/iliyamo/ticket-seat-locking/internal/config"
	"github.com/iliyamo/ticket-seat-locking/internal/model"
	"github.com/iliyamo/ticket-seat-locking/internal/pkg/logger"
	"github.com/iliyamo/ticket-seat-locking/internal/pkg/metrics"
	"github.com/iliyamo/ticket-seat-locking/internal/queue"
	"github.com/iliyamo/ticket-seat-locking/internal/repository"
)

// LockService acquires, releases and lists temporary seat holds.  A seat
// lock entry in the shared store is the only thing that makes a hold
// exclusive; the seat rows in MySQL mirror it for reporting and are written
// only after the store step succeeded.
type LockService struct {
	locks       LockStore
	sessions    SessionRepository
	seats       SeatRepository
	ticketTypes TicketTypeRepository

	publisher EventPublisher
	clock     clock.Clock
	metrics   *metrics.Metrics
	newLockID func() string

	hold  time.Duration
	grace time.Duration
}

// LockOption customises a LockService.
type LockOption func(*LockService)

func WithClock(c clock.Clock) LockOption {
	return func(s *LockService) { s.clock = c }
}

func WithMetrics(m *metrics.Metrics) LockOption {
	return func(s *LockService) { s.metrics = m }
}

func WithPublisher(p EventPublisher) LockOption {
	return func(s *LockService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLockIDs replaces the UUID generator, mostly for tests.
func WithLockIDs(gen func() string) LockOption {
	return func(s *LockService) { s.newLockID = gen }
}

// NewLockService wires a LockService.  cfg supplies the hold duration and
// the extra lifetime of the per-user index.
func NewLockService(cfg config.LockConfig, locks LockStore, sessions SessionRepository, seats SeatRepository, ticketTypes TicketTypeRepository, opts ...LockOption) *LockService {
	s := &LockService{
		locks:       locks,
		sessions:    sessions,
		seats:       seats,
		ticketTypes: ticketTypes,
		publisher:   nopPublisher{},
		clock:       clock.NewSystem(),
		newLockID:   uuid.NewString,
		hold:        cfg.HoldDuration,
		grace:       cfg.IndexGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AcquireLocks places a hold on every seat in seatIDs for ownerID.  Seats the
// owner already holds under another lock move into the new one and take its
// expiry.  If any seat is held by someone else, the attempt is rolled back
// and SEAT_LOCKED is returned; nothing is persisted in that case.
func (s *LockService) AcquireLocks(ctx context.Context, ownerID, sessionID uint64, seatIDs []uint64) (receipt *model.LockReceipt, err error) {
	defer s.observe("acquire", time.Now())
	defer func() { s.countAttempt(err) }()

	a := s.newAttempt(ownerID, sessionID, seatIDs)
	if err := a.run(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, queue.SeatLockEvent{
		Type:       queue.SeatLocked,
		LockID:     a.lockID,
		OwnerID:    ownerID,
		SessionID:  sessionID,
		SeatIDs:    a.seatIDs,
		ExpiresAt:  a.expiresAt,
		OccurredAt: a.now,
	})

	return &model.LockReceipt{
		LockID:    a.lockID,
		SessionID: sessionID,
		Seats:     orderedViews(a.seats, a.seatIDs),
		ExpiresAt: a.expiresAt,
	}, nil
}

// ReleaseLocks gives up the hold identified by lockID.  Seats whose lock
// expired and was taken by someone else in the meantime are left alone and
// reported as skipped.  A second release of the same lockID returns
// LOCK_NOT_FOUND.
func (s *LockService) ReleaseLocks(ctx context.Context, ownerID uint64, lockID string) (*model.ReleaseResult, error) {
	defer s.observe("release", time.Now())

	entry, err := s.locks.GetUserLock(ctx, ownerID, lockID)
	if err != nil {
		return nil, internal("read lock index", err, zap.Uint64("owner_id", ownerID), zap.String("lock_id", lockID))
	}
	if entry == nil {
		return nil, withDetail(ErrLockNotFound, "lock %s not found", lockID)
	}

	res := &model.ReleaseResult{LockID: lockID, Released: []uint64{}, Skipped: []uint64{}}
	for _, seatID := range entry.SeatIDs {
		outcome, err := s.locks.ReleaseSeatLock(ctx, seatID, ownerID, lockID)
		if err != nil {
			return nil, internal("release seat lock", err,
				zap.Uint64("owner_id", ownerID), zap.String("lock_id", lockID), zap.Uint64("seat_id", seatID))
		}
		if outcome == model.LockHeldByOther {
			res.Skipped = append(res.Skipped, seatID)
			continue
		}
		res.Released = append(res.Released, seatID)
	}

	if _, err := s.seats.MarkAvailable(ctx, res.Released, ownerID); err != nil {
		return nil, internal("revert seat rows", err, zap.Uint64("owner_id", ownerID), zap.String("lock_id", lockID))
	}
	if err := s.locks.DeleteUserLock(ctx, ownerID, lockID); err != nil {
		return nil, internal("delete lock index", err, zap.Uint64("owner_id", ownerID), zap.String("lock_id", lockID))
	}

	s.publish(ctx, queue.SeatLockEvent{
		Type:       queue.SeatReleased,
		LockID:     lockID,
		OwnerID:    ownerID,
		SessionID:  entry.SessionID,
		SeatIDs:    res.Released,
		OccurredAt: s.clock.Now(),
	})
	return res, nil
}

// ListLocks returns the owner's live holds, newest expiry last.  Index
// entries past their expiry are pruned on the way.
func (s *LockService) ListLocks(ctx context.Context, ownerID uint64) ([]model.LockSummary, error) {
	defer s.observe("list", time.Now())

	entries, err := s.locks.ListUserLocks(ctx, ownerID)
	if err != nil {
		return nil, internal("list lock index", err, zap.Uint64("owner_id", ownerID))
	}

	now := s.clock.Now()
	live := make(map[string]model.UserLockEntry, len(entries))
	var seatIDs []uint64
	for lockID, e := range entries {
		if !now.Before(e.ExpiresAt) {
			if err := s.locks.DeleteUserLock(ctx, ownerID, lockID); err != nil {
				logger.Warn("prune expired lock entry failed",
					zap.Uint64("owner_id", ownerID), zap.String("lock_id", lockID), zap.Error(err))
			}
			continue
		}
		live[lockID] = e
		seatIDs = append(seatIDs, e.SeatIDs...)
	}

	out := make([]model.LockSummary, 0, len(live))
	if len(live) == 0 {
		return out, nil
	}
	seats, err := s.seats.ListByIDs(ctx, dedupe(seatIDs))
	if err != nil {
		return nil, internal("load locked seats", err, zap.Uint64("owner_id", ownerID))
	}
	for lockID, e := range live {
		out = append(out, model.LockSummary{
			LockID:    lockID,
			SessionID: e.SessionID,
			Seats:     orderedViews(seats, e.SeatIDs),
			ExpiresAt: e.ExpiresAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].LockID < out[j].LockID
	})
	return out, nil
}

// AutoSelect picks quantity seats of a ticket type, preferring a run of
// consecutive numbers in one row, and locks them through AcquireLocks.
func (s *LockService) AutoSelect(ctx context.Context, ownerID, ticketTypeID uint64, quantity int) (receipt *model.LockReceipt, err error) {
	defer s.observe("auto_select", time.Now())
	forwarded := false
	defer func() {
		if !forwarded {
			s.countAttempt(err)
		}
	}()

	if quantity <= 0 {
		return nil, withDetail(ErrInvalidQuantity, "quantity must be positive, got %d", quantity)
	}
	tt, err := s.ticketTypes.GetWithSession(ctx, ticketTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketTypeNotFound) {
			return nil, withDetail(ErrTicketTypeNotFound, "ticket type %d not found", ticketTypeID)
		}
		return nil, internal("load ticket type", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}

	candidates, err := s.seats.ListAvailableByTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, internal("list available seats", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	ids := make([]uint64, len(candidates))
	for i, seat := range candidates {
		ids[i] = seat.ID
	}
	held, err := s.locks.LockedSeats(ctx, ids)
	if err != nil {
		return nil, internal("read seat locks", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	pool := make([]model.Seat, 0, len(candidates))
	for _, seat := range candidates {
		if _, ok := held[seat.ID]; !ok {
			pool = append(pool, seat)
		}
	}

	picked, err := SelectContiguous(pool, quantity)
	if err != nil {
		return nil, err
	}
	pickedIDs := make([]uint64, len(picked))
	for i, seat := range picked {
		pickedIDs[i] = seat.ID
	}
	forwarded = true
	return s.AcquireLocks(ctx, ownerID, tt.SessionID, pickedIDs)
}

func (s *LockService) publish(ctx context.Context, ev queue.SeatLockEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Warn("publish seat lock event failed",
			zap.String("type", ev.Type), zap.String("lock_id", ev.LockID), zap.Error(err))
	}
}

func (s *LockService) observe(op string, began time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.LockOperationDuration.WithLabelValues(op).Observe(time.Since(began).Seconds())
}

func (s *LockService) countAttempt(err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(CodeOf(err))
	}
	s.metrics.SeatLockAttempts.WithLabelValues(result).Inc()
}

func checkSaleWindow(ev model.Event, now time.Time) error {
	if ev.SaleOpen(now) {
		return nil
	}
	if now.Before(ev.SaleStart) {
		return withDetail(ErrSaleNotStarted, "sale for %q opens at %s", ev.Name, ev.SaleStart.Format(time.RFC3339))
	}
	return withDetail(ErrSaleEnded, "sale for %q closed at %s", ev.Name, ev.SaleEnd.Format(time.RFC3339))
}

// checkSeats rejects sold seats and enforces the per-order limit of every
// ticket type among the requested seats.  A limit of zero means unlimited.
func checkSeats(seats []model.Seat) error {
	type tally struct {
		name  string
		max   int
		count int
	}
	counts := make(map[uint64]*tally)
	for _, seat := range seats {
		if seat.Status == model.SeatSold {
			return withDetail(ErrInvalidSeats, "seat %s-%s is already sold", seat.RowLabel, seat.SeatNumber)
		}
		t, ok := counts[seat.TicketTypeID]
		if !ok {
			t = &tally{name: seat.TicketTypeName, max: seat.MaxPerOrder}
			counts[seat.TicketTypeID] = t
		}
		t.count++
	}
	for _, t := range counts {
		if t.max > 0 && t.count > t.max {
			return withDetail(ErrExceedLimit, "at most %d %q seats per order, requested %d", t.max, t.name, t.count)
		}
	}
	return nil
}

// dedupe drops repeated ids keeping first occurrence order.
func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// orderedViews projects seats in the order of ids, skipping unknown ids.
func orderedViews(seats []model.Seat, ids []uint64) []model.SeatView {
	byID := make(map[uint64]model.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}
	out := make([]model.SeatView, 0, len(ids))
	for _, id := range ids {
		if seat, ok := byID[id]; ok {
			out = append(out, seat.View())
		}
	}
	return out
}
