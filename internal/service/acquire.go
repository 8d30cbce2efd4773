package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
	"github.com/iliyamo/ticket-seat-locking/internal/pkg/logger"
	"github.com/iliyamo/ticket-seat-locking/internal/repository"
)

// acquireState is the phase an acquisition attempt is in.
type acquireState int

const (
	stateValidating acquireState = iota
	stateAcquiring
	statePersisting
	stateCommitted
	stateRolledBack
)

func (s acquireState) String() string {
	switch s {
	case stateValidating:
		return "validating"
	case stateAcquiring:
		return "acquiring"
	case statePersisting:
		return "persisting"
	case stateCommitted:
		return "committed"
	case stateRolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("acquireState(%d)", int(s))
}

// acquireAttempt takes seat locks one by one and remembers, in order, the
// ones it created and the ones it took over from an earlier hold of the same
// owner.  Any failure after the first lock runs the same rollback over those
// lists, so an attempt either commits every seat under its own lock ID or
// leaves the store and the seat rows as it found them.
type acquireAttempt struct {
	svc       *LockService
	ownerID   uint64
	sessionID uint64
	requested []uint64
	now       time.Time

	// Filled in by validate.
	seatIDs []uint64
	seats   []model.Seat

	lockID    string
	expiresAt time.Time

	state    acquireState
	acquired []uint64
	moved    []movedSeat
	marked   bool
}

// movedSeat is a seat the owner already held under prevLockID before this
// attempt re-pointed it.
type movedSeat struct {
	seatID     uint64
	prevLockID string
	prevTTL    time.Duration
}

func (s *LockService) newAttempt(ownerID, sessionID uint64, seatIDs []uint64) *acquireAttempt {
	return &acquireAttempt{
		svc:       s,
		ownerID:   ownerID,
		sessionID: sessionID,
		requested: seatIDs,
		now:       s.clock.Now(),
	}
}

func (a *acquireAttempt) run(ctx context.Context) error {
	a.state = stateValidating
	if err := a.validate(ctx); err != nil {
		return err
	}
	a.lockID = a.svc.newLockID()
	a.expiresAt = a.now.Add(a.svc.hold)

	a.state = stateAcquiring
	if err := a.lockSeats(ctx); err != nil {
		a.rollback(ctx)
		return err
	}

	a.state = statePersisting
	if err := a.persist(ctx); err != nil {
		a.rollback(ctx)
		return err
	}

	a.state = stateCommitted
	a.detachMoved(ctx)
	return nil
}

// validate checks the sale window, the seat list and the per-order limits.
// It touches neither the lock store nor the seat rows.
func (a *acquireAttempt) validate(ctx context.Context) error {
	s := a.svc
	sess, err := s.sessions.GetWithEvent(ctx, a.sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return withDetail(ErrSessionNotFound, "session %d not found", a.sessionID)
		}
		return internal("load session", err, zap.Uint64("session_id", a.sessionID))
	}
	if err := checkSaleWindow(sess.Event, a.now); err != nil {
		return err
	}

	ids := dedupe(a.requested)
	if len(ids) == 0 {
		return withDetail(ErrInvalidSeats, "no seats requested")
	}
	seats, err := s.seats.ListBySession(ctx, a.sessionID, ids)
	if err != nil {
		return internal("load seats", err, zap.Uint64("session_id", a.sessionID))
	}
	if len(seats) != len(ids) {
		return withDetail(ErrInvalidSeats, "%d of %d seats do not belong to session %d",
			len(ids)-len(seats), len(ids), a.sessionID)
	}
	if err := checkSeats(seats); err != nil {
		return err
	}
	a.seatIDs, a.seats = ids, seats
	return nil
}

func (a *acquireAttempt) lockSeats(ctx context.Context) error {
	s := a.svc
	lock := model.SeatLock{OwnerID: a.ownerID, SessionID: a.sessionID, LockID: a.lockID}
	for _, seatID := range a.seatIDs {
		created, err := s.locks.CreateSeatLock(ctx, seatID, lock, s.hold)
		if err != nil {
			return internal("create seat lock", err, a.fields(zap.Uint64("seat_id", seatID))...)
		}
		if created {
			a.acquired = append(a.acquired, seatID)
			continue
		}

		mv, err := s.locks.MoveSeatLock(ctx, seatID, lock, s.hold)
		if err != nil {
			return internal("move seat lock", err, a.fields(zap.Uint64("seat_id", seatID))...)
		}
		if mv.Moved {
			a.moved = append(a.moved, movedSeat{seatID: seatID, prevLockID: mv.PrevLockID, prevTTL: mv.PrevTTL})
			continue
		}
		if mv.Absent {
			// Expired between SETNX and the move; try once more.
			created, err = s.locks.CreateSeatLock(ctx, seatID, lock, s.hold)
			if err != nil {
				return internal("create seat lock", err, a.fields(zap.Uint64("seat_id", seatID))...)
			}
			if created {
				a.acquired = append(a.acquired, seatID)
				continue
			}
		}
		return withDetail(ErrSeatLocked, "seat %d is held by another buyer", seatID)
	}
	return nil
}

func (a *acquireAttempt) persist(ctx context.Context) error {
	s := a.svc
	held := make([]uint64, 0, len(a.acquired)+len(a.moved))
	held = append(held, a.acquired...)
	for _, m := range a.moved {
		held = append(held, m.seatID)
	}
	if err := s.seats.MarkLocked(ctx, held, a.ownerID, a.expiresAt); err != nil {
		return internal("mark seats locked", err, a.fields()...)
	}
	a.marked = len(held) > 0

	entry := model.UserLockEntry{SessionID: a.sessionID, SeatIDs: a.seatIDs, ExpiresAt: a.expiresAt}
	if err := s.locks.PutUserLock(ctx, a.ownerID, a.lockID, entry, s.hold+s.grace); err != nil {
		return internal("write lock index", err, a.fields()...)
	}
	return nil
}

// rollback releases every lock this attempt created, hands moved seats back
// to their previous lock with the TTL they had left, and reverts rows it
// marked.  It runs on a context detached from cancellation so an aborted
// request still cleans up.
func (a *acquireAttempt) rollback(ctx context.Context) {
	s := a.svc
	from := a.state
	ctx = context.WithoutCancel(ctx)

	for _, seatID := range a.acquired {
		if _, err := s.locks.ReleaseSeatLock(ctx, seatID, a.ownerID, a.lockID); err != nil {
			logger.Error("rollback seat lock failed", a.fields(zap.Uint64("seat_id", seatID), zap.Error(err))...)
		}
	}
	for _, m := range a.moved {
		ttl := m.prevTTL
		if ttl <= 0 {
			ttl = s.hold
		}
		prev := model.SeatLock{OwnerID: a.ownerID, SessionID: a.sessionID, LockID: m.prevLockID}
		if _, err := s.locks.MoveSeatLock(ctx, m.seatID, prev, ttl); err != nil {
			logger.Error("restore seat lock failed", a.fields(zap.Uint64("seat_id", m.seatID), zap.Error(err))...)
		}
		if a.marked {
			if err := s.seats.MarkLocked(ctx, []uint64{m.seatID}, a.ownerID, a.now.Add(ttl)); err != nil {
				logger.Error("restore seat row failed", a.fields(zap.Uint64("seat_id", m.seatID), zap.Error(err))...)
			}
		}
	}
	if a.marked && len(a.acquired) > 0 {
		if _, err := s.seats.MarkAvailable(ctx, a.acquired, a.ownerID); err != nil {
			logger.Error("rollback seat rows failed", a.fields(zap.Error(err))...)
		}
	}
	undone := len(a.acquired) + len(a.moved)
	if s.metrics != nil && undone > 0 {
		s.metrics.SeatLockRollbacks.Add(float64(undone))
	}

	a.state = stateRolledBack
	logger.Debug("seat lock attempt rolled back",
		a.fields(zap.Stringer("from", from), zap.Int("seats", undone))...)
}

// detachMoved drops moved seats from the index entries of the locks they
// came from; an entry left without seats is deleted.  The new lock is
// already committed, so failures are only logged: a stale entry can list a
// seat but can never release it, because release checks the lock ID.
func (a *acquireAttempt) detachMoved(ctx context.Context) {
	if len(a.moved) == 0 {
		return
	}
	s := a.svc
	byLock := make(map[string]map[uint64]struct{})
	for _, m := range a.moved {
		if byLock[m.prevLockID] == nil {
			byLock[m.prevLockID] = make(map[uint64]struct{})
		}
		byLock[m.prevLockID][m.seatID] = struct{}{}
	}

	for prevID, gone := range byLock {
		fields := a.fields(zap.String("prev_lock_id", prevID))
		entry, err := s.locks.GetUserLock(ctx, a.ownerID, prevID)
		if err != nil {
			logger.Warn("read previous lock index failed", append(fields, zap.Error(err))...)
			continue
		}
		if entry == nil {
			continue
		}
		kept := make([]uint64, 0, len(entry.SeatIDs))
		for _, id := range entry.SeatIDs {
			if _, ok := gone[id]; !ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			err = s.locks.DeleteUserLock(ctx, a.ownerID, prevID)
		} else {
			entry.SeatIDs = kept
			err = s.locks.PutUserLock(ctx, a.ownerID, prevID, *entry, s.hold+s.grace)
		}
		if err != nil {
			logger.Warn("update previous lock index failed", append(fields, zap.Error(err))...)
		}
	}
}

func (a *acquireAttempt) fields(extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.Uint64("owner_id", a.ownerID),
		zap.Uint64("session_id", a.sessionID),
		zap.String("lock_id", a.lockID),
	}, extra...)
}
