package service

import (
	"context"
	"time"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
	"github.com/iliyamo/ticket-seat-locking/internal/queue"
)

// LockStore is the shared store holding seat locks and user lock indexes.
// store.LockStore implements it over Redis.
type LockStore interface {
	CreateSeatLock(ctx context.Context, seatID uint64, lock model.SeatLock, ttl time.Duration) (bool, error)
	GetSeatLock(ctx context.Context, seatID uint64) (*model.SeatLock, error)
	ReleaseSeatLock(ctx context.Context, seatID, ownerID uint64, lockID string) (model.LockRelease, error)
	MoveSeatLock(ctx context.Context, seatID uint64, lock model.SeatLock, ttl time.Duration) (model.SeatLockMove, error)
	LockedSeats(ctx context.Context, seatIDs []uint64) (map[uint64]model.SeatLock, error)
	PutUserLock(ctx context.Context, ownerID uint64, lockID string, entry model.UserLockEntry, ttl time.Duration) error
	GetUserLock(ctx context.Context, ownerID uint64, lockID string) (*model.UserLockEntry, error)
	ListUserLocks(ctx context.Context, ownerID uint64) (map[string]model.UserLockEntry, error)
	DeleteUserLock(ctx context.Context, ownerID uint64, lockID string) error
}

// InventoryStore holds the per-ticket-type stock counters.
type InventoryStore interface {
	Get(ctx context.Context, ticketTypeID uint64) (int64, error)
	Set(ctx context.Context, ticketTypeID uint64, qty int64) error
	Increment(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error)
	Decrement(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error)
}

type SessionRepository interface {
	GetWithEvent(ctx context.Context, sessionID uint64) (*model.SessionWithEvent, error)
}

type SeatRepository interface {
	ListBySession(ctx context.Context, sessionID uint64, ids []uint64) ([]model.Seat, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
	ListAvailableByTicketType(ctx context.Context, ticketTypeID uint64) ([]model.Seat, error)
	MarkLocked(ctx context.Context, ids []uint64, ownerID uint64, expiresAt time.Time) error
	MarkAvailable(ctx context.Context, ids []uint64, ownerID uint64) (int64, error)
}

type TicketTypeRepository interface {
	GetWithSession(ctx context.Context, id uint64) (*model.TicketTypeWithSession, error)
	ListBySession(ctx context.Context, sessionID uint64) ([]model.TicketType, error)
}

// EventPublisher announces lock lifecycle events.  Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SeatLockEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.SeatLockEvent) error { return nil }
