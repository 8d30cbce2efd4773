package handler

import (
	"context"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
)

// LockService is implemented by service.LockService.
type LockService interface {
	AcquireLocks(ctx context.Context, ownerID, sessionID uint64, seatIDs []uint64) (*model.LockReceipt, error)
	ReleaseLocks(ctx context.Context, ownerID uint64, lockID string) (*model.ReleaseResult, error)
	ListLocks(ctx context.Context, ownerID uint64) ([]model.LockSummary, error)
	AutoSelect(ctx context.Context, ownerID, ticketTypeID uint64, quantity int) (*model.LockReceipt, error)
}

// InventoryService is implemented by service.InventoryService.
type InventoryService interface {
	GetStock(ctx context.Context, ticketTypeID uint64) (int64, error)
	SetStock(ctx context.Context, ticketTypeID uint64, qty int64) error
	IncrementStock(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error)
	DecrementStock(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error)
}

// AvailabilityService is implemented by service.AvailabilityService.
type AvailabilityService interface {
	ForTicketType(ctx context.Context, ticketTypeID uint64) (*model.Availability, error)
	ForSession(ctx context.Context, sessionID uint64) ([]model.Availability, error)
}
