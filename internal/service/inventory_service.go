package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-seat-locking/internal/pkg/metrics"
	"github.com/iliyamo/ticket-seat-locking/internal/store"
)

// InventoryService exposes the atomic stock counters of ticket types.
// Counters never go below zero: Decrement checks and subtracts in one step
// inside the store.
type InventoryService struct {
	stock   InventoryStore
	metrics *metrics.Metrics
}

// NewInventoryService builds an InventoryService.  m may be nil.
func NewInventoryService(stock InventoryStore, m *metrics.Metrics) *InventoryService {
	return &InventoryService{stock: stock, metrics: m}
}

// GetStock returns the current counter; an unset counter reads as zero.
func (s *InventoryService) GetStock(ctx context.Context, ticketTypeID uint64) (int64, error) {
	n, err := s.stock.Get(ctx, ticketTypeID)
	if err != nil {
		return 0, internal("get stock", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	return n, nil
}

// SetStock overwrites the counter.  It is meant for seeding and admin
// corrections, not for concurrent use with Decrement.
func (s *InventoryService) SetStock(ctx context.Context, ticketTypeID uint64, qty int64) error {
	if qty < 0 {
		return withDetail(ErrInvalidQuantity, "stock cannot be negative, got %d", qty)
	}
	if err := s.stock.Set(ctx, ticketTypeID, qty); err != nil {
		return internal("set stock", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	return nil
}

// IncrementStock adds qty and returns the new counter.
func (s *InventoryService) IncrementStock(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, withDetail(ErrInvalidQuantity, "quantity must be positive, got %d", qty)
	}
	n, err := s.stock.Increment(ctx, ticketTypeID, qty)
	if err != nil {
		return 0, internal("increment stock", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	return n, nil
}

// DecrementStock subtracts qty when at least qty remains and returns the new
// counter.  Otherwise the counter is left untouched and INSUFFICIENT_STOCK is
// returned.
func (s *InventoryService) DecrementStock(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, withDetail(ErrInvalidQuantity, "quantity must be positive, got %d", qty)
	}
	n, err := s.stock.Decrement(ctx, ticketTypeID, qty)
	if err != nil {
		s.countDecrement("error")
		return 0, internal("decrement stock", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	if n == store.InsufficientStock {
		s.countDecrement("insufficient")
		return 0, withDetail(ErrInsufficientStock, "not enough stock for ticket type %d", ticketTypeID)
	}
	s.countDecrement("ok")
	return n, nil
}

func (s *InventoryService) countDecrement(result string) {
	if s.metrics != nil {
		s.metrics.StockDecrements.WithLabelValues(result).Inc()
	}
}
