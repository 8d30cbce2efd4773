package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// decrementScript is the check-and-decrement primitive.  Running it server
// side makes the sufficiency check and the DECRBY one indivisible step, so
// concurrent buyers can never drive a counter below zero.
var decrementScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	local qty = tonumber(ARGV[1])
	if current >= qty then
		return redis.call('DECRBY', KEYS[1], qty)
	end
	return -1
`)

// InsufficientStock is returned by Decrement when the counter is too low.
const InsufficientStock int64 = -1

// InventoryStore keeps per-ticket-type stock counters in Redis.
type InventoryStore struct {
	rdb *redis.Client
}

func NewInventoryStore(rdb *redis.Client) *InventoryStore { return &InventoryStore{rdb: rdb} }

// Get returns the counter; a missing key reads as zero.
func (s *InventoryStore) Get(ctx context.Context, ticketTypeID uint64) (int64, error) {
	n, err := s.rdb.Get(ctx, stockKey(ticketTypeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stock %d: %w", ticketTypeID, err)
	}
	return n, nil
}

func (s *InventoryStore) Set(ctx context.Context, ticketTypeID uint64, qty int64) error {
	if err := s.rdb.Set(ctx, stockKey(ticketTypeID), qty, 0).Err(); err != nil {
		return fmt.Errorf("set stock %d: %w", ticketTypeID, err)
	}
	return nil
}

// Increment atomically adds qty and returns the new value.
func (s *InventoryStore) Increment(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error) {
	n, err := s.rdb.IncrBy(ctx, stockKey(ticketTypeID), qty).Result()
	if err != nil {
		return 0, fmt.Errorf("incrby stock %d: %w", ticketTypeID, err)
	}
	return n, nil
}

// Decrement subtracts qty when enough stock remains and returns the new
// value, or InsufficientStock leaving the counter untouched.
func (s *InventoryStore) Decrement(ctx context.Context, ticketTypeID uint64, qty int64) (int64, error) {
	n, err := decrementScript.Run(ctx, s.rdb, []string{stockKey(ticketTypeID)}, qty).Int64()
	if err != nil {
		return 0, fmt.Errorf("decrement stock %d: %w", ticketTypeID, err)
	}
	return n, nil
}
