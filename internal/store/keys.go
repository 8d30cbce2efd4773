// Package store implements the Redis side of seat locking and inventory:
// per-seat lock entries, the per-user lock index and stock counters.
package store

import "strconv"

const (
	seatLockPrefix  = "seat_lock:"
	userLocksPrefix = "user_locks:"
	stockPrefix     = "stock:"
)

func seatLockKey(seatID uint64) string {
	return seatLockPrefix + strconv.FormatUint(seatID, 10)
}

func userLocksKey(ownerID uint64) string {
	return userLocksPrefix + strconv.FormatUint(ownerID, 10)
}

func stockKey(ticketTypeID uint64) string {
	return stockPrefix + strconv.FormatUint(ticketTypeID, 10)
}
