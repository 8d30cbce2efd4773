// Package queue carries seat lock events over RabbitMQ: a publisher used by
// the lock service and a consumer that appends them to an audit log.
package queue

import "time"

// Event types published on the seat lock queue.
const (
	SeatLocked   = "seat.locked"
	SeatReleased = "seat.released"
)

// SeatLockEvent is published after a committed acquisition and after a
// release.  It has enough context for the audit consumer to write a line
// without going back to the database.
type SeatLockEvent struct {
	Type       string    `json:"type"`
	LockID     string    `json:"lock_id"`
	OwnerID    uint64    `json:"owner_id"`
	SessionID  uint64    `json:"session_id"`
	SeatIDs    []uint64  `json:"seat_ids"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
