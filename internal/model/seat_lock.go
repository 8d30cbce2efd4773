package model

import "time"

// SeatLock is the value stored under a seat's lock key in Redis.  Its TTL is
// the hold duration; the entry's existence is the only thing that makes a
// hold exclusive.
type SeatLock struct {
	OwnerID   uint64 `json:"owner_id"`
	SessionID uint64 `json:"session_id"`
	LockID    string `json:"lock_id"`
}

// UserLockEntry is one field of a user's lock index hash, keyed by lock ID.
type UserLockEntry struct {
	SessionID uint64    `json:"session_id"`
	SeatIDs   []uint64  `json:"seat_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LockReceipt is returned by a successful acquisition.
type LockReceipt struct {
	LockID    string     `json:"lock_id"`
	SessionID uint64     `json:"session_id"`
	Seats     []SeatView `json:"seats"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// LockSummary is one live entry of a user's lock listing.
type LockSummary struct {
	LockID    string     `json:"lock_id"`
	SessionID uint64     `json:"session_id"`
	Seats     []SeatView `json:"seats"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ReleaseResult reports which seats a release actually freed.  Skipped seats
// had already expired into someone else's hold or were re-locked under a
// different lock ID.
type ReleaseResult struct {
	LockID   string   `json:"lock_id"`
	Released []uint64 `json:"released"`
	Skipped  []uint64 `json:"skipped"`
}

// LockRelease is the outcome of an owner-checked delete of one seat lock.
type LockRelease int

const (
	// LockDeleted means the entry belonged to the caller and was removed.
	LockDeleted LockRelease = iota
	// LockAbsent means the entry had already expired or been removed.
	LockAbsent
	// LockHeldByOther means the entry exists under another owner or lock ID.
	LockHeldByOther
)

// SeatLockMove is the outcome of re-pointing an owner's seat lock at another
// lock ID.  When Moved is set, PrevLockID and PrevTTL describe the lock it
// replaced; otherwise Absent tells an expired key from one held by another
// owner.
type SeatLockMove struct {
	Moved      bool
	Absent     bool
	PrevLockID string
	PrevTTL    time.Duration
}
