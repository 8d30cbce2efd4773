package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
)

// releaseScript deletes a seat lock only when both owner and lock ID match,
// so a hold that expired and was re-acquired by someone else survives a late
// release.  Returns 1 when deleted, 0 when held by someone else and -1 when
// the key is gone.
var releaseScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return -1
	end
	local lock = cjson.decode(raw)
	if lock.owner_id == tonumber(ARGV[1]) and lock.lock_id == ARGV[2] then
		redis.call('DEL', KEYS[1])
		return 1
	end
	return 0
`)

// moveScript rewrites a seat lock held by ARGV[1] with the value ARGV[2] and
// a TTL of ARGV[3] milliseconds.  Returns {1, previous lock id, previous
// PTTL} when moved, {0} when another owner holds it and {-1} when the key is
// gone.
var moveScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return {-1}
	end
	local lock = cjson.decode(raw)
	if lock.owner_id ~= tonumber(ARGV[1]) then
		return {0}
	end
	local pttl = redis.call('PTTL', KEYS[1])
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return {1, lock.lock_id, pttl}
`)

// LockStore keeps seat locks and user lock indexes in Redis.
type LockStore struct {
	rdb *redis.Client
}

// NewLockStore wraps an initialised client; the caller owns its lifecycle.
func NewLockStore(rdb *redis.Client) *LockStore { return &LockStore{rdb: rdb} }

// CreateSeatLock stores lock under the seat's key only if no entry exists.
// It reports whether this call created the entry.
func (s *LockStore) CreateSeatLock(ctx context.Context, seatID uint64, lock model.SeatLock, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(lock)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, seatLockKey(seatID), raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx seat %d: %w", seatID, err)
	}
	return ok, nil
}

// GetSeatLock returns the live lock on a seat, or nil when there is none.
func (s *LockStore) GetSeatLock(ctx context.Context, seatID uint64) (*model.SeatLock, error) {
	raw, err := s.rdb.Get(ctx, seatLockKey(seatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get seat lock %d: %w", seatID, err)
	}
	var lock model.SeatLock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil, fmt.Errorf("decode seat lock %d: %w", seatID, err)
	}
	return &lock, nil
}

// ReleaseSeatLock performs the owner-checked delete.  Both release and the
// rollback of a partial acquisition go through it.
func (s *LockStore) ReleaseSeatLock(ctx context.Context, seatID, ownerID uint64, lockID string) (model.LockRelease, error) {
	n, err := releaseScript.Run(ctx, s.rdb, []string{seatLockKey(seatID)},
		strconv.FormatUint(ownerID, 10), lockID).Int()
	if err != nil {
		return model.LockHeldByOther, fmt.Errorf("release seat lock %d: %w", seatID, err)
	}
	switch n {
	case 1:
		return model.LockDeleted, nil
	case -1:
		return model.LockAbsent, nil
	default:
		return model.LockHeldByOther, nil
	}
}

// MoveSeatLock hands a seat the caller already holds over to lock, whatever
// lock ID it was held under, and resets its TTL.  Nothing changes when the
// seat is free or held by another owner.
func (s *LockStore) MoveSeatLock(ctx context.Context, seatID uint64, lock model.SeatLock, ttl time.Duration) (model.SeatLockMove, error) {
	raw, err := json.Marshal(lock)
	if err != nil {
		return model.SeatLockMove{}, err
	}
	res, err := moveScript.Run(ctx, s.rdb, []string{seatLockKey(seatID)},
		strconv.FormatUint(lock.OwnerID, 10), raw, ttl.Milliseconds()).Slice()
	if err != nil {
		return model.SeatLockMove{}, fmt.Errorf("move seat lock %d: %w", seatID, err)
	}
	status, _ := res[0].(int64)
	switch status {
	case 1:
		if len(res) != 3 {
			return model.SeatLockMove{}, fmt.Errorf("move seat lock %d: unexpected reply %v", seatID, res)
		}
		prev, _ := res[1].(string)
		pttl, _ := res[2].(int64)
		return model.SeatLockMove{Moved: true, PrevLockID: prev, PrevTTL: time.Duration(pttl) * time.Millisecond}, nil
	case -1:
		return model.SeatLockMove{Absent: true}, nil
	default:
		return model.SeatLockMove{}, nil
	}
}

// LockedSeats returns the live locks among seatIDs in a single round trip.
// Seats without a lock are absent from the map.
func (s *LockStore) LockedSeats(ctx context.Context, seatIDs []uint64) (map[uint64]model.SeatLock, error) {
	out := make(map[uint64]model.SeatLock)
	if len(seatIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		keys[i] = seatLockKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget seat locks: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var lock model.SeatLock
		if err := json.Unmarshal([]byte(str), &lock); err != nil {
			return nil, fmt.Errorf("decode seat lock %d: %w", seatIDs[i], err)
		}
		out[seatIDs[i]] = lock
	}
	return out, nil
}

// PutUserLock writes one lock index entry and resets the TTL of the owner's
// whole index hash.
func (s *LockStore) PutUserLock(ctx context.Context, ownerID uint64, lockID string, entry model.UserLockEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := userLocksKey(ownerID)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, lockID, raw)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write lock index %s: %w", key, err)
	}
	return nil
}

// GetUserLock returns one index entry, or nil when the lock ID is unknown.
func (s *LockStore) GetUserLock(ctx context.Context, ownerID uint64, lockID string) (*model.UserLockEntry, error) {
	raw, err := s.rdb.HGet(ctx, userLocksKey(ownerID), lockID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget lock %s: %w", lockID, err)
	}
	var entry model.UserLockEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode lock %s: %w", lockID, err)
	}
	return &entry, nil
}

// ListUserLocks returns every index entry of the owner keyed by lock ID.
func (s *LockStore) ListUserLocks(ctx context.Context, ownerID uint64) (map[string]model.UserLockEntry, error) {
	fields, err := s.rdb.HGetAll(ctx, userLocksKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall locks of %d: %w", ownerID, err)
	}
	out := make(map[string]model.UserLockEntry, len(fields))
	for lockID, raw := range fields {
		var entry model.UserLockEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode lock %s: %w", lockID, err)
		}
		out[lockID] = entry
	}
	return out, nil
}

// DeleteUserLock removes one index entry.
func (s *LockStore) DeleteUserLock(ctx context.Context, ownerID uint64, lockID string) error {
	if err := s.rdb.HDel(ctx, userLocksKey(ownerID), lockID).Err(); err != nil {
		return fmt.Errorf("hdel lock %s: %w", lockID, err)
	}
	return nil
}
