package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
	"github.com/iliyamo/ticket-seat-locking/internal/queue"
	"github.com/iliyamo/ticket-seat-locking/internal/repository"
)

func TestAcquireLocks_Success(t *testing.T) {
	f := newFixture(t)
	svc := f.service(WithLockIDs(func() string { return "lock-1" }))
	ctx := context.Background()

	receipt, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{2, 1})
	require.NoError(t, err)

	assert.Equal(t, "lock-1", receipt.LockID)
	assert.Equal(t, sessionID, receipt.SessionID)
	assert.Equal(t, t0.Add(10*time.Minute), receipt.ExpiresAt)
	require.Len(t, receipt.Seats, 2)
	assert.Equal(t, uint64(2), receipt.Seats[0].ID)
	assert.Equal(t, "A", receipt.Seats[0].RowLabel)
	assert.Equal(t, "Stalls", receipt.Seats[0].TicketTypeName)

	for _, id := range []uint64{1, 2} {
		lock := f.seatOwner(t, id)
		require.NotNil(t, lock)
		assert.Equal(t, model.SeatLock{OwnerID: alice, SessionID: sessionID, LockID: "lock-1"}, *lock)
		assert.Equal(t, 10*time.Minute, f.mr.TTL(fmt.Sprintf("seat_lock:%d", id)))

		row := f.seats.get(id)
		assert.Equal(t, model.SeatLocked, row.Status)
		require.NotNil(t, row.LockedBy)
		assert.Equal(t, alice, *row.LockedBy)
		assert.Equal(t, receipt.ExpiresAt, *row.LockExpiresAt)
	}

	entry, err := f.locks.GetUserLock(ctx, alice, "lock-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []uint64{2, 1}, entry.SeatIDs)
	assert.Equal(t, 11*time.Minute, f.mr.TTL("user_locks:100"))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SeatLockAttempts.WithLabelValues("ok")))
}

func TestAcquireLocks_SaleWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want error
	}{
		{"before start", t0.Add(-2 * time.Hour), ErrSaleNotStarted},
		{"at start", t0.Add(-time.Hour), nil},
		{"at end", t0.Add(24 * time.Hour), ErrSaleEnded},
		{"after end", t0.Add(48 * time.Hour), ErrSaleEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.clock.Set(tt.now)
			_, err := f.service().AcquireLocks(context.Background(), alice, sessionID, []uint64{1})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.mr.Keys())
		})
	}
}

func TestAcquireLocks_SessionLookup(t *testing.T) {
	t.Run("missing session", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("GetWithEvent", mock.Anything, uint64(99)).Return(nil, repository.ErrSessionNotFound)

		_, err := f.service().AcquireLocks(context.Background(), alice, 99, []uint64{1})
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.Equal(t, CodeSessionNotFound, CodeOf(err))
	})

	t.Run("database failure is internal", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("too many connections")
		f.sessions.On("GetWithEvent", mock.Anything, uint64(98)).Return(nil, boom)

		_, err := f.service().AcquireLocks(context.Background(), alice, 98, []uint64{1})
		assert.ErrorIs(t, err, ErrInternal)
		assert.ErrorIs(t, err, boom)
	})
}

func TestAcquireLocks_InvalidSeats(t *testing.T) {
	other := seat(50, "Z", "1")
	other.SessionID = sessionID + 1

	tests := []struct {
		name string
		ids  []uint64
	}{
		{"empty", nil},
		{"unknown seat", []uint64{1, 999}},
		{"seat of another session", []uint64{1, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, seat(1, "A", "1"), seat(2, "A", "2"), other)
			_, err := f.service().AcquireLocks(context.Background(), alice, sessionID, tt.ids)
			assert.ErrorIs(t, err, ErrInvalidSeats)
			assert.Empty(t, f.mr.Keys())
		})
	}

	t.Run("sold seat", func(t *testing.T) {
		sold := seat(7, "B", "1")
		sold.Status = model.SeatSold
		f := newFixture(t, seat(1, "A", "1"), sold)
		_, err := f.service().AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 7})
		assert.ErrorIs(t, err, ErrInvalidSeats)
		assert.Empty(t, f.mr.Keys())
	})
}

func TestAcquireLocks_DuplicateIDsCollapse(t *testing.T) {
	f := newFixture(t)
	receipt, err := f.service().AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 1, 1})
	require.NoError(t, err)
	assert.Len(t, receipt.Seats, 1)
}

func TestAcquireLocks_ExceedLimitHasNoSideEffects(t *testing.T) {
	seats := []model.Seat{seat(1, "A", "1"), seat(2, "A", "2"), seat(3, "A", "3")}
	for i := range seats {
		seats[i].MaxPerOrder = 2
	}
	f := newFixture(t, seats...)

	_, err := f.service().AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 2, 3})
	assert.ErrorIs(t, err, ErrExceedLimit)
	assert.Empty(t, f.mr.Keys())
	for _, id := range []uint64{1, 2, 3} {
		assert.Equal(t, model.SeatAvailable, f.seats.get(id).Status)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SeatLockAttempts.WithLabelValues("EXCEED_LIMIT")))
}

func TestAcquireLocks_LimitIsPerTicketType(t *testing.T) {
	box := seat(5, "BOX", "1")
	box.TicketTypeID = 4
	box.MaxPerOrder = 1
	f := newFixture(t, seat(1, "A", "1"), seat(2, "A", "2"), box)

	_, err := f.service().AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 2, 5})
	assert.NoError(t, err)
}

func TestAcquireLocks_ConflictRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service()

	bobReceipt, err := svc.AcquireLocks(ctx, bob, sessionID, []uint64{2})
	require.NoError(t, err)

	_, err = svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 2, 3})
	assert.ErrorIs(t, err, ErrSeatLocked)

	assert.Nil(t, f.seatOwner(t, 1), "seat locked before the conflict must be rolled back")
	assert.Nil(t, f.seatOwner(t, 3))
	held := f.seatOwner(t, 2)
	require.NotNil(t, held)
	assert.Equal(t, bob, held.OwnerID)
	assert.Equal(t, bobReceipt.LockID, held.LockID)

	assert.Equal(t, model.SeatAvailable, f.seats.get(1).Status)
	assert.False(t, f.mr.Exists("user_locks:100"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SeatLockRollbacks))
}

func sequentialLockIDs(ids ...string) LockOption {
	return WithLockIDs(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	})
}

func TestAcquireLocks_RelockByOwnerIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(sequentialLockIDs("first", "second"))

	_, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	receipt, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "second", receipt.LockID)
	assert.Equal(t, []uint64{1, 2}, viewIDs(receipt.Seats))
	assert.Equal(t, t0.Add(time.Minute+f.cfg.HoldDuration), receipt.ExpiresAt)

	for _, id := range []uint64{1, 2} {
		assert.Equal(t, "second", f.seatOwner(t, id).LockID)
		assert.Equal(t, receipt.ExpiresAt, *f.seats.get(id).LockExpiresAt)
	}
	assert.Equal(t, f.cfg.HoldDuration, f.mr.TTL("seat_lock:1"))

	first, err := f.locks.GetUserLock(ctx, alice, "first")
	require.NoError(t, err)
	assert.Nil(t, first, "an index entry left without seats is dropped")

	locks, err := svc.ListLocks(ctx, alice)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "second", locks[0].LockID)
}

func TestAcquireLocks_RelockedSeatsFollowTheNewLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(sequentialLockIDs("first", "second"))

	_, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 3})
	require.NoError(t, err)
	_, err = svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 2})
	require.NoError(t, err)

	first, err := f.locks.GetUserLock(ctx, alice, "first")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, []uint64{3}, first.SeatIDs)

	res, err := svc.ReleaseLocks(ctx, alice, "second")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2}, res.Released)
	assert.Empty(t, res.Skipped)
	for _, id := range []uint64{1, 2} {
		assert.Nil(t, f.seatOwner(t, id), "seat %d still locked", id)
		assert.Equal(t, model.SeatAvailable, f.seats.get(id).Status)
	}
	assert.Equal(t, "first", f.seatOwner(t, 3).LockID)

	res, err = svc.ReleaseLocks(ctx, alice, "first")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, res.Released)
	assert.False(t, f.mr.Exists("seat_lock:3"))
}

func TestAcquireLocks_ConflictRestoresMovedSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(sequentialLockIDs("first", "bobs", "second"))

	_, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1})
	require.NoError(t, err)
	_, err = svc.AcquireLocks(ctx, bob, sessionID, []uint64{3})
	require.NoError(t, err)
	f.mr.FastForward(2 * time.Minute)

	_, err = svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 3})
	assert.ErrorIs(t, err, ErrSeatLocked)

	assert.Equal(t, "first", f.seatOwner(t, 1).LockID)
	assert.Equal(t, 8*time.Minute, f.mr.TTL("seat_lock:1"))
	first, err := f.locks.GetUserLock(ctx, alice, "first")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, []uint64{1}, first.SeatIDs)
	second, err := f.locks.GetUserLock(ctx, alice, "second")
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, bob, f.seatOwner(t, 3).OwnerID)
}

func TestAcquireAttempt_ValidationFailureTouchesNothing(t *testing.T) {
	f := newFixture(t)
	svc := f.service(WithLockIDs(func() string {
		t.Fatal("lock id generated for a request that failed validation")
		return ""
	}))

	a := svc.newAttempt(alice, sessionID, []uint64{1, 99})
	err := a.run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSeats)
	assert.Equal(t, stateValidating, a.state)
	assert.Empty(t, a.lockID)
	assert.Empty(t, a.acquired)
	assert.Empty(t, f.mr.Keys())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.SeatLockRollbacks))
}

func TestAcquireAttempt_Commits(t *testing.T) {
	f := newFixture(t)
	svc := f.service(WithLockIDs(func() string { return "only" }))

	a := svc.newAttempt(alice, sessionID, []uint64{2, 1, 2})
	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, stateCommitted, a.state)
	assert.Equal(t, []uint64{2, 1}, a.seatIDs)
	assert.Equal(t, []uint64{2, 1}, a.acquired)
	assert.Equal(t, t0.Add(f.cfg.HoldDuration), a.expiresAt)
}

func TestAcquireLocks_MutualExclusion(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	const buyers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uint64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(owner uint64) {
			defer wg.Done()
			_, err := svc.AcquireLocks(ctx, owner, sessionID, []uint64{1})
			if err == nil {
				mu.Lock()
				winners = append(winners, owner)
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrSeatLocked)
		}(uint64(1000 + i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, winners[0], f.seatOwner(t, 1).OwnerID)
}

func TestAcquireLocks_OverlappingRequestsNeverShareSeats(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uint64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(owner uint64) {
			defer wg.Done()
			if _, err := svc.AcquireLocks(ctx, owner, sessionID, []uint64{1, 2, 3}); err == nil {
				mu.Lock()
				winners = append(winners, owner)
				mu.Unlock()
			}
		}(uint64(1000 + i))
	}
	wg.Wait()

	require.LessOrEqual(t, len(winners), 1)
	for _, id := range []uint64{1, 2, 3} {
		lock := f.seatOwner(t, id)
		if len(winners) == 0 {
			assert.Nil(t, lock, "losers must not leave locks behind")
			continue
		}
		require.NotNil(t, lock)
		assert.Equal(t, winners[0], lock.OwnerID)
	}
}

func TestAcquireLocks_ExpiredHoldCanBeReclaimed(t *testing.T) {
	f := newFixture(t)
	f.cfg.HoldDuration = time.Second
	svc := f.service()
	ctx := context.Background()

	_, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1})
	require.NoError(t, err)

	_, err = svc.AcquireLocks(ctx, bob, sessionID, []uint64{1})
	assert.ErrorIs(t, err, ErrSeatLocked)

	f.mr.FastForward(1100 * time.Millisecond)

	_, err = svc.AcquireLocks(ctx, bob, sessionID, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, bob, f.seatOwner(t, 1).OwnerID)
}

func TestAcquireLocks_PersistFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.seats.markLockedErr = errors.New("deadlock found")

	_, err := f.service().AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 2})
	assert.ErrorIs(t, err, ErrInternal)
	assert.Nil(t, f.seatOwner(t, 1))
	assert.Nil(t, f.seatOwner(t, 2))
	assert.False(t, f.mr.Exists("user_locks:100"))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SeatLockRollbacks))
}

func TestAcquireLocks_IndexFailureRevertsRows(t *testing.T) {
	f := newFixture(t)
	locks := &faultyLocks{LockStore: f.locks, putErr: errors.New("READONLY")}

	_, err := f.serviceWith(locks).AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 2})
	assert.ErrorIs(t, err, ErrInternal)
	for _, id := range []uint64{1, 2} {
		assert.Nil(t, f.seatOwner(t, id))
		assert.Equal(t, model.SeatAvailable, f.seats.get(id).Status)
	}
}

func TestAcquireLocks_StoreFailureMidwayRollsBack(t *testing.T) {
	f := newFixture(t)
	locks := &faultyLocks{LockStore: f.locks, createErr: errors.New("i/o timeout"), failAfter: 2}

	_, err := f.serviceWith(locks).AcquireLocks(context.Background(), alice, sessionID, []uint64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInternal)
	assert.Empty(t, f.mr.Keys())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SeatLockRollbacks))
}

func TestReleaseLocks(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	receipt, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 2})
	require.NoError(t, err)

	res, err := svc.ReleaseLocks(ctx, alice, receipt.LockID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2}, res.Released)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, f.mr.Keys())
	assert.Equal(t, model.SeatAvailable, f.seats.get(1).Status)
	assert.Nil(t, f.seats.get(1).LockedBy)

	_, err = svc.ReleaseLocks(ctx, alice, receipt.LockID)
	assert.ErrorIs(t, err, ErrLockNotFound)
}

func TestReleaseLocks_UnknownLock(t *testing.T) {
	f := newFixture(t)
	_, err := f.service().ReleaseLocks(context.Background(), alice, "nope")
	assert.ErrorIs(t, err, ErrLockNotFound)
}

func TestReleaseLocks_OtherOwnersLockIsNotFound(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	receipt, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1})
	require.NoError(t, err)

	_, err = svc.ReleaseLocks(ctx, bob, receipt.LockID)
	assert.ErrorIs(t, err, ErrLockNotFound)
	assert.Equal(t, alice, f.seatOwner(t, 1).OwnerID)
}

func TestReleaseLocks_SkipsSeatsReacquiredByOthers(t *testing.T) {
	f := newFixture(t)
	f.cfg.HoldDuration = time.Second
	f.cfg.IndexGrace = time.Minute
	svc := f.service()
	ctx := context.Background()

	aliceReceipt, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1, 2})
	require.NoError(t, err)

	f.mr.FastForward(1100 * time.Millisecond)
	_, err = svc.AcquireLocks(ctx, bob, sessionID, []uint64{1})
	require.NoError(t, err)

	res, err := svc.ReleaseLocks(ctx, alice, aliceReceipt.LockID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, res.Skipped)
	assert.Equal(t, []uint64{2}, res.Released)

	assert.Equal(t, bob, f.seatOwner(t, 1).OwnerID)
	row := f.seats.get(1)
	require.NotNil(t, row.LockedBy)
	assert.Equal(t, bob, *row.LockedBy)
	assert.Equal(t, model.SeatAvailable, f.seats.get(2).Status)
}

func TestListLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := []string{"early", "late"}
	svc := f.service(WithLockIDs(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	_, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1})
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	_, err = svc.AcquireLocks(ctx, alice, sessionID, []uint64{2, 3})
	require.NoError(t, err)

	got, err := svc.ListLocks(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].LockID)
	assert.Equal(t, "late", got[1].LockID)
	require.Len(t, got[1].Seats, 2)
	assert.Equal(t, "2", got[1].Seats[0].SeatNumber)

	f.clock.Advance(6 * time.Minute)
	got, err = svc.ListLocks(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].LockID)

	entry, err := f.locks.GetUserLock(ctx, alice, "early")
	require.NoError(t, err)
	assert.Nil(t, entry, "expired entry is pruned")
}

func TestListLocks_Empty(t *testing.T) {
	f := newFixture(t)
	got, err := f.service().ListLocks(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAutoSelect(t *testing.T) {
	seats := []model.Seat{
		seat(1, "A", "1"), seat(2, "A", "2"), seat(3, "A", "3"),
		seat(4, "A", "4"), seat(5, "A", "5"),
	}
	ticketType := &model.TicketTypeWithSession{
		TicketType: model.TicketType{ID: ticketTypeID, SessionID: sessionID, Name: "Stalls", MaxPerOrder: 4},
	}

	t.Run("picks the first consecutive block", func(t *testing.T) {
		f := newFixture(t, seats...)
		f.ticketTypes.On("GetWithSession", mock.Anything, ticketTypeID).Return(ticketType, nil)

		receipt, err := f.service().AutoSelect(context.Background(), alice, ticketTypeID, 3)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3}, viewIDs(receipt.Seats))
	})

	t.Run("skips seats with a live lock", func(t *testing.T) {
		f := newFixture(t, seats...)
		f.ticketTypes.On("GetWithSession", mock.Anything, ticketTypeID).Return(ticketType, nil)
		ok, err := f.locks.CreateSeatLock(context.Background(), 2, model.SeatLock{OwnerID: bob, SessionID: sessionID, LockID: "x"}, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		receipt, err := f.service().AutoSelect(context.Background(), alice, ticketTypeID, 3)
		require.NoError(t, err)
		assert.Equal(t, []uint64{3, 4, 5}, viewIDs(receipt.Seats))
	})

	t.Run("not enough seats", func(t *testing.T) {
		f := newFixture(t, seats...)
		f.ticketTypes.On("GetWithSession", mock.Anything, ticketTypeID).Return(ticketType, nil)

		_, err := f.service().AutoSelect(context.Background(), alice, ticketTypeID, 6)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Empty(t, f.mr.Keys())
	})

	t.Run("unknown ticket type", func(t *testing.T) {
		f := newFixture(t, seats...)
		f.ticketTypes.On("GetWithSession", mock.Anything, uint64(77)).Return(nil, repository.ErrTicketTypeNotFound)

		_, err := f.service().AutoSelect(context.Background(), alice, 77, 1)
		assert.ErrorIs(t, err, ErrTicketTypeNotFound)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		f := newFixture(t, seats...)
		_, err := f.service().AutoSelect(context.Background(), alice, ticketTypeID, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		f.ticketTypes.AssertNotCalled(t, "GetWithSession", mock.Anything, mock.Anything)
	})

	t.Run("every outcome is counted once", func(t *testing.T) {
		f := newFixture(t, seats...)
		f.ticketTypes.On("GetWithSession", mock.Anything, ticketTypeID).Return(ticketType, nil)
		f.ticketTypes.On("GetWithSession", mock.Anything, uint64(77)).Return(nil, repository.ErrTicketTypeNotFound)
		svc := f.service()
		ctx := context.Background()

		_, err := svc.AutoSelect(ctx, alice, ticketTypeID, 0)
		require.Error(t, err)
		_, err = svc.AutoSelect(ctx, alice, 77, 1)
		require.Error(t, err)
		_, err = svc.AutoSelect(ctx, alice, ticketTypeID, 6)
		require.Error(t, err)
		_, err = svc.AutoSelect(ctx, alice, ticketTypeID, 2)
		require.NoError(t, err)

		attempts := f.metrics.SeatLockAttempts
		assert.Equal(t, 1.0, testutil.ToFloat64(attempts.WithLabelValues("INVALID_QUANTITY")))
		assert.Equal(t, 1.0, testutil.ToFloat64(attempts.WithLabelValues("TICKET_TYPE_NOT_FOUND")))
		assert.Equal(t, 1.0, testutil.ToFloat64(attempts.WithLabelValues("INSUFFICIENT_STOCK")))
		assert.Equal(t, 1.0, testutil.ToFloat64(attempts.WithLabelValues("ok")))
	})
}

func TestLockService_PublishesEvents(t *testing.T) {
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.SeatLockEvent) bool {
		return ev.Type == queue.SeatLocked && ev.OwnerID == alice
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.SeatLockEvent) bool {
		return ev.Type == queue.SeatReleased && len(ev.SeatIDs) == 1
	})).Return(errors.New("broker down")).Once()

	svc := f.service(WithPublisher(pub))
	ctx := context.Background()

	receipt, err := svc.AcquireLocks(ctx, alice, sessionID, []uint64{1})
	require.NoError(t, err)
	_, err = svc.ReleaseLocks(ctx, alice, receipt.LockID)
	require.NoError(t, err, "publish failures never fail the request")

	pub.AssertExpectations(t)
}

func TestAcquireState_String(t *testing.T) {
	assert.Equal(t, "validating", stateValidating.String())
	assert.Equal(t, "rolled_back", stateRolledBack.String())
	assert.Equal(t, "acquireState(9)", acquireState(9).String())
}

func viewIDs(views []model.SeatView) []uint64 {
	out := make([]uint64, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
