package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
)

// seatSelect joins every seat with the ticket-type fields the lock receipt
// and the per-order limit need.
const seatSelect = "SELECT st.id, st.session_id, st.ticket_type_id, st.row_label, st.seat_number, " +
	"st.status, st.locked_by, st.lock_expires_at, " +
	"tt.name AS ticket_type_name, tt.price_cents, tt.max_per_order " +
	"FROM seats st JOIN ticket_types tt ON tt.id = st.ticket_type_id "

// SeatRepo provides the seat queries and bulk status updates used by seat
// locking.  Status columns are only ever written after the matching Redis
// operation succeeded.
type SeatRepo struct {
	db *sqlx.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sqlx.DB) *SeatRepo { return &SeatRepo{db: db} }

// ListBySession returns the seats among ids that belong to sessionID.  Ids
// from another session or that do not exist are silently absent, so callers
// compare lengths.
func (r *SeatRepo) ListBySession(ctx context.Context, sessionID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(seatSelect+"WHERE st.session_id = ? AND st.id IN (?) ORDER BY st.id", sessionID, ids)
	if err != nil {
		return nil, err
	}
	var out []model.Seat
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list seats of session %d: %w", sessionID, err)
	}
	return out, nil
}

// ListByIDs returns the seats among ids regardless of session, ordered by id.
func (r *SeatRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(seatSelect+"WHERE st.id IN (?) ORDER BY st.id", ids)
	if err != nil {
		return nil, err
	}
	var out []model.Seat
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return out, nil
}

// ListAvailableByTicketType returns the seats of a ticket type whose
// persisted status is available, ordered by row then insertion.  Seat
// numbers are labels, so numeric ordering inside a row is left to the caller.
func (r *SeatRepo) ListAvailableByTicketType(ctx context.Context, ticketTypeID uint64) ([]model.Seat, error) {
	const q = seatSelect + "WHERE st.ticket_type_id = ? AND st.status = 'available' ORDER BY st.row_label, st.id"
	var out []model.Seat
	if err := r.db.SelectContext(ctx, &out, q, ticketTypeID); err != nil {
		return nil, fmt.Errorf("list available seats of ticket type %d: %w", ticketTypeID, err)
	}
	return out, nil
}

// MarkLocked flags the seats as locked by ownerID until expiresAt.
func (r *SeatRepo) MarkLocked(ctx context.Context, ids []uint64, ownerID uint64, expiresAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(
		"UPDATE seats SET status = 'locked', locked_by = ?, lock_expires_at = ? WHERE id IN (?)",
		ownerID, expiresAt.UTC(), ids,
	)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("mark seats locked: %w", err)
	}
	return nil
}

// MarkAvailable reverts locked seats to available, but only rows still
// locked by ownerID.  It returns the number of rows changed.
func (r *SeatRepo) MarkAvailable(ctx context.Context, ids []uint64, ownerID uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(
		"UPDATE seats SET status = 'available', locked_by = NULL, lock_expires_at = NULL "+
			"WHERE id IN (?) AND locked_by = ? AND status = 'locked'",
		ids, ownerID,
	)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("mark seats available: %w", err)
	}
	return res.RowsAffected()
}
