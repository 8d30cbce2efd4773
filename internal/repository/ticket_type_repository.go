package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
)

const ticketTypeColumns = "tt.id, tt.session_id, tt.name, tt.price_cents, tt.max_per_order, " +
	"tt.total_quantity, tt.reserved_quantity"

// TicketTypeRepo reads ticket types.  Counters are only read here; the order
// flow that advances reserved_quantity lives elsewhere.
type TicketTypeRepo struct {
	db *sqlx.DB
}

func NewTicketTypeRepo(db *sqlx.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

// GetWithSession loads a ticket type with its session and the event sale
// window.  It returns ErrTicketTypeNotFound if there is no matching row.
func (r *TicketTypeRepo) GetWithSession(ctx context.Context, id uint64) (*model.TicketTypeWithSession, error) {
	const q = "SELECT " + ticketTypeColumns + ", " +
		"s.id AS `session.id`, s.event_id AS `session.event_id`, s.starts_at AS `session.starts_at`, " +
		"e.id AS `event.id`, e.name AS `event.name`, " +
		"e.sale_start AS `event.sale_start`, e.sale_end AS `event.sale_end` " +
		"FROM ticket_types tt " +
		"JOIN sessions s ON s.id = tt.session_id " +
		"JOIN events e ON e.id = s.event_id " +
		"WHERE tt.id = ?"
	var out model.TicketTypeWithSession
	if err := r.db.GetContext(ctx, &out, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("load ticket type %d: %w", id, err)
	}
	return &out, nil
}

// ListBySession returns every ticket type of a session ordered by id.
func (r *TicketTypeRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.TicketType, error) {
	const q = "SELECT " + ticketTypeColumns + " FROM ticket_types tt WHERE tt.session_id = ? ORDER BY tt.id"
	var out []model.TicketType
	if err := r.db.SelectContext(ctx, &out, q, sessionID); err != nil {
		return nil, fmt.Errorf("list ticket types of session %d: %w", sessionID, err)
	}
	return out, nil
}
