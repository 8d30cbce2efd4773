package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
)

// SessionRepo reads sessions together with their owning event.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// GetWithEvent loads a session and the sale window of its event.  It returns
// ErrSessionNotFound if there is no matching row.
func (r *SessionRepo) GetWithEvent(ctx context.Context, sessionID uint64) (*model.SessionWithEvent, error) {
	const q = "SELECT s.id, s.event_id, s.starts_at, " +
		"e.id AS `event.id`, e.name AS `event.name`, " +
		"e.sale_start AS `event.sale_start`, e.sale_end AS `event.sale_end` " +
		"FROM sessions s JOIN events e ON e.id = s.event_id " +
		"WHERE s.id = ?"
	var out model.SessionWithEvent
	if err := r.db.GetContext(ctx, &out, q, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %d: %w", sessionID, err)
	}
	return &out, nil
}
