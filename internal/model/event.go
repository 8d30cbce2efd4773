package model

import "time"

// Event is the sellable thing a session belongs to.  Its sale window
// [SaleStart, SaleEnd) gates every lock acquisition for its sessions.
type Event struct {
	ID        uint64    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SaleStart time.Time `db:"sale_start" json:"sale_start"`
	SaleEnd   time.Time `db:"sale_end" json:"sale_end"`
}

// SaleOpen reports whether now falls inside the sale window.
func (e Event) SaleOpen(now time.Time) bool {
	return !now.Before(e.SaleStart) && now.Before(e.SaleEnd)
}

// Session is one timed occurrence of an event (a show, a match day).  Seats
// are scoped to a session.
type Session struct {
	ID       uint64    `db:"id" json:"id"`
	EventID  uint64    `db:"event_id" json:"event_id"`
	StartsAt time.Time `db:"starts_at" json:"starts_at"`
}

// SessionWithEvent is a session joined with its owning event.
type SessionWithEvent struct {
	Session
	Event Event `db:"event" json:"event"`
}
