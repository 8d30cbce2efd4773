package model

import "time"

// SeatStatus is the persisted state of a seat row.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatLocked    SeatStatus = "locked"
	SeatSold      SeatStatus = "sold"
)

// Seat is a row of the seats table joined with the display and limit fields
// of its ticket type.
//
// Invariant: Status == SeatLocked implies LockedBy and LockExpiresAt are set;
// Status == SeatAvailable implies both are nil.
type Seat struct {
	ID            uint64     `db:"id"`
	SessionID     uint64     `db:"session_id"`
	TicketTypeID  uint64     `db:"ticket_type_id"`
	RowLabel      string     `db:"row_label"`
	SeatNumber    string     `db:"seat_number"`
	Status        SeatStatus `db:"status"`
	LockedBy      *uint64    `db:"locked_by"`
	LockExpiresAt *time.Time `db:"lock_expires_at"`

	TicketTypeName string `db:"ticket_type_name"`
	PriceCents     uint32 `db:"price_cents"`
	MaxPerOrder    int    `db:"max_per_order"`
}

// View returns the client-facing projection of the seat.
func (s Seat) View() SeatView {
	return SeatView{
		ID:             s.ID,
		RowLabel:       s.RowLabel,
		SeatNumber:     s.SeatNumber,
		TicketTypeID:   s.TicketTypeID,
		TicketTypeName: s.TicketTypeName,
		PriceCents:     s.PriceCents,
	}
}

// SeatView is what lock receipts and listings expose per seat.
type SeatView struct {
	ID             uint64 `json:"id"`
	RowLabel       string `json:"row_label"`
	SeatNumber     string `json:"seat_number"`
	TicketTypeID   uint64 `json:"ticket_type_id"`
	TicketTypeName string `json:"ticket_type_name"`
	PriceCents     uint32 `json:"price_cents"`
}
