package model

// TicketType is a price tier within a session.  TotalQuantity and
// ReservedQuantity are plain counters owned by the order flow; seat locking
// never moves them.
type TicketType struct {
	ID               uint64 `db:"id" json:"id"`
	SessionID        uint64 `db:"session_id" json:"session_id"`
	Name             string `db:"name" json:"name"`
	PriceCents       uint32 `db:"price_cents" json:"price_cents"`
	MaxPerOrder      int    `db:"max_per_order" json:"max_per_order"`
	TotalQuantity    int    `db:"total_quantity" json:"total_quantity"`
	ReservedQuantity int    `db:"reserved_quantity" json:"reserved_quantity"`
}

// TicketTypeWithSession carries the session and sale-window context needed to
// auto-select seats for a ticket type.
type TicketTypeWithSession struct {
	TicketType
	Session Session `db:"session" json:"session"`
	Event   Event   `db:"event" json:"event"`
}

// Availability is the counter-level view of a ticket type.  It ignores active
// seat locks: a held seat still counts as available until the order flow
// advances ReservedQuantity.
type Availability struct {
	TicketTypeID uint64 `json:"ticket_type_id"`
	Name         string `json:"name"`
	Available    int    `json:"available"`
	Reserved     int    `json:"reserved"`
	Total        int    `json:"total"`
}
