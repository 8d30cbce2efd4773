// Package repository holds the MySQL access code for sessions, ticket types
// and seats.  These sentinel values let the service layer tell a missing
// record apart from a database failure.
package repository

import "errors"

// ErrSessionNotFound is returned when a session (or its event) does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrTicketTypeNotFound is returned when a ticket type lookup yields no rows.
var ErrTicketTypeNotFound = errors.New("ticket type not found")
