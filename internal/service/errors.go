package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-seat-locking/internal/pkg/logger"
)

// Code is the stable machine-readable tag carried by every error this
// package returns.
type Code string

const (
	CodeSaleNotStarted     Code = "SALE_NOT_STARTED"
	CodeSaleEnded          Code = "SALE_ENDED"
	CodeInvalidSeats       Code = "INVALID_SEATS"
	CodeExceedLimit        Code = "EXCEED_LIMIT"
	CodeSeatLocked         Code = "SEAT_LOCKED"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeLockNotFound       Code = "LOCK_NOT_FOUND"
	CodeSessionNotFound    Code = "SESSION_NOT_FOUND"
	CodeTicketTypeNotFound Code = "TICKET_TYPE_NOT_FOUND"
	CodeInvalidQuantity    Code = "INVALID_QUANTITY"
	CodeInternal           Code = "INTERNAL"
)

// Error is a tagged error.  Two Errors match under errors.Is when their codes
// are equal, so callers compare against the sentinels below regardless of
// the message or wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrSaleNotStarted     = &Error{Code: CodeSaleNotStarted, Message: "sale has not started"}
	ErrSaleEnded          = &Error{Code: CodeSaleEnded, Message: "sale has ended"}
	ErrInvalidSeats       = &Error{Code: CodeInvalidSeats, Message: "one or more seats do not exist in this session"}
	ErrExceedLimit        = &Error{Code: CodeExceedLimit, Message: "too many seats for this ticket type"}
	ErrSeatLocked         = &Error{Code: CodeSeatLocked, Message: "seat is held by another buyer"}
	ErrInsufficientStock  = &Error{Code: CodeInsufficientStock, Message: "not enough seats or stock available"}
	ErrLockNotFound       = &Error{Code: CodeLockNotFound, Message: "lock not found"}
	ErrSessionNotFound    = &Error{Code: CodeSessionNotFound, Message: "session not found"}
	ErrTicketTypeNotFound = &Error{Code: CodeTicketTypeNotFound, Message: "ticket type not found"}
	ErrInvalidQuantity    = &Error{Code: CodeInvalidQuantity, Message: "quantity must be positive"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the tag of err, or CodeInternal for anything untagged.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// withDetail copies a sentinel and attaches a more specific message.
func withDetail(base *Error, format string, args ...any) *Error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// internal logs an unexpected store or database failure and hides it behind
// an INTERNAL error.  Business errors pass through untouched.
func internal(op string, err error, fields ...zap.Field) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	logger.Error("seat lock operation failed",
		append([]zap.Field{zap.String("op", op), zap.Error(err)}, fields...)...)
	return &Error{Code: CodeInternal, Message: op + " failed", Err: err}
}
