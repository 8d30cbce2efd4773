package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-seat-locking/internal/service"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string       `json:"error"`
	Code  service.Code `json:"code"`
}

// statusOf maps an error tag to its HTTP status.  This is the only place
// the mapping lives.
func statusOf(code service.Code) int {
	switch code {
	case service.CodeInvalidSeats, service.CodeExceedLimit, service.CodeInvalidQuantity:
		return http.StatusBadRequest
	case service.CodeSaleNotStarted, service.CodeSaleEnded:
		return http.StatusForbidden
	case service.CodeLockNotFound, service.CodeSessionNotFound, service.CodeTicketTypeNotFound:
		return http.StatusNotFound
	case service.CodeSeatLocked, service.CodeInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse.  Internal failures are
// reported without their cause; the service already logged it.
func respondError(c echo.Context, err error) error {
	code := service.CodeOf(err)
	msg := service.ErrInternal.Message
	var se *service.Error
	if code != service.CodeInternal && errors.As(err, &se) {
		msg = se.Message
	}
	return c.JSON(statusOf(code), ErrorResponse{Error: msg, Code: code})
}

// reject answers with base's code and status and a request-specific detail,
// so a tag maps to the same status whether the handler or the service
// raised it.
func reject(c echo.Context, base *service.Error, detail string) error {
	return c.JSON(statusOf(base.Code), ErrorResponse{Error: detail, Code: base.Code})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
