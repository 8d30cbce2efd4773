package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-seat-locking/internal/middleware"
	"github.com/iliyamo/ticket-seat-locking/internal/service"
)

// LockHandler serves the seat hold endpoints.  Every route runs behind
// JWTAuth; the token subject is the lock owner.
type LockHandler struct {
	locks LockService
}

func NewLockHandler(locks LockService) *LockHandler {
	return &LockHandler{locks: locks}
}

type acquireRequest struct {
	SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1,max=50,dive,gt=0"`
}

type autoSelectRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=50"`
}

// Acquire handles POST /v1/sessions/:id/locks.
func (h *LockHandler) Acquire(c echo.Context) error {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrSessionNotFound, "invalid session id")
	}
	var req acquireRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return reject(c, service.ErrInvalidSeats, msg)
	}

	receipt, err := h.locks.AcquireLocks(c.Request().Context(), owner, sessionID, req.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, receipt)
}

// AutoSelect handles POST /v1/ticket-types/:id/auto-select.
func (h *LockHandler) AutoSelect(c echo.Context) error {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketTypeID, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrTicketTypeNotFound, "invalid ticket type id")
	}
	var req autoSelectRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return reject(c, service.ErrInvalidQuantity, msg)
	}

	receipt, err := h.locks.AutoSelect(c.Request().Context(), owner, ticketTypeID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, receipt)
}

// Release handles DELETE /v1/locks/:lockId.
func (h *LockHandler) Release(c echo.Context) error {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.locks.ReleaseLocks(c.Request().Context(), owner, c.Param("lockId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// List handles GET /v1/locks.
func (h *LockHandler) List(c echo.Context) error {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	locks, err := h.locks.ListLocks(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locks": locks})
}
