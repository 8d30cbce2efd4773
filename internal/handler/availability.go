package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-seat-locking/internal/service"
)

// AvailabilityHandler serves the public availability views.
type AvailabilityHandler struct {
	availability AvailabilityService
}

func NewAvailabilityHandler(a AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: a}
}

// Session handles GET /v1/sessions/:id/availability.
func (h *AvailabilityHandler) Session(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrSessionNotFound, "invalid session id")
	}
	out, err := h.availability.ForSession(c.Request().Context(), sessionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": sessionID, "ticket_types": out})
}

// TicketType handles GET /v1/ticket-types/:id/availability.
func (h *AvailabilityHandler) TicketType(c echo.Context) error {
	ticketTypeID, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrTicketTypeNotFound, "invalid ticket type id")
	}
	out, err := h.availability.ForTicketType(c.Request().Context(), ticketTypeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
