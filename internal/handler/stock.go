package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-seat-locking/internal/service"
)

// StockHandler exposes the stock counters to admins.
type StockHandler struct {
	inventory InventoryService
}

func NewStockHandler(inv InventoryService) *StockHandler {
	return &StockHandler{inventory: inv}
}

type setStockRequest struct {
	Quantity *int64 `json:"quantity" validate:"required,min=0"`
}

type deltaRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type stockResponse struct {
	TicketTypeID uint64 `json:"ticket_type_id"`
	Stock        int64  `json:"stock"`
}

// Get handles GET /v1/ticket-types/:id/stock.
func (h *StockHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrTicketTypeNotFound, "invalid ticket type id")
	}
	n, err := h.inventory.GetStock(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stockResponse{TicketTypeID: id, Stock: n})
}

// Set handles PUT /v1/ticket-types/:id/stock.
func (h *StockHandler) Set(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrTicketTypeNotFound, "invalid ticket type id")
	}
	var req setStockRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return reject(c, service.ErrInvalidQuantity, msg)
	}
	if err := h.inventory.SetStock(c.Request().Context(), id, *req.Quantity); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stockResponse{TicketTypeID: id, Stock: *req.Quantity})
}

// Increment handles POST /v1/ticket-types/:id/stock/increment.
func (h *StockHandler) Increment(c echo.Context) error {
	return h.applyDelta(c, h.inventory.IncrementStock)
}

// Decrement handles POST /v1/ticket-types/:id/stock/decrement.  A shortfall
// answers 409 INSUFFICIENT_STOCK and leaves the counter as it was.
func (h *StockHandler) Decrement(c echo.Context) error {
	return h.applyDelta(c, h.inventory.DecrementStock)
}

func (h *StockHandler) applyDelta(c echo.Context, op func(ctx context.Context, id uint64, qty int64) (int64, error)) error {
	id, ok := pathID(c, "id")
	if !ok {
		return reject(c, service.ErrTicketTypeNotFound, "invalid ticket type id")
	}
	var req deltaRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return reject(c, service.ErrInvalidQuantity, msg)
	}
	n, err := op(c.Request().Context(), id, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stockResponse{TicketTypeID: id, Stock: n})
}
