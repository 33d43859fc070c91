package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/payment"
	"github.com/cellboard/cellboard/internal/store"
)

// HoldHandler serves hold creation, cancellation and checkout.
type HoldHandler struct {
	engine *engine.Engine
}

// NewHoldHandler returns a handler bound to the reservation engine.
func NewHoldHandler(e *engine.Engine) *HoldHandler {
	return &HoldHandler{engine: e}
}

type createHoldRequest struct {
	TopRow    int    `json:"top_row"`
	TopCol    int    `json:"top_col"`
	BottomRow int    `json:"bottom_row"`
	BottomCol int    `json:"bottom_col"`
	Contact   string `json:"contact"`
}

// Create claims a rectangle.  All cells are claimed or none are; on
// conflict the blocking cell ids are returned so the client can redraw.
func (h *HoldHandler) Create(c echo.Context) error {
	var req createHoldRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Contact == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact is required"})
	}
	rect := grid.RectFrom(
		grid.Point{Row: req.TopRow, Col: req.TopCol},
		grid.Point{Row: req.BottomRow, Col: req.BottomCol},
	)
	hold, err := h.engine.CreateHold(c.Request().Context(), rect, req.Contact)
	if err != nil {
		var unavailable *engine.SlotUnavailableError
		switch {
		case errors.Is(err, grid.ErrInvalidRectangle):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.As(err, &unavailable):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":   "cells unavailable",
				"blocked": unavailable.Blocked,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create hold"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":      hold.ID,
		"rect":         hold.Rect,
		"cell_count":   hold.Rect.Area(),
		"amount_cents": hold.AmountCents,
		"expires_at":   hold.ExpiresAt,
	})
}

// Cancel releases a hold.  Cancelling a hold that already expired or
// converted succeeds; the outcome is the same either way.
func (h *HoldHandler) Cancel(c echo.Context) error {
	if err := h.engine.CancelHold(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not cancel hold"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout opens an external payment session for a hold.
func (h *HoldHandler) Checkout(c echo.Context) error {
	co, err := h.engine.StartCheckout(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrHoldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
		case errors.Is(err, payment.ErrServiceUnavailable):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start checkout"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"checkout_ref": co.Ref,
		"checkout_url": co.URL,
	})
}

// Quote prices a rectangle without claiming it.
func (h *HoldHandler) Quote(c echo.Context) error {
	rect, err := rectFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	count, amount, err := h.engine.Quote(rect)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cell_count":   count,
		"amount_cents": amount,
	})
}

// rectFromQuery reads the four corner coordinates from query parameters and
// normalizes them into a rectangle.
func rectFromQuery(c echo.Context) (grid.Rect, error) {
	coord := func(name string) (int, error) {
		v, err := strconv.Atoi(c.QueryParam(name))
		if err != nil {
			return 0, errors.New("missing or invalid coordinate: " + name)
		}
		return v, nil
	}
	tr, err := coord("top_row")
	if err != nil {
		return grid.Rect{}, err
	}
	tc, err := coord("top_col")
	if err != nil {
		return grid.Rect{}, err
	}
	br, err := coord("bottom_row")
	if err != nil {
		return grid.Rect{}, err
	}
	bc, err := coord("bottom_col")
	if err != nil {
		return grid.Rect{}, err
	}
	return grid.RectFrom(grid.Point{Row: tr, Col: tc}, grid.Point{Row: br, Col: bc}), nil
}
