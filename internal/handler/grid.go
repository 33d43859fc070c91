package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/store"
)

// GridHandler serves the public read surface: the full board snapshot,
// windowed cell states and per-cell content lookup.
type GridHandler struct {
	store store.Store
}

// NewGridHandler returns a handler reading from the given store.
func NewGridHandler(s store.Store) *GridHandler {
	return &GridHandler{store: s}
}

// Snapshot returns every non-free cell.  Free cells are implied by absence,
// which keeps the payload proportional to what is sold, not to the million
// addressable cells.
func (h *GridHandler) Snapshot(c echo.Context) error {
	cells, err := h.store.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not read grid"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"rows":  grid.Rows,
		"cols":  grid.Cols,
		"cells": cells,
	})
}

// States returns the state of every cell inside a query rectangle.  Useful
// for clients that only render a window of the board.
func (h *GridHandler) States(c echo.Context) error {
	rect, err := rectFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ids, err := rect.Cells()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	states, err := h.store.GetStates(c.Request().Context(), ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not read cell states"})
	}
	return c.JSON(http.StatusOK, echo.Map{"states": states})
}

// CellContent resolves a cell to its approved content.  Cells that are
// free, held, or occupied by content still in moderation report not found;
// viewers only ever see approved uploads.
func (h *GridHandler) CellContent(c echo.Context) error {
	id := c.Param("id")
	if _, err := grid.ParseCellID(id); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sub, err := h.store.SubmissionByCell(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no content at cell"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve cell"})
	}
	if sub.Status != model.StatusApproved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no content at cell"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"submission_id": sub.ID,
		"rect":          sub.Rect,
		"content_ref":   sub.ContentRef,
	})
}
