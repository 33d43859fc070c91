package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cellboard/cellboard/internal/content"
	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/store"
)

// maxUploadBytes caps a single content upload at 64 MiB.
const maxUploadBytes = 64 << 20

// SubmissionHandler serves content upload for paid submissions.
type SubmissionHandler struct {
	engine  *engine.Engine
	store   store.Store
	content content.Storage
}

// NewSubmissionHandler returns a handler writing uploads through the given
// content storage.
func NewSubmissionHandler(e *engine.Engine, s store.Store, cs content.Storage) *SubmissionHandler {
	return &SubmissionHandler{engine: e, store: s, content: cs}
}

// UploadContent stores the request body as the submission's video and moves
// the submission into review.  Re-uploading replaces the previous content
// reference.
func (h *SubmissionHandler) UploadContent(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.store.SubmissionByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load submission"})
	}

	ct := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "video/") {
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": "video content required"})
	}
	body := http.MaxBytesReader(c.Response().Writer, c.Request().Body, maxUploadBytes)

	ref, err := h.content.Save(c.Request().Context(), id, body, ct)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not store content"})
	}
	if err := h.engine.AttachContent(c.Request().Context(), id, ref); err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not attach content"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"submission_id": id,
		"content_ref":   ref,
	})
}
