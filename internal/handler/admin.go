package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/store"
	"github.com/cellboard/cellboard/internal/utils"
)

// AdminHandler serves moderator login and the moderation queue.
type AdminHandler struct {
	engine       *engine.Engine
	store        store.Store
	jwtSecret    string
	adminKeyHash string
	accessTTLMin int
}

// NewAdminHandler returns the admin surface.  adminKeyHash is the bcrypt
// hash of the bootstrap key moderators exchange for a session token.
func NewAdminHandler(e *engine.Engine, s store.Store, jwtSecret, adminKeyHash string, accessTTLMin int) *AdminHandler {
	return &AdminHandler{
		engine:       e,
		store:        s,
		jwtSecret:    jwtSecret,
		adminKeyHash: adminKeyHash,
		accessTTLMin: accessTTLMin,
	}
}

type sessionRequest struct {
	Key string `json:"key"`
}

// CreateSession exchanges the admin key for a short-lived bearer token.
func (h *AdminHandler) CreateSession(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.Key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key is required"})
	}
	if !utils.VerifyKey(h.adminKeyHash, req.Key) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid key"})
	}
	tok, err := utils.NewAccessToken(h.jwtSecret, "admin", "ADMIN", h.accessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

// ListSubmissions returns the moderation queue, optionally filtered by
// status.
func (h *AdminHandler) ListSubmissions(c echo.Context) error {
	status := model.SubmissionStatus(c.QueryParam("status"))
	if status != "" && !model.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	subs, err := h.store.ListSubmissions(c.Request().Context(), status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list submissions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"submissions": subs})
}

// GetSubmission returns one submission with its full moderation record.
func (h *AdminHandler) GetSubmission(c echo.Context) error {
	sub, err := h.store.SubmissionByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load submission"})
	}
	return c.JSON(http.StatusOK, sub)
}

type moderationRequest struct {
	Notes string `json:"notes"`
}

// Approve publishes a submission's content.
func (h *AdminHandler) Approve(c echo.Context) error {
	var req moderationRequest
	_ = c.Bind(&req)
	sub, err := h.engine.Approve(c.Request().Context(), c.Param("id"), req.Notes)
	return h.moderationResult(c, sub, err)
}

// Reject closes a submission, frees its cells and requests a refund.
func (h *AdminHandler) Reject(c echo.Context) error {
	var req moderationRequest
	_ = c.Bind(&req)
	sub, err := h.engine.Reject(c.Request().Context(), c.Param("id"), req.Notes)
	return h.moderationResult(c, sub, err)
}

// Remove takes down previously approved content without a refund.
func (h *AdminHandler) Remove(c echo.Context) error {
	var req moderationRequest
	_ = c.Bind(&req)
	sub, err := h.engine.Remove(c.Request().Context(), c.Param("id"), req.Notes)
	return h.moderationResult(c, sub, err)
}

func (h *AdminHandler) moderationResult(c echo.Context, sub *model.Submission, err error) error {
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "moderation failed"})
	}
	return c.JSON(http.StatusOK, sub)
}
