// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cellboard/cellboard/internal/config"
	"github.com/cellboard/cellboard/internal/handler"
	"github.com/cellboard/cellboard/internal/middleware"
)

// RegisterRoutes registers the unauthenticated infrastructure endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterGrid registers the public read surface.  The full snapshot is
// the hot path for every connecting viewer, so it sits behind the Redis
// response cache.
func RegisterGrid(e *echo.Echo, g *handler.GridHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewResponseCache(cacheCfg, rdb)
	e.GET("/v1/grid/snapshot", g.Snapshot, cached)
	e.GET("/v1/grid/states", g.States)
	e.GET("/v1/cells/:id/content", g.CellContent)
}

// RegisterHolds registers hold lifecycle and checkout.  Hold creation is
// rate limited per client IP: a claim writes up to a full rectangle of
// rows, and an abusive client could otherwise pin large parts of the board.
func RegisterHolds(e *echo.Echo, h *handler.HoldHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	limited := middleware.NewTokenBucket(rlCfg, rdb)
	e.GET("/v1/quote", h.Quote)
	e.POST("/v1/holds", h.Create, limited)
	e.DELETE("/v1/holds/:id", h.Cancel)
	e.POST("/v1/holds/:id/checkout", h.Checkout)
}

// RegisterPayments registers the provider-facing webhook.  It is
// authenticated by HMAC signature inside the handler, not by JWT.
func RegisterPayments(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/webhook", w.PaymentConfirmed)
}

// RegisterSubmissions registers buyer-facing content upload.
func RegisterSubmissions(e *echo.Echo, s *handler.SubmissionHandler) {
	e.PUT("/v1/submissions/:id/content", s.UploadContent)
}

// RegisterAdmin registers moderator login and the moderation queue.  The
// queue group verifies the bearer token and the ADMIN role on every
// request; there is no session-level shortcut around either check.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST("/v1/admin/session", a.CreateSession)

	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))
	g.GET("/submissions", a.ListSubmissions)
	g.GET("/submissions/:id", a.GetSubmission)
	g.POST("/submissions/:id/approve", a.Approve)
	g.POST("/submissions/:id/reject", a.Reject)
	g.POST("/submissions/:id/remove", a.Remove)
}
