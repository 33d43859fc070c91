// Package handler contains the echo HTTP handlers for the public grid API,
// the payment webhook and the admin moderation surface.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
