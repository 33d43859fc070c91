package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/payment"
)

// signatureHeader carries the provider's HMAC over the raw request body.
const signatureHeader = "X-Payment-Signature"

// WebhookHandler receives payment confirmations from the provider.
// Delivery is at-least-once; every already-handled confirmation must
// answer 200 or the provider keeps retrying forever.
type WebhookHandler struct {
	engine *engine.Engine
	secret string
}

// NewWebhookHandler returns a handler verifying payloads with the shared
// webhook secret.
func NewWebhookHandler(e *engine.Engine, secret string) *WebhookHandler {
	return &WebhookHandler{engine: e, secret: secret}
}

type webhookPayload struct {
	CheckoutRef string `json:"checkout_ref"`
	Status      string `json:"status"`
}

// PaymentConfirmed verifies the signature, then hands succeeded payments to
// the engine.  Unknown or duplicate references are treated as handled
// inside the engine, so the only 5xx the provider ever sees is a genuine
// store failure worth retrying.
func (h *WebhookHandler) PaymentConfirmed(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	if !payment.VerifySignature(h.secret, body, c.Request().Header.Get(signatureHeader)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil || p.CheckoutRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if p.Status != "succeeded" {
		return c.JSON(http.StatusOK, echo.Map{"received": true, "ignored": true})
	}
	if err := h.engine.OnPaymentConfirmed(c.Request().Context(), p.CheckoutRef); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
