// Package payment wraps the external payment provider.  The engine only
// ever sees the Charger and Refunder interfaces; the HTTP client here is
// the production adapter.  Confirmation is never requested by us; the
// provider posts it to the webhook endpoint with at-least-once delivery.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrServiceUnavailable is returned when the provider cannot be reached or
// answers with a server error.  Refund callers log it and move on; the
// moderation decision is never held hostage by a provider outage.
var ErrServiceUnavailable = errors.New("payment service unavailable")

// Checkout is the provider's handle for a charge in progress.  Ref is the
// reference later echoed back by the confirmation webhook; URL is where the
// buyer completes payment.
type Checkout struct {
	Ref string `json:"ref"`
	URL string `json:"url"`
}

// Charger creates a charge for a hold.
type Charger interface {
	CreateCharge(ctx context.Context, holdID string, amountCents uint64, currency, contact string) (Checkout, error)
}

// Refunder requests a refund for a previously confirmed payment.
type Refunder interface {
	Refund(ctx context.Context, paymentRef string) error
}

// Client talks to the provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a provider client.  A 10s timeout bounds every call.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) CreateCharge(ctx context.Context, holdID string, amountCents uint64, currency, contact string) (Checkout, error) {
	body, err := json.Marshal(map[string]any{
		"reference":    holdID,
		"amount_cents": amountCents,
		"currency":     currency,
		"contact":      contact,
	})
	if err != nil {
		return Checkout{}, err
	}
	var out Checkout
	if err := c.post(ctx, "/v1/charges", body, &out); err != nil {
		return Checkout{}, err
	}
	if out.Ref == "" {
		return Checkout{}, fmt.Errorf("provider returned empty checkout ref")
	}
	return out, nil
}

func (c *Client) Refund(ctx context.Context, paymentRef string) error {
	body, err := json.Marshal(map[string]any{"payment_ref": paymentRef})
	if err != nil {
		return err
	}
	return c.post(ctx, "/v1/refunds", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: provider status %d", ErrServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("provider rejected request: status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of a webhook body.  Used by tests and
// by the provider; VerifySignature is the server-side check.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the body under the
// shared webhook secret.  Comparison is constant-time.
func VerifySignature(secret string, body []byte, signature string) bool {
	want := Sign(secret, body)
	return hmac.Equal([]byte(want), []byte(signature))
}
