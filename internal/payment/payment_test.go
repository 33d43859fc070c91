package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"checkout_ref":"co-1","status":"succeeded"}`)
	sig := Sign("topsecret", body)

	assert.True(t, VerifySignature("topsecret", body, sig))
	assert.False(t, VerifySignature("topsecret", []byte(`tampered`), sig))
	assert.False(t, VerifySignature("wrongsecret", body, sig))
	assert.False(t, VerifySignature("topsecret", body, ""))
}

func TestCreateCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/charges", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hold-1", req["reference"])
		_ = json.NewEncoder(w).Encode(Checkout{Ref: "co-9", URL: "https://pay.example/co-9"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123")
	co, err := c.CreateCharge(context.Background(), "hold-1", 400, "USD", "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "co-9", co.Ref)
	assert.NotEmpty(t, co.URL)
}

func TestProviderOutageIsServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123")
	_, err := c.CreateCharge(context.Background(), "hold-1", 400, "USD", "buyer@example.com")
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	err = c.Refund(context.Background(), "co-9")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestProviderRejectionIsNotRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123")
	err := c.Refund(context.Background(), "co-9")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServiceUnavailable)
}
