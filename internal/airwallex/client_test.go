package airwallex_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/airwallex-bridge/internal/airwallex"
	"github.com/noah-isme/airwallex-bridge/internal/common"
	"github.com/noah-isme/airwallex-bridge/internal/resilience"
)

func newTestClient(srv *httptest.Server, timeout time.Duration) *airwallex.Client {
	return airwallex.NewClient(airwallex.Config{
		BaseURL:  srv.URL,
		ClientID: "cid_test",
		APIKey:   "key_test",
	}, resilience.HTTPClient{Client: srv.Client(), Timeout: timeout}, zerolog.Nop())
}

func TestLoginReturnsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/authentication/login", r.URL.Path)
		require.Equal(t, "cid_test", r.Header.Get("x-client-id"))
		require.Equal(t, "key_test", r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":      "tok_1",
			"expires_at": time.Now().Add(30 * time.Minute).Format(time.RFC3339),
		})
	}))
	defer srv.Close()

	token, err := newTestClient(srv, time.Second).Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok_1", token.Value)
	require.True(t, token.ExpiresAt.After(time.Now()))
}

func TestLoginMissingTokenIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"expires_at": "2030-01-01T00:00:00Z"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).Login(context.Background())
	require.Equal(t, common.CodeProtocol, common.CodeOf(err))
}

func TestLoginRejectedIsAuthErrorWithoutCredentialLeak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":"unauthorized","message":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).Login(context.Background())
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeAuth, app.Code)
	require.NotContains(t, app.Message, "key_test")
	require.NotContains(t, app.Error(), "key_test")
}

func TestLoginServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).Login(context.Background())
	require.Equal(t, common.CodeUnavailable, common.CodeOf(err))
}

func TestLoginWithoutCredentialsIsConfigError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := airwallex.NewClient(airwallex.Config{BaseURL: srv.URL},
		resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second}, zerolog.Nop())
	_, err := client.Login(context.Background())
	require.Equal(t, common.CodeConfig, common.CodeOf(err))
	require.Zero(t, hits.Load(), "missing credentials must not hit the network")
}

// processorStub fakes the login and intent endpoints.
type processorStub struct {
	loginHits  atomic.Int32
	createHits atomic.Int32
	createFn   func(w http.ResponseWriter, r *http.Request, call int32)
}

func (p *processorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/authentication/login", func(w http.ResponseWriter, _ *http.Request) {
		p.loginHits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":      "tok_1",
			"expires_at": time.Now().Add(30 * time.Minute).Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/api/v1/pa/payment_intents/create", func(w http.ResponseWriter, r *http.Request) {
		call := p.createHits.Add(1)
		p.createFn(w, r, call)
	})
	return mux
}

func TestCreateIntentSuccess(t *testing.T) {
	stub := &processorStub{createFn: func(w http.ResponseWriter, r *http.Request, _ int32) {
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		var req airwallex.CreateIntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.EqualValues(t, 2999, req.Amount)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "int_1",
			"client_secret": "sec_1",
			"status":        "requires_payment_method",
			"amount":        2999,
			"currency":      "USD",
		})
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	intent, err := newTestClient(srv, time.Second).CreateIntent(context.Background(), airwallex.CreateIntentRequest{
		RequestID: "pi_req_x", Amount: 2999, Currency: "USD", MerchantOrderID: "ORD-1",
	})
	require.NoError(t, err)
	require.Equal(t, "int_1", intent.ID)
	require.Equal(t, "sec_1", intent.ClientSecret)
}

func TestCreateIntentBadRequestIsValidation(t *testing.T) {
	stub := &processorStub{createFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
		http.Error(w, `{"code":"invalid_argument","message":"amount too small"}`, http.StatusBadRequest)
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).CreateIntent(context.Background(), airwallex.CreateIntentRequest{})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeValidation, app.Code)
	require.Equal(t, "Invalid payment request", app.Message)
}

func TestCreateIntentUnauthorizedInvalidatesToken(t *testing.T) {
	stub := &processorStub{createFn: func(w http.ResponseWriter, _ *http.Request, call int32) {
		if call == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "int_1"})
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := newTestClient(srv, time.Second)
	_, err := client.CreateIntent(context.Background(), airwallex.CreateIntentRequest{})
	require.Equal(t, common.CodeAuth, common.CodeOf(err))
	require.EqualValues(t, 1, stub.loginHits.Load())

	// The stale token was discarded, so the next call re-authenticates.
	_, err = client.CreateIntent(context.Background(), airwallex.CreateIntentRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, stub.loginHits.Load())
}

func TestCreateIntentServerErrorIsUnavailable(t *testing.T) {
	stub := &processorStub{createFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusInternalServerError)
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).CreateIntent(context.Background(), airwallex.CreateIntentRequest{})
	require.Equal(t, common.CodeUnavailable, common.CodeOf(err))
}

func TestCreateIntentTimeoutFailsFast(t *testing.T) {
	stub := &processorStub{createFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "int_1"})
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	start := time.Now()
	_, err := newTestClient(srv, 50*time.Millisecond).CreateIntent(context.Background(), airwallex.CreateIntentRequest{})
	require.Equal(t, common.CodeTimeout, common.CodeOf(err))
	require.Less(t, time.Since(start), 250*time.Millisecond, "timeout must fail fast, not hang")
}

func intentMux(t *testing.T, path string, status int, body any) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/authentication/login", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok_1"})
	})
	mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
	return mux
}

func TestConfirmIntentNotFound(t *testing.T) {
	srv := httptest.NewServer(intentMux(t, "/api/v1/pa/payment_intents/int_x/confirm", http.StatusNotFound, nil))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).ConfirmIntent(context.Background(), "int_x", airwallex.ConfirmRequest{})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeNotFound, app.Code)
	require.Equal(t, "Payment intent not found", app.Message)
}

func TestConfirmIntentDeclined(t *testing.T) {
	srv := httptest.NewServer(intentMux(t, "/api/v1/pa/payment_intents/int_1/confirm", http.StatusPaymentRequired,
		map[string]string{"code": "card_declined", "message": "insufficient funds"}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).ConfirmIntent(context.Background(), "int_1", airwallex.ConfirmRequest{})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeDeclined, app.Code)
	require.Equal(t, "Payment was declined, check payment details", app.Message)
}

func TestGetIntentProjectsFields(t *testing.T) {
	srv := httptest.NewServer(intentMux(t, "/api/v1/pa/payment_intents/int_1", http.StatusOK, map[string]any{
		"id":                "int_1",
		"status":            "succeeded",
		"amount":            2999,
		"currency":          "USD",
		"customer_id":       "cus_1",
		"merchant_order_id": "ORD-1",
	}))
	defer srv.Close()

	intent, err := newTestClient(srv, time.Second).GetIntent(context.Background(), "int_1")
	require.NoError(t, err)
	require.Equal(t, "succeeded", intent.Status)
	require.Equal(t, "cus_1", intent.CustomerID)
	require.Equal(t, "ORD-1", intent.MerchantOrderID)
}
