package airwallex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/airwallex-bridge/internal/common"
	"github.com/noah-isme/airwallex-bridge/internal/obs"
	"github.com/noah-isme/airwallex-bridge/internal/resilience"
)

const (
	loginPath        = "/api/v1/authentication/login"
	intentCreatePath = "/api/v1/pa/payment_intents/create"

	// Fallback lifetime when the login response carries no parseable expiry.
	defaultTokenLifetime = 30 * time.Minute
)

// Config carries the processor connection settings.
type Config struct {
	BaseURL        string
	ClientID       string
	APIKey         string
	TokenTTLMargin time.Duration
}

// Client talks to the Airwallex payment API. All amount fields crossing this
// boundary are integers in minor units.
type Client struct {
	baseURL  string
	clientID string
	apiKey   string
	http     resilience.HTTPClient
	logger   zerolog.Logger
	tokens   *TokenSource
}

// NewClient constructs a processor client with a cached token source.
func NewClient(cfg Config, httpc resilience.HTTPClient, logger zerolog.Logger) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		apiKey:   cfg.APIKey,
		http:     httpc,
		logger:   logger,
	}
	c.tokens = NewTokenSource(c.Login, cfg.TokenTTLMargin)
	return c
}

// Tokens exposes the token source, mainly for tests and startup probes.
func (c *Client) Tokens() *TokenSource { return c.tokens }

// Login exchanges the configured credentials for a bearer token. Credentials
// travel in the x-client-id / x-api-key headers; no other encoding is used.
func (c *Client) Login(ctx context.Context) (AuthToken, error) {
	var zero AuthToken
	if c.clientID == "" || c.apiKey == "" {
		obs.ObserveTokenRequest("config_error")
		return zero, common.ConfigError("Payment provider credentials are not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, nil)
	if err != nil {
		return zero, common.UnavailableError(err)
	}
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-api-key", c.apiKey)

	rsp, err := c.send(ctx, "login", req)
	if err != nil {
		obs.ObserveTokenRequest("transport_error")
		return zero, err
	}
	switch {
	case rsp.StatusCode >= 200 && rsp.StatusCode < 300:
	case rsp.StatusCode >= http.StatusInternalServerError:
		obs.ObserveTokenRequest("unavailable")
		return zero, common.UnavailableError(fmt.Errorf("login returned status %d", rsp.StatusCode))
	default:
		// 401-class and any other rejection of the credential exchange.
		obs.ObserveTokenRequest("rejected")
		return zero, common.AuthError(fmt.Errorf("login rejected with status %d", rsp.StatusCode)).
			WithDetails(providerDetails(rsp))
	}

	var login loginResponse
	if err := json.Unmarshal(rsp.Body, &login); err != nil {
		obs.ObserveTokenRequest("protocol_error")
		return zero, common.ProtocolError("Malformed payment provider response", err)
	}
	if login.Token == "" {
		obs.ObserveTokenRequest("protocol_error")
		return zero, common.ProtocolError("Missing token in provider response", nil)
	}
	now := time.Now()
	expiresAt := now.Add(defaultTokenLifetime)
	if parsed, err := time.Parse(time.RFC3339, login.ExpiresAt); err == nil {
		expiresAt = parsed
	}
	obs.ObserveTokenRequest("success")
	return AuthToken{Value: login.Token, ObtainedAt: now, ExpiresAt: expiresAt}, nil
}

// CreateIntent opens a payment intent with the processor.
func (c *Client) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	rsp, err := c.call(ctx, "create_intent", http.MethodPost, intentCreatePath, req)
	if err != nil {
		return Intent{}, err
	}
	if rsp.StatusCode >= 200 && rsp.StatusCode < 300 {
		return decodeIntent(rsp.Body)
	}
	switch {
	case rsp.StatusCode == http.StatusUnauthorized:
		c.tokens.Invalidate()
		return Intent{}, common.AuthError(fmt.Errorf("intent creation rejected with status %d", rsp.StatusCode))
	case rsp.StatusCode == http.StatusBadRequest:
		return Intent{}, common.NewAppError(common.CodeValidation, "Invalid payment request", http.StatusBadRequest, nil).
			WithDetails(providerDetails(rsp))
	case rsp.StatusCode >= http.StatusInternalServerError:
		return Intent{}, common.UnavailableError(fmt.Errorf("intent creation returned status %d", rsp.StatusCode))
	default:
		return Intent{}, common.NewAppError(common.CodePayment, "Payment request failed", http.StatusInternalServerError, nil).
			WithDetails(providerDetails(rsp))
	}
}

// ConfirmIntent confirms an existing payment intent with a payment method.
func (c *Client) ConfirmIntent(ctx context.Context, intentID string, req ConfirmRequest) (Intent, error) {
	path := fmt.Sprintf("/api/v1/pa/payment_intents/%s/confirm", intentID)
	rsp, err := c.call(ctx, "confirm_intent", http.MethodPost, path, req)
	if err != nil {
		return Intent{}, err
	}
	if rsp.StatusCode >= 200 && rsp.StatusCode < 300 {
		return decodeIntent(rsp.Body)
	}
	switch {
	case rsp.StatusCode == http.StatusNotFound:
		return Intent{}, common.NewAppError(common.CodeNotFound, "Payment intent not found", http.StatusNotFound, nil)
	case rsp.StatusCode == http.StatusPaymentRequired:
		return Intent{}, common.NewAppError(common.CodeDeclined, "Payment was declined, check payment details", http.StatusPaymentRequired, nil).
			WithDetails(providerDetails(rsp))
	case rsp.StatusCode == http.StatusUnauthorized:
		c.tokens.Invalidate()
		return Intent{}, common.AuthError(fmt.Errorf("confirmation rejected with status %d", rsp.StatusCode))
	case rsp.StatusCode >= http.StatusInternalServerError:
		return Intent{}, common.UnavailableError(fmt.Errorf("confirmation returned status %d", rsp.StatusCode))
	default:
		return Intent{}, common.NewAppError(common.CodePayment, "Payment confirmation failed", http.StatusInternalServerError, nil).
			WithDetails(providerDetails(rsp))
	}
}

// GetIntent retrieves the current state of a payment intent.
func (c *Client) GetIntent(ctx context.Context, intentID string) (Intent, error) {
	path := fmt.Sprintf("/api/v1/pa/payment_intents/%s", intentID)
	rsp, err := c.call(ctx, "get_intent", http.MethodGet, path, nil)
	if err != nil {
		return Intent{}, err
	}
	if rsp.StatusCode >= 200 && rsp.StatusCode < 300 {
		return decodeIntent(rsp.Body)
	}
	switch {
	case rsp.StatusCode == http.StatusNotFound:
		return Intent{}, common.NewAppError(common.CodeNotFound, "Payment intent not found", http.StatusNotFound, nil)
	case rsp.StatusCode == http.StatusUnauthorized:
		c.tokens.Invalidate()
		return Intent{}, common.AuthError(fmt.Errorf("status lookup rejected with status %d", rsp.StatusCode))
	case rsp.StatusCode >= http.StatusInternalServerError:
		return Intent{}, common.UnavailableError(fmt.Errorf("status lookup returned status %d", rsp.StatusCode))
	default:
		return Intent{}, common.NewAppError(common.CodePayment, "Payment status lookup failed", http.StatusInternalServerError, nil).
			WithDetails(providerDetails(rsp))
	}
}

// call performs a bearer-authenticated request, fetching (or reusing) the
// token first.
func (c *Client) call(ctx context.Context, op, method, path string, in any) (*resilience.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, common.NewAppError(common.CodePayment, "Payment request failed", http.StatusInternalServerError, err)
		}
		body = bytes.NewReader(payload)
	}
	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, common.UnavailableError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.send(ctx, op, req)
}

// send dispatches through the resilience wrapper and maps transport-level
// failures into the error taxonomy.
func (c *Client) send(ctx context.Context, op string, req *http.Request) (*resilience.Response, error) {
	start := time.Now()
	rsp, err := c.http.Do(ctx, req)
	if obs.ProcessorLatency != nil {
		obs.ProcessorLatency.WithLabelValues(op).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		return nil, transportError(err)
	}
	c.logger.Debug().
		Str("operation", op).
		Int("provider_status", rsp.StatusCode).
		Bytes("provider_body", rsp.Body).
		Msg("processor_response")
	return rsp, nil
}

func transportError(err error) error {
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return common.UnavailableError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.TimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return common.TimeoutError(err)
	}
	return common.UnavailableError(err)
}

func decodeIntent(body []byte) (Intent, error) {
	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return Intent{}, common.ProtocolError("Malformed payment provider response", err)
	}
	return intent, nil
}

// providerDetails projects a provider error body into a details payload.
// Rendered to callers only outside production.
func providerDetails(rsp *resilience.Response) map[string]any {
	details := map[string]any{"provider_status": rsp.StatusCode}
	var perr providerError
	if err := json.Unmarshal(rsp.Body, &perr); err == nil && (perr.Code != "" || perr.Message != "") {
		details["provider_code"] = perr.Code
		details["provider_message"] = perr.Message
	} else if len(rsp.Body) > 0 {
		details["provider_body"] = string(rsp.Body)
	}
	return details
}
