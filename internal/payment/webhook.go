package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/airwallex-bridge/internal/common"
	"github.com/noah-isme/airwallex-bridge/internal/obs"
)

// Webhook handles provider event callbacks. Events are acknowledged and
// logged; nothing is persisted.
type Webhook struct {
	// Secret enables HMAC-SHA256 signature verification when set. Without
	// it events are still acknowledged, which is only acceptable outside
	// production.
	Secret string
	Logger zerolog.Logger
}

type webhookEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Handle processes POST /webhooks/payment-events.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "Unable to read payload", nil)
		return
	}
	if h.Secret != "" {
		timestamp := strings.TrimSpace(r.Header.Get("x-timestamp"))
		provided := strings.TrimSpace(r.Header.Get("x-signature"))
		expected := computeSignature(h.Secret, timestamp, body)
		if timestamp == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
			if obs.WebhookEventTotal != nil {
				obs.WebhookEventTotal.WithLabelValues("invalid_signature").Inc()
			}
			common.JSONError(w, http.StatusUnauthorized, "Invalid webhook signature", nil)
			return
		}
	} else {
		h.Logger.Warn().Msg("webhook signature verification disabled: no secret configured")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		if obs.WebhookEventTotal != nil {
			obs.WebhookEventTotal.WithLabelValues("malformed").Inc()
		}
		common.JSONError(w, http.StatusBadRequest, "Invalid event payload", nil)
		return
	}
	if obs.WebhookEventTotal != nil {
		obs.WebhookEventTotal.WithLabelValues("received").Inc()
	}
	h.Logger.Info().
		Str("event_id", event.ID).
		Str("event_name", event.Name).
		Msg("payment_event")

	common.JSON(w, http.StatusOK, map[string]any{"received": true})
}

// computeSignature returns the hex HMAC-SHA256 of timestamp + raw body.
func computeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
