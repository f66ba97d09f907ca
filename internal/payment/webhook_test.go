package payment_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/airwallex-bridge/internal/payment"
)

func signPayload(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookAcceptsSignedEvent(t *testing.T) {
	hook := payment.Webhook{Secret: "whsec_test", Logger: zerolog.Nop()}
	body := []byte(`{"id":"evt_1","name":"payment_intent.succeeded","data":{"object":{"id":"int_1"}}}`)
	timestamp := "1724500000"

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-events", strings.NewReader(string(body)))
	req.Header.Set("x-timestamp", timestamp)
	req.Header.Set("x-signature", signPayload("whsec_test", timestamp, body))

	rr := httptest.NewRecorder()
	hook.Handle(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"received":true}`, rr.Body.String())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	hook := payment.Webhook{Secret: "whsec_test", Logger: zerolog.Nop()}
	body := `{"id":"evt_1","name":"payment_intent.succeeded"}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-events", strings.NewReader(body))
	req.Header.Set("x-timestamp", "1724500000")
	req.Header.Set("x-signature", "deadbeef")

	rr := httptest.NewRecorder()
	hook.Handle(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookRejectsMissingSignatureHeaders(t *testing.T) {
	hook := payment.Webhook{Secret: "whsec_test", Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-events", strings.NewReader(`{"id":"evt_1"}`))
	rr := httptest.NewRecorder()
	hook.Handle(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookAcknowledgesWithoutSecret(t *testing.T) {
	hook := payment.Webhook{Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-events", strings.NewReader(`{"id":"evt_1","name":"x"}`))
	rr := httptest.NewRecorder()
	hook.Handle(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"received":true}`, rr.Body.String())
}

func TestWebhookRejectsMalformedEvent(t *testing.T) {
	hook := payment.Webhook{Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-events", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	hook.Handle(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
