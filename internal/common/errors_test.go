package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/noah-isme/airwallex-bridge/internal/common"
)

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := common.UnavailableError(fmt.Errorf("dial processor: %w", inner))
	if !errors.Is(err, inner) {
		t.Fatalf("expected unwrap to reach inner error")
	}
	if common.CodeOf(err) != common.CodeUnavailable {
		t.Fatalf("unexpected code %s", common.CodeOf(err))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := common.CodeOf(errors.New("boom")); got != common.CodePayment {
		t.Fatalf("expected fallback code, got %s", got)
	}
}

func TestRenderErrorSuppressesDetailsInProduction(t *testing.T) {
	err := common.ValidationError("amount", "Amount must be a positive number").
		WithDetails(map[string]string{"provider_body": "raw diagnostics"})

	rr := httptest.NewRecorder()
	common.RenderError(rr, err, false)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("expected success:false, got %v", body["success"])
	}
	if _, ok := body["details"]; ok {
		t.Fatalf("details must be suppressed outside development")
	}
}

func TestRenderErrorExposesDetailsInDevelopment(t *testing.T) {
	err := common.ValidationError("amount", "Amount must be a positive number")

	rr := httptest.NewRecorder()
	common.RenderError(rr, err, true)

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body["details"]; !ok {
		t.Fatalf("expected details in development mode")
	}
}

func TestRenderErrorUnknownErrorIsGeneric(t *testing.T) {
	rr := httptest.NewRecorder()
	common.RenderError(rr, errors.New("internal state leaked"), false)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
	if body := rr.Body.String(); strings.Contains(body, "internal state leaked") {
		t.Fatalf("generic error must not leak internals: %s", body)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] != "Internal server error" {
		t.Fatalf("unexpected message %v", body["error"])
	}
}
