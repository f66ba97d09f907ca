package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/airwallex-bridge/internal/common"
)

// Handler exposes the payment HTTP surface.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	// ExposeDetails attaches raw provider diagnostics to error responses.
	// Never enabled in production.
	ExposeDetails bool
}

type createIntentRequest struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency" validate:"omitempty,len=3,alpha"`
	OrderID  string      `json:"orderId" validate:"required"`
}

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

// CreateIntent handles POST /create-payment-intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validate(req); err != nil {
		common.RenderError(w, err, h.ExposeDetails)
		return
	}
	amount, err := req.Amount.Float64()
	if err != nil {
		common.RenderError(w, common.ValidationError("amount", "Amount must be a positive number"), h.ExposeDetails)
		return
	}
	result, err := h.Svc.CreateIntent(r.Context(), amount, req.Currency, req.OrderID)
	if err != nil {
		common.RenderError(w, err, h.ExposeDetails)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"id":           result.ID,
		"clientSecret": result.ClientSecret,
		"status":       result.Status,
		"amount":       result.Amount,
		"currency":     result.Currency,
	})
}

// Confirm handles POST /confirm-payment.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validate(req); err != nil {
		common.RenderError(w, err, h.ExposeDetails)
		return
	}
	intent, err := h.Svc.Confirm(r.Context(), req.PaymentIntentID, req.PaymentMethodID)
	if err != nil {
		common.RenderError(w, err, h.ExposeDetails)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  intent.Status,
		"paymentIntent": map[string]any{
			"id":       intent.ID,
			"status":   intent.Status,
			"amount":   intent.Amount,
			"currency": intent.Currency,
		},
	})
}

// Status handles GET /payment-status/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.Svc.Status(r.Context(), id)
	if err != nil {
		common.RenderError(w, err, h.ExposeDetails)
		return
	}
	body := map[string]any{
		"success":  true,
		"status":   result.Status,
		"amount":   result.Amount,
		"currency": result.Currency,
	}
	if result.CustomerID != "" {
		body["customerId"] = result.CustomerID
	}
	if result.MerchantOrderID != "" {
		body["merchantOrderId"] = result.MerchantOrderID
	}
	common.JSON(w, http.StatusOK, body)
}

// validate runs struct validation and converts the first failure into the
// caller-facing field name.
func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	err := h.Validate.Struct(v)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		field := jsonFieldName(fieldErrs[0].Field())
		return common.ValidationError(field, field+" is invalid")
	}
	return common.ValidationError("body", "Invalid request body")
}

func jsonFieldName(structField string) string {
	switch structField {
	case "OrderID":
		return "orderId"
	case "PaymentIntentID":
		return "paymentIntentId"
	case "PaymentMethodID":
		return "paymentMethodId"
	case "Currency":
		return "currency"
	case "Amount":
		return "amount"
	default:
		return strings.ToLower(structField)
	}
}
