package payment

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/airwallex-bridge/internal/airwallex"
	"github.com/noah-isme/airwallex-bridge/internal/common"
	"github.com/noah-isme/airwallex-bridge/internal/obs"
)

const defaultCurrency = "USD"

// Processor abstracts the operations required from the upstream payment
// provider.
type Processor interface {
	CreateIntent(ctx context.Context, req airwallex.CreateIntentRequest) (airwallex.Intent, error)
	ConfirmIntent(ctx context.Context, intentID string, req airwallex.ConfirmRequest) (airwallex.Intent, error)
	GetIntent(ctx context.Context, intentID string) (airwallex.Intent, error)
}

// Service validates caller input, normalises amounts and forwards payment
// operations to the processor. It holds no per-request state.
type Service struct {
	Processor Processor
	Logger    zerolog.Logger
}

// IntentResult is the outward projection of a created payment intent.
type IntentResult struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// StatusResult is the outward projection of a payment status lookup.
type StatusResult struct {
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	CustomerID      string `json:"customerId,omitempty"`
	MerchantOrderID string `json:"merchantOrderId,omitempty"`
}

// MinorUnits converts a major-unit amount into integer minor units (cents).
// This is the only place the conversion happens; everything behind the HTTP
// boundary works in minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent validates the charge request and opens an intent with the
// processor. Invalid input fails before any outbound call is made.
func (s *Service) CreateIntent(ctx context.Context, amount float64, currency, orderID string) (IntentResult, error) {
	var zero IntentResult
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		obs.ObservePaymentOp("create_intent", common.CodeValidation)
		return zero, common.ValidationError("amount", "Amount must be a positive number")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		obs.ObservePaymentOp("create_intent", common.CodeValidation)
		return zero, common.ValidationError("orderId", "orderId is required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}

	minor := MinorUnits(amount)
	req := airwallex.CreateIntentRequest{
		RequestID:       newRequestID(),
		Amount:          minor,
		Currency:        currency,
		MerchantOrderID: orderID,
		Order: &airwallex.Order{
			Products: []airwallex.Product{{
				Name:      "Order " + orderID,
				Quantity:  1,
				UnitPrice: minor,
			}},
		},
	}
	intent, err := s.Processor.CreateIntent(ctx, req)
	if err != nil {
		obs.ObservePaymentOp("create_intent", common.CodeOf(err))
		s.Logger.Error().Err(err).Str("order_id", orderID).Msg("create intent failed")
		return zero, err
	}
	obs.ObservePaymentOp("create_intent", "ok")
	return IntentResult{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

// Confirm forwards a confirmation for an existing intent.
func (s *Service) Confirm(ctx context.Context, intentID, paymentMethodID string) (airwallex.Intent, error) {
	var zero airwallex.Intent
	intentID = strings.TrimSpace(intentID)
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if intentID == "" {
		obs.ObservePaymentOp("confirm", common.CodeValidation)
		return zero, common.ValidationError("paymentIntentId", "paymentIntentId is required")
	}
	if paymentMethodID == "" {
		obs.ObservePaymentOp("confirm", common.CodeValidation)
		return zero, common.ValidationError("paymentMethodId", "paymentMethodId is required")
	}
	req := airwallex.ConfirmRequest{
		RequestID: newRequestID(),
		PaymentMethod: airwallex.PaymentMethod{
			Type: "card",
			ID:   paymentMethodID,
		},
	}
	intent, err := s.Processor.ConfirmIntent(ctx, intentID, req)
	if err != nil {
		obs.ObservePaymentOp("confirm", common.CodeOf(err))
		s.Logger.Error().Err(err).Str("intent_id", intentID).Msg("confirm intent failed")
		return zero, err
	}
	obs.ObservePaymentOp("confirm", "ok")
	return intent, nil
}

// Status looks up the current state of an intent. Status checks are
// non-critical reads, so every processor failure collapses into a single
// stable error without provider detail.
func (s *Service) Status(ctx context.Context, intentID string) (StatusResult, error) {
	var zero StatusResult
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		obs.ObservePaymentOp("status", common.CodeValidation)
		return zero, common.ValidationError("paymentIntentId", "paymentIntentId is required")
	}
	intent, err := s.Processor.GetIntent(ctx, intentID)
	if err != nil {
		obs.ObservePaymentOp("status", common.CodeOf(err))
		s.Logger.Error().Err(err).Str("intent_id", intentID).Msg("status lookup failed")
		return zero, common.NewAppError(common.CodeStatusUnavailable, "Failed to get payment status", http.StatusBadGateway, err)
	}
	obs.ObservePaymentOp("status", "ok")
	return StatusResult{
		Status:          intent.Status,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		CustomerID:      intent.CustomerID,
		MerchantOrderID: intent.MerchantOrderID,
	}, nil
}

func newRequestID() string {
	return "pi_req_" + uuid.NewString()
}
