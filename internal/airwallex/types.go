package airwallex

import "time"

// AuthToken is a short-lived bearer token issued by the processor's login
// endpoint.
type AuthToken struct {
	Value      string
	ObtainedAt time.Time
	ExpiresAt  time.Time
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// CreateIntentRequest is the payload for the intent-creation endpoint.
// Amount and unit prices are integers in minor units.
type CreateIntentRequest struct {
	RequestID       string `json:"request_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	MerchantOrderID string `json:"merchant_order_id"`
	Order           *Order `json:"order,omitempty"`
}

// Order carries the line items attached to an intent.
type Order struct {
	Products []Product `json:"products"`
}

// Product is a single order line item.
type Product struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// ConfirmRequest is the payload for the intent-confirmation endpoint.
type ConfirmRequest struct {
	RequestID     string        `json:"request_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// PaymentMethod references a stored payment method by id.
type PaymentMethod struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Intent is the subset of the processor's payment intent resource this
// service consumes. Provider-internal fields are deliberately not modelled so
// they can never leak through.
type Intent struct {
	ID              string `json:"id"`
	ClientSecret    string `json:"client_secret"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	CustomerID      string `json:"customer_id"`
	MerchantOrderID string `json:"merchant_order_id"`
}

// providerError is the error envelope the processor returns on failures.
type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
