package common

import (
	"errors"
	"net/http"
)

// Stable error codes surfaced by the API. Each maps to exactly one outward
// HTTP status so callers can rely on the pairing.
const (
	CodeValidation        = "VALIDATION"
	CodeConfig            = "CONFIG"
	CodeAuth              = "AUTH"
	CodeUnavailable       = "UNAVAILABLE"
	CodeTimeout           = "TIMEOUT"
	CodeNotFound          = "NOT_FOUND"
	CodeDeclined          = "DECLINED"
	CodeProtocol          = "PROTOCOL"
	CodePayment           = "PAYMENT"
	CodeStatusUnavailable = "STATUS_UNAVAILABLE"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches a diagnostic payload exposed only in development mode.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// ValidationError marks a malformed caller input, identified by field name.
func ValidationError(field, message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Details: map[string]string{"field": field}}
}

// ConfigError reports missing or invalid process configuration.
func ConfigError(message string) *AppError {
	return &AppError{Code: CodeConfig, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// AuthError reports that the processor rejected our credentials. The message
// never carries the credential values themselves.
func AuthError(err error) *AppError {
	return &AppError{Code: CodeAuth, Message: "Authentication with payment provider failed", HTTPStatus: http.StatusInternalServerError, Err: err}
}

// UnavailableError reports an unreachable or overloaded processor.
func UnavailableError(err error) *AppError {
	return &AppError{Code: CodeUnavailable, Message: "Payment service unavailable", HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

// TimeoutError reports an outbound call that exceeded its deadline. Mapped to
// 504 so callers can distinguish retryable failures from hard errors.
func TimeoutError(err error) *AppError {
	return &AppError{Code: CodeTimeout, Message: "Payment service timed out", HTTPStatus: http.StatusGatewayTimeout, Err: err}
}

// ProtocolError reports a malformed processor response.
func ProtocolError(message string, err error) *AppError {
	return &AppError{Code: CodeProtocol, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// CodeOf returns the stable code attached to err, or CodePayment when the
// error carries no taxonomy.
func CodeOf(err error) string {
	var target *AppError
	if errors.As(err, &target) {
		return target.Code
	}
	return CodePayment
}
