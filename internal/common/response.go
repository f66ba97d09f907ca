package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical
// {success:false, error:...} shape.
func JSONError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{
		"success": false,
		"error":   message,
	}
	if details != nil {
		body["details"] = details
	}
	JSON(w, status, body)
}

// RenderError converts any error into the canonical outward shape. Raw
// provider payloads (AppError.Details) are attached only when exposeDetails
// is set, i.e. outside production.
func RenderError(w http.ResponseWriter, err error, exposeDetails bool) {
	var app *AppError
	if !errors.As(err, &app) {
		JSONError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	status := app.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	var details any
	if exposeDetails {
		details = app.Details
	}
	JSONError(w, status, app.Message, details)
}
