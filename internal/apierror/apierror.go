// Package apierror defines the JSON envelopes returned on 4xx/5xx responses.
// Handlers never serialize raw errors from the store; they go through here.
package apierror

// APIError is the envelope for every error without per-field detail.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError lists the rejected fields of a movement, keyed by their
// JSON path ("ingreso.montoTotal").
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
