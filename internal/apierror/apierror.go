// Package apierror provides the error bodies returned by the API.
// Handlers build every 4xx/5xx response through it so that driver errors and
// stack traces never reach clients.
package apierror

// APIError is the envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError carries one entry per rejected field.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}
