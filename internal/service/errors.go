package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map them to HTTP
// statuses with errors.Is.
var (
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrDuplicateNumber  = errors.New("invoice number already exists")
	ErrNegativeTotal    = errors.New("grand total cannot be negative")
	ErrInvalidStatus    = errors.New("unknown payment status")
	ErrQueueUnavailable = errors.New("job queue unavailable")
)
