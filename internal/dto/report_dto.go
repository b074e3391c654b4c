package dto

import "github.com/shopspring/decimal"

// StatusBucket aggregates invoices sharing one payment status.
type StatusBucket struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// ReportSummary backs the dashboard figures. Amounts are rounded to cents.
type ReportSummary struct {
	InvoiceCount int64                   `json:"invoiceCount"`
	Revenue      decimal.Decimal         `json:"revenue"`
	Paid         decimal.Decimal         `json:"paid"`
	Outstanding  decimal.Decimal         `json:"outstanding"`
	ByStatus     map[string]StatusBucket `json:"byStatus"`
}
