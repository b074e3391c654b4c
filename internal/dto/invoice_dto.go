package dto

import (
	"invoicing/internal/billing"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LineItemRequest is one submitted row. Numeric fields decode leniently:
// missing or non-numeric values become 0 before validation runs.
type LineItemRequest struct {
	Description     string          `json:"description"     validate:"required,max=500"`
	Quantity        billing.Lenient `json:"quantity"        validate:"gt=0"`
	UnitPrice       billing.Lenient `json:"unitPrice"       validate:"min=0"`
	TaxPercent      billing.Lenient `json:"taxPercent"      validate:"min=0,max=100"`
	DiscountPercent billing.Lenient `json:"discountPercent" validate:"min=0,max=100"`
}

// LineItem strips the row down to the totals engine input.
func (r LineItemRequest) LineItem() billing.LineItem {
	return billing.LineItem{
		Quantity:        r.Quantity.Decimal,
		UnitPrice:       r.UnitPrice.Decimal,
		TaxPercent:      r.TaxPercent.Decimal,
		DiscountPercent: r.DiscountPercent.Decimal,
	}
}

// CreateInvoiceRequest is the body of POST /v1/invoices. Number is optional;
// when empty the next sequential number is assigned.
type CreateInvoiceRequest struct {
	Number         string  `json:"number"         validate:"omitempty,max=40"`
	CompanyName    *string `json:"companyName"    validate:"omitempty,max=200"`
	CompanyAddress *string `json:"companyAddress"`
	CompanyEmail   *string `json:"companyEmail"   validate:"omitempty,email"`
	CompanyPhone   *string `json:"companyPhone"   validate:"omitempty,max=50"`

	ClientID      *string `json:"clientId"      validate:"omitempty,uuid"`
	ClientName    string  `json:"clientName"    validate:"required_without=ClientID,max=200"`
	ClientDetails *string `json:"clientDetails"`

	Date    string  `json:"date"    validate:"required,datetime=2006-01-02"`
	DueDate *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Notes   *string `json:"notes"`
	Terms   *string `json:"terms"`

	Items         []LineItemRequest `json:"items"         validate:"dive"`
	PaymentStatus string            `json:"paymentStatus" validate:"omitempty,oneof=Unpaid Paid Overdue Pending"`
}

// LineItems returns the engine input for every submitted row.
func LineItems(rows []LineItemRequest) []billing.LineItem {
	items := make([]billing.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.LineItem())
	}
	return items
}

// DraftItemRequest is a row of an unsaved invoice. Nothing is required:
// every numeric field coerces to 0 and the description is ignored.
type DraftItemRequest struct {
	Description     string          `json:"description"`
	Quantity        billing.Lenient `json:"quantity"`
	UnitPrice       billing.Lenient `json:"unitPrice"`
	TaxPercent      billing.Lenient `json:"taxPercent"`
	DiscountPercent billing.Lenient `json:"discountPercent"`
}

// TotalsRequest is the body of POST /v1/invoices/totals.
type TotalsRequest struct {
	Items []DraftItemRequest `json:"items"`
}

// LineItems returns the engine input for every draft row.
func (r TotalsRequest) LineItems() []billing.LineItem {
	items := make([]billing.LineItem, 0, len(r.Items))
	for _, row := range r.Items {
		items = append(items, billing.LineItem{
			Quantity:        row.Quantity.Decimal,
			UnitPrice:       row.UnitPrice.Decimal,
			TaxPercent:      row.TaxPercent.Decimal,
			DiscountPercent: row.DiscountPercent.Decimal,
		})
	}
	return items
}

// UpdateStatusRequest is checked against the known statuses by the service.
type UpdateStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

type EmailInvoiceRequest struct {
	To      string `json:"to"      validate:"required,email"`
	Message string `json:"message" validate:"max=2000"`
}

// ─── Filter / List ──────────────────────────────────────────────────────────

// InvoiceFilter is bound from the query string of GET /v1/invoices and the
// report endpoints.
type InvoiceFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status"    validate:"omitempty,oneof=Unpaid Paid Overdue Pending"`
	DateFrom string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   validate:"omitempty,datetime=2006-01-02"`
	ClientID string `form:"client_id" validate:"omitempty,uuid"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineItemResponse struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TaxPercent      decimal.Decimal `json:"taxPercent"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Amount          decimal.Decimal `json:"amount"`
}

type InvoiceResponse struct {
	ID             string  `json:"id"`
	Number         string  `json:"number"`
	CompanyName    *string `json:"companyName,omitempty"`
	CompanyAddress *string `json:"companyAddress,omitempty"`
	CompanyEmail   *string `json:"companyEmail,omitempty"`
	CompanyPhone   *string `json:"companyPhone,omitempty"`
	ClientID       *string `json:"clientId,omitempty"`
	ClientName     string  `json:"clientName"`
	ClientDetails  *string `json:"clientDetails,omitempty"`
	Date           string  `json:"date"`
	DueDate        *string `json:"dueDate,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Terms          *string `json:"terms,omitempty"`

	Items         []LineItemResponse `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TotalTax      decimal.Decimal    `json:"totalTax"`
	TotalDiscount decimal.Decimal    `json:"totalDiscount"`
	GrandTotal    decimal.Decimal    `json:"grandTotal"`
	PaymentStatus string             `json:"paymentStatus"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
}

type InvoiceListResponse struct {
	Data  []InvoiceResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type NextNumberResponse struct {
	Number string `json:"number"`
}
