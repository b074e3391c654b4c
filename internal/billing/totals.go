// Package billing holds the invoice arithmetic: line-item totals and the
// sequential invoice numbering scheme. Nothing here performs I/O, so every
// function is safe to call concurrently on caller-owned input.
package billing

import "github.com/shopspring/decimal"

// onePercent multiplies instead of dividing by 100 so contributions stay exact.
var onePercent = decimal.New(1, -2)

// LineItem is the numeric part of one billable row. Zero values stand in for
// anything the client sent that was missing or not a number.
type LineItem struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TaxPercent      decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Amount returns quantity × unit price.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Totals is the aggregate over an invoice's items.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalTax      decimal.Decimal `json:"totalTax"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// ComputeTotals accumulates subtotal, tax and discount in a single pass.
// Nothing is rounded here; Rounded is for presentation. A negative grand
// total is returned as-is and left for the caller to reject.
func ComputeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := decimal.Zero

	for _, item := range items {
		amount := item.Amount()
		subtotal = subtotal.Add(amount)
		tax = tax.Add(amount.Mul(item.TaxPercent).Mul(onePercent))
		discount = discount.Add(amount.Mul(item.DiscountPercent).Mul(onePercent))
	}

	return Totals{
		Subtotal:      subtotal,
		TotalTax:      tax,
		TotalDiscount: discount,
		GrandTotal:    subtotal.Add(tax).Sub(discount),
	}
}

// Rounded returns a copy with every field rounded half away from zero to
// two decimals.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:      t.Subtotal.Round(2),
		TotalTax:      t.TotalTax.Round(2),
		TotalDiscount: t.TotalDiscount.Round(2),
		GrandTotal:    t.GrandTotal.Round(2),
	}
}

// IsNegative reports whether the grand total is below zero.
func (t Totals) IsNegative() bool {
	return t.GrandTotal.IsNegative()
}
