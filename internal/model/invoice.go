package model

import (
	"time"

	"invoicing/internal/billing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a stored invoice. Number and totals are fixed at creation;
// afterwards only PaymentStatus changes, or the whole row is deleted.
// Date and DueDate are calendar dates in YYYY-MM-DD form.
type Invoice struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Number string    `gorm:"type:varchar(40);uniqueIndex;not null"`

	CompanyName    *string `gorm:"type:varchar(200)"`
	CompanyAddress *string
	CompanyEmail   *string `gorm:"type:varchar(200)"`
	CompanyPhone   *string `gorm:"type:varchar(50)"`

	ClientID      *uuid.UUID `gorm:"type:uuid;index"`
	ClientName    string     `gorm:"type:varchar(200);index;not null"`
	ClientDetails *string

	Date    string  `gorm:"type:varchar(10);index;not null"`
	DueDate *string `gorm:"type:varchar(10)"`
	Notes   *string
	Terms   *string

	// Totals are stored unrounded
	Subtotal      decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	TotalTax      decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	TotalDiscount decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric;not null;default:0"`

	PaymentStatus billing.PaymentStatus `gorm:"type:varchar(20);index;not null;default:'Unpaid'"`
	CreatedAt     time.Time             `gorm:"index"`
	UpdatedAt     time.Time

	Items  []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Client *Client       `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL"`
}

func (i *Invoice) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Totals returns the stored totals.
func (i *Invoice) Totals() billing.Totals {
	return billing.Totals{
		Subtotal:      i.Subtotal,
		TotalTax:      i.TotalTax,
		TotalDiscount: i.TotalDiscount,
		GrandTotal:    i.GrandTotal,
	}
}

// ApplyTotals copies computed totals onto the invoice.
func (i *Invoice) ApplyTotals(t billing.Totals) {
	i.Subtotal = t.Subtotal
	i.TotalTax = t.TotalTax
	i.TotalDiscount = t.TotalDiscount
	i.GrandTotal = t.GrandTotal
}

// InvoiceItem is one line of an invoice. Position keeps the submitted order.
type InvoiceItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Position        int             `gorm:"not null;default:0"`
	Description     string          `gorm:"not null"`
	Quantity        decimal.Decimal `gorm:"type:numeric;not null"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric;not null"`
	TaxPercent      decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric;not null;default:0"`
}

func (it *InvoiceItem) BeforeCreate(_ *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// LineItem projects the row onto the totals engine input.
func (it InvoiceItem) LineItem() billing.LineItem {
	return billing.LineItem{
		Quantity:        it.Quantity,
		UnitPrice:       it.UnitPrice,
		TaxPercent:      it.TaxPercent,
		DiscountPercent: it.DiscountPercent,
	}
}

// Amount is quantity × unit price before tax and discount.
func (it InvoiceItem) Amount() decimal.Decimal {
	return it.LineItem().Amount()
}
