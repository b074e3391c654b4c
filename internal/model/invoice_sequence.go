package model

import "time"

// InvoiceSequenceName is the row locked while a number is being assigned.
const InvoiceSequenceName = "invoices"

// InvoiceSequence is a lock row: creation selects it FOR UPDATE so number
// assignment and insert run one writer at a time across instances.
// LastNumber records the most recent generated number for inspection.
type InvoiceSequence struct {
	Name       string `gorm:"type:varchar(40);primaryKey"`
	LastNumber string `gorm:"type:varchar(40)"`
	Issued     int64  `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}
