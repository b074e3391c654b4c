package billing

// PaymentStatus is the single mutable field of a stored invoice. Any status
// can be written over any other; nothing moves an invoice to Overdue on its
// own.
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "Unpaid"
	StatusPaid    PaymentStatus = "Paid"
	StatusOverdue PaymentStatus = "Overdue"
	StatusPending PaymentStatus = "Pending"
)

// Statuses lists every status in display order.
var Statuses = []PaymentStatus{StatusUnpaid, StatusPaid, StatusOverdue, StatusPending}

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusOverdue, StatusPending:
		return true
	}
	return false
}

// Outstanding reports whether money is still owed under s.
func (s PaymentStatus) Outstanding() bool {
	return s != StatusPaid
}
