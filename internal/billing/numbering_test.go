package billing_test

import (
	"testing"

	"invoicing/internal/billing"

	"github.com/stretchr/testify/assert"
)

func TestNextInvoiceNumber(t *testing.T) {
	tests := []struct {
		name  string
		prior []string
		want  string
	}{
		{name: "empty store", prior: nil, want: "INV-0001"},
		{name: "increments latest", prior: []string{"INV-0007"}, want: "INV-0008"},
		{name: "malformed latest falls back to count", prior: []string{"BAD-FORMAT"}, want: "INV-0002"},
		{name: "only latest matters", prior: []string{"INV-0100", "INV-0003"}, want: "INV-0004"},
		{name: "malformed latest after good ones", prior: []string{"INV-0001", "INV-0002", "manual"}, want: "INV-0004"},
		{name: "grows past four digits", prior: []string{"INV-9999"}, want: "INV-10000"},
		{name: "embedded match", prior: []string{"2024/INV-0042"}, want: "INV-0043"},
		{name: "leading zeros parsed as decimal", prior: []string{"INV-0099"}, want: "INV-0100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, billing.NextInvoiceNumber(tt.prior))
		})
	}
}

func TestNextAfter(t *testing.T) {
	assert.Equal(t, "INV-0001", billing.NextAfter("", 0))
	assert.Equal(t, "INV-0006", billing.NextAfter("", 5))
	assert.Equal(t, "INV-0013", billing.NextAfter("INV-12", 1))
	// too many digits for int64: count-based fallback
	assert.Equal(t, "INV-0004", billing.NextAfter("INV-99999999999999999999999", 3))
	// largest int64 has no successor: count-based fallback, never negative
	assert.Equal(t, "INV-0004", billing.NextAfter("INV-9223372036854775807", 3))
	assert.Equal(t, "INV-9223372036854775807", billing.NextAfter("INV-9223372036854775806", 3))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "INV-0001", billing.FormatNumber(1))
	assert.Equal(t, "INV-0420", billing.FormatNumber(420))
	assert.Equal(t, "INV-123456", billing.FormatNumber(123456))
}

func TestPaymentStatus_Valid(t *testing.T) {
	for _, s := range billing.Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, billing.PaymentStatus("paid").Valid())
	assert.False(t, billing.PaymentStatus("").Valid())
	assert.False(t, billing.StatusPaid.Outstanding())
	assert.True(t, billing.StatusOverdue.Outstanding())
}
