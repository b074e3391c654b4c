package billing

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Lenient is a decimal that accepts a JSON number or a numeric string.
// Anything else (null, booleans, "abc", objects) decodes to zero instead of
// failing the whole request.
type Lenient struct {
	decimal.Decimal
}

// NewLenient wraps f.
func NewLenient(f float64) Lenient {
	return Lenient{Decimal: decimal.NewFromFloat(f)}
}

// UnmarshalJSON never returns an error.
func (l *Lenient) UnmarshalJSON(b []byte) error {
	l.Decimal = parseLenient(b)
	return nil
}

// UnmarshalText lets query and form binding use the same coercion.
func (l *Lenient) UnmarshalText(b []byte) error {
	l.Decimal = parseLenient(b)
	return nil
}

func parseLenient(b []byte) decimal.Decimal {
	s := string(bytes.TrimSpace(b))
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return decimal.Zero
		}
		s = strings.TrimSpace(unquoted)
	}
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
