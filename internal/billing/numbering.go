package billing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// NumberPrefix starts every generated invoice number.
const NumberPrefix = "INV-"

var numberPattern = regexp.MustCompile(`INV-(\d+)`)

// FormatNumber renders n as INV- followed by at least four digits.
// Values past 9999 print wider; they are never truncated.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%s%04d", NumberPrefix, n)
}

// NextAfter derives the number that follows latest, the number of the most
// recently created invoice ("" for an empty store). When latest does not
// carry an INV-<digits> sequence, or the sequence has no successor in
// int64, the result falls back to count+1, where count is the number of
// stored invoices.
func NextAfter(latest string, count int64) string {
	next := count + 1
	if m := numberPattern.FindStringSubmatch(latest); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n < math.MaxInt64 {
			next = n + 1
		}
	}
	return FormatNumber(next)
}

// NextInvoiceNumber takes the numbers of all prior invoices ordered by
// creation time, oldest first, and returns the next one to assign.
// Sorting is the caller's job.
func NextInvoiceNumber(prior []string) string {
	if len(prior) == 0 {
		return NextAfter("", 0)
	}
	return NextAfter(prior[len(prior)-1], int64(len(prior)))
}
