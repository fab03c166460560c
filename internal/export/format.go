package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// groupThousands inserts comma separators into an unsigned integer string.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	rem := n % 3
	if rem > 0 {
		b.WriteString(digits[:rem])
	}
	for i := rem; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatCurrency renders a dollar amount with thousand separators and
// two decimal places, e.g. 1234.5 -> "$1,234.50".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	whole := math.Floor(amount)
	cents := int(math.Round((amount - whole) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(strconv.FormatFloat(whole, 'f', 0, 64)), cents)
}

// FormatCount renders an integer with thousand separators,
// e.g. 1234567 -> "1,234,567".
func FormatCount(n int) string {
	if n < 0 {
		return "-" + groupThousands(strconv.Itoa(-n))
	}
	return groupThousands(strconv.Itoa(n))
}

// FormatQuantity renders a replenishment quantity. Whole values drop
// the fraction entirely.
func FormatQuantity(q float64) string {
	if q == math.Trunc(q) {
		return FormatCount(int(q))
	}
	return strconv.FormatFloat(q, 'f', 2, 64)
}
