// internal/domain/sequence/format.go
package sequence

import (
	"fmt"
	"time"
)

// OrderScope is the per-day counter scope for order numbers.
func OrderScope(day time.Time) string {
	return "order:" + day.Format("20060102")
}

// InvoiceScope is the per-year counter scope for invoice numbers.
func InvoiceScope(day time.Time) string {
	return fmt.Sprintf("invoice:%04d", day.Year())
}

// FormatOrderNumber renders LV{YY}{MM}{DD}-{seq3}. Sequences past 999 keep all digits.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("LV%02d%02d%02d-%03d", day.Year()%100, int(day.Month()), day.Day(), seq)
}

// FormatInvoiceNumber renders {YYYY}-{seq4}.
func FormatInvoiceNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%04d-%04d", day.Year(), seq)
}
