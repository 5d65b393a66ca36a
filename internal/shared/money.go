package shared

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Monetary values stay decimal-exact through every computation. Conversion to
// float happens here, at the presentation boundary, and nowhere else.

var amountPrinter = message.NewPrinter(language.English)

// ParseAmount parses a caller-supplied amount string.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ValidationError("invalid amount %q", raw)
	}
	return d, nil
}

// RequireNonNegative rejects negative monetary input.
func RequireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return ValidationError("%s must not be negative", field)
	}
	return nil
}

// AmountFloat converts a decimal to float64 for JSON payloads.
func AmountFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// FormatAmount renders a decimal with thousand separators and two fraction
// digits for display fields.
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return amountPrinter.Sprintf("%.2f", f)
}

// NumericFromDecimal converts to the pgx wire type.
func NumericFromDecimal(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}

// DecimalFromNumeric converts from the pgx wire type, treating NULL as zero.
func DecimalFromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	value, err := n.Value()
	if err != nil {
		return decimal.Zero
	}
	s, ok := value.(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
