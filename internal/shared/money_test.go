package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("1250.50")
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("1250.5")))

	_, err = ParseAmount("abc")
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestRequireNonNegative(t *testing.T) {
	require.NoError(t, RequireNonNegative("amount", decimal.Zero))
	err := RequireNonNegative("amount", decimal.NewFromInt(-1))
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1,250.00", FormatAmount(decimal.NewFromInt(1250)))
	require.Equal(t, "0.50", FormatAmount(decimal.RequireFromString("0.5")))
}

func TestNumericRoundTrip(t *testing.T) {
	in := decimal.RequireFromString("123456.78")
	out := DecimalFromNumeric(NumericFromDecimal(in))
	require.True(t, in.Equal(out), "got %s", out)
}
