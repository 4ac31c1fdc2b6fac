package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cajadual/backend/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestToLocalAndBack(t *testing.T) {
	local, err := ToLocal(d("10"), d("36.5"))
	require.NoError(t, err)
	assert.True(t, local.Equal(d("365")))

	usd, err := ToUSD(d("146"), d("36.5"))
	require.NoError(t, err)
	assert.True(t, usd.Equal(d("4")), "got %s", usd)
}

func TestConversionRejectsNonPositiveRate(t *testing.T) {
	for _, rate := range []string{"0", "-1"} {
		_, err := ToLocal(d("1"), d(rate))
		assert.ErrorIs(t, err, domain.ErrInvalidRate)
		_, err = ToUSD(d("1"), d(rate))
		assert.ErrorIs(t, err, domain.ErrInvalidRate)
	}
}

func TestWithinUsesCentTolerance(t *testing.T) {
	assert.True(t, Within(d("5.00"), d("5.01")))
	assert.True(t, Within(d("5.01"), d("5.00")))
	assert.False(t, Within(d("5.00"), d("5.02")))
	assert.False(t, Material(d("0.01")))
	assert.True(t, Material(d("0.011")))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(d("6"), d("10")).Equal(d("60")))
	assert.True(t, Percent(d("1"), d("0")).IsZero())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$10.00", FormatUSD(d("10")))
	assert.Equal(t, "$1,234.57", FormatUSD(d("1234.567")))
	assert.Equal(t, "Bs 365.00", FormatLocal(d("365")))

	es := NewFormatter("es")
	assert.Equal(t, "Bs 12.345,50", es.Local(d("12345.5")))
}
