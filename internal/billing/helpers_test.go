package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allotment-service/internal/models"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func assertDecimalNear(t *testing.T, expected, actual decimal.Decimal, epsilon string) {
	t.Helper()
	diff := expected.Sub(actual).Abs()
	assert.True(t, diff.LessThanOrEqual(dec(epsilon)), "expected %s within %s of %s", actual, epsilon, expected)
}

func sampleTerms(t *testing.T) models.PropertyTerms {
	return models.PropertyTerms{
		TotalSalePrice:            dec("1000000"),
		RegistrationAmount:        dec("50000"),
		AllotmentAmount:           dec("50000"),
		LumpSumDiscount:           decimal.Zero,
		AnnualInterestRatePercent: dec("12"),
		NumberOfInstallments:      4,
		AllotmentDate:             date(t, "2024-01-15"),
	}
}
