package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registrationJSON = `{
	"allottee_name": " Ramesh Kumar ",
	"allottee_email": "ramesh@example.in",
	"scheme_name": "Sector 12 Housing",
	"floor_category": "lgf",
	"terms": {
		"total_sale_price": "1000000",
		"registration_amount": "50000",
		"allotment_amount": "50000",
		"lump_sum_discount": "0",
		"annual_interest_rate_percent": "12",
		"number_of_installments": 4,
		"allotment_date": "2024-01-15"
	}
}`

func TestPropertyRegistration_ToProperty(t *testing.T) {
	var reg PropertyRegistration
	require.NoError(t, json.Unmarshal([]byte(registrationJSON), &reg))

	property, err := reg.ToProperty()
	require.NoError(t, err)

	assert.NotEmpty(t, property.ID.String())
	assert.Equal(t, "Ramesh Kumar", property.AllotteeName)
	assert.Equal(t, "LGF", property.FloorCategory)
	assert.Equal(t, 4, property.NumberOfInstallments)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), property.AllotmentDate)
	assert.Equal(t, "900000", property.Principal().String())
}

func TestPropertyRegistration_MissingAmountFails(t *testing.T) {
	var reg PropertyRegistration
	require.NoError(t, json.Unmarshal([]byte(registrationJSON), &reg))
	reg.Terms.LumpSumDiscount = nil

	_, err := reg.ToProperty()
	assert.ErrorIs(t, err, ErrInvalidTerms)
	assert.Contains(t, err.Error(), "LumpSumDiscount")
}

func TestPropertyTermsInput_ToTerms(t *testing.T) {
	var reg PropertyRegistration
	require.NoError(t, json.Unmarshal([]byte(registrationJSON), &reg))

	zero := 0
	in := reg.Terms
	in.NumberOfInstallments = &zero
	_, err := in.ToTerms()
	assert.ErrorIs(t, err, ErrInvalidTerms)

	in = reg.Terms
	negative := reg.Terms.AllotmentAmount.Neg()
	in.AllotmentAmount = &negative
	_, err = in.ToTerms()
	assert.ErrorIs(t, err, ErrInvalidTerms)

	in = reg.Terms
	in.AllotmentDate = "sometime in spring"
	_, err = in.ToTerms()
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestPropertyRegistration_Invalid(t *testing.T) {
	var reg PropertyRegistration
	require.NoError(t, json.Unmarshal([]byte(registrationJSON), &reg))
	reg.AllotteeEmail = "not-an-email"

	_, err := reg.ToProperty()
	assert.ErrorIs(t, err, ErrInvalidTerms)

	reg.AllotteeEmail = ""
	reg.SchemeName = "   "
	_, err = reg.ToProperty()
	assert.ErrorIs(t, err, ErrInvalidTerms)
}
