package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// PropertyTerms are the sale terms recorded when a property is registered.
// They are immutable once stored.
type PropertyTerms struct {
	TotalSalePrice            decimal.Decimal `json:"total_sale_price" db:"total_sale_price"`
	RegistrationAmount        decimal.Decimal `json:"registration_amount" db:"registration_amount"`
	AllotmentAmount           decimal.Decimal `json:"allotment_amount" db:"allotment_amount"`
	LumpSumDiscount           decimal.Decimal `json:"lump_sum_discount" db:"lump_sum_discount"`
	AnnualInterestRatePercent decimal.Decimal `json:"annual_interest_rate_percent" db:"annual_interest_rate_percent"`
	NumberOfInstallments      int             `json:"number_of_installments" db:"number_of_installments"`
	AllotmentDate             time.Time       `json:"allotment_date" db:"allotment_date"`
}

// Principal is the amount financed through installments.
// It may be negative for inconsistent terms; the scheduler rejects that.
func (t PropertyTerms) Principal() decimal.Decimal {
	upfront := t.RegistrationAmount.Add(t.AllotmentAmount).Add(t.LumpSumDiscount)
	return t.TotalSalePrice.Sub(upfront)
}

// Property is an allotted property parcel and its allottee
type Property struct {
	ID            uuid.UUID `json:"id" db:"id"`
	AllotteeName  string    `json:"allottee_name" db:"allottee_name"`
	AllotteeEmail string    `json:"allottee_email,omitempty" db:"allottee_email"`
	SchemeName    string    `json:"scheme_name" db:"scheme_name"`
	FloorCategory string    `json:"floor_category" db:"floor_category"`
	PropertyTerms
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PropertyTermsInput is the boundary schema for sale terms.
// Every field is required so that a missing amount fails instead of reading as zero.
type PropertyTermsInput struct {
	TotalSalePrice            *decimal.Decimal `json:"total_sale_price" validate:"required"`
	RegistrationAmount        *decimal.Decimal `json:"registration_amount" validate:"required"`
	AllotmentAmount           *decimal.Decimal `json:"allotment_amount" validate:"required"`
	LumpSumDiscount           *decimal.Decimal `json:"lump_sum_discount" validate:"required"`
	AnnualInterestRatePercent *decimal.Decimal `json:"annual_interest_rate_percent" validate:"required"`
	NumberOfInstallments      *int             `json:"number_of_installments" validate:"required,gt=0"`
	AllotmentDate             string           `json:"allotment_date" validate:"required"`
}

// PropertyRegistration is the payload accepted when a property is registered
type PropertyRegistration struct {
	AllotteeName  string             `json:"allottee_name" validate:"required"`
	AllotteeEmail string             `json:"allottee_email" validate:"omitempty,email"`
	SchemeName    string             `json:"scheme_name" validate:"required"`
	FloorCategory string             `json:"floor_category" validate:"required"`
	Terms         PropertyTermsInput `json:"terms"`
}

// ToTerms validates the input and converts it to PropertyTerms
func (in *PropertyTermsInput) ToTerms() (PropertyTerms, error) {
	if err := validate.Struct(in); err != nil {
		return PropertyTerms{}, fmt.Errorf("%w: %s", ErrInvalidTerms, describeValidation(err))
	}

	amounts := map[string]decimal.Decimal{
		"total_sale_price":             *in.TotalSalePrice,
		"registration_amount":          *in.RegistrationAmount,
		"allotment_amount":             *in.AllotmentAmount,
		"lump_sum_discount":            *in.LumpSumDiscount,
		"annual_interest_rate_percent": *in.AnnualInterestRatePercent,
	}
	for name, amount := range amounts {
		if amount.IsNegative() {
			return PropertyTerms{}, fmt.Errorf("%w: %s cannot be negative", ErrInvalidTerms, name)
		}
	}

	allotmentDate, err := ParseDate(in.AllotmentDate)
	if err != nil {
		return PropertyTerms{}, err
	}

	return PropertyTerms{
		TotalSalePrice:            *in.TotalSalePrice,
		RegistrationAmount:        *in.RegistrationAmount,
		AllotmentAmount:           *in.AllotmentAmount,
		LumpSumDiscount:           *in.LumpSumDiscount,
		AnnualInterestRatePercent: *in.AnnualInterestRatePercent,
		NumberOfInstallments:      *in.NumberOfInstallments,
		AllotmentDate:             allotmentDate,
	}, nil
}

// ToProperty validates the registration and builds a new Property with a fresh ID
func (r *PropertyRegistration) ToProperty() (*Property, error) {
	r.AllotteeName = strings.TrimSpace(r.AllotteeName)
	r.SchemeName = strings.TrimSpace(r.SchemeName)
	r.FloorCategory = strings.ToUpper(strings.TrimSpace(r.FloorCategory))
	r.AllotteeEmail = strings.TrimSpace(r.AllotteeEmail)

	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTerms, describeValidation(err))
	}

	terms, err := r.Terms.ToTerms()
	if err != nil {
		return nil, err
	}

	return &Property{
		ID:            uuid.New(),
		AllotteeName:  r.AllotteeName,
		AllotteeEmail: r.AllotteeEmail,
		SchemeName:    r.SchemeName,
		FloorCategory: r.FloorCategory,
		PropertyTerms: terms,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// describeValidation flattens validator errors into "field: rule" pairs
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
