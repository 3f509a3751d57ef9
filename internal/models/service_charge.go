package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceChargeStatus defines the status of an annual service charge
type ServiceChargeStatus string

const (
	ServiceChargeStatusDue  ServiceChargeStatus = "DUE"
	ServiceChargeStatusPaid ServiceChargeStatus = "PAID"
)

// ServiceChargeObligation is the service charge for one financial year.
// LateFeeUnsupported marks a Due year too far overdue for the late fee tiers;
// its LateFeeAmount is left at zero.
type ServiceChargeObligation struct {
	ID                 uuid.UUID           `json:"id" db:"id"`
	PropertyID         uuid.UUID           `json:"property_id" db:"property_id"`
	FinancialYear      FinancialYear       `json:"financial_year" db:"financial_year"`
	BaseAmount         decimal.Decimal     `json:"base_amount" db:"base_amount"`
	LateFeeAmount      decimal.Decimal     `json:"late_fee_amount" db:"late_fee_amount"`
	LateFeeUnsupported bool                `json:"late_fee_unsupported,omitempty" db:"-"`
	PaymentDate        *time.Time          `json:"payment_date,omitempty" db:"payment_date"`
	Status             ServiceChargeStatus `json:"status" db:"status"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}

// Total is the base amount plus the late fee
func (o *ServiceChargeObligation) Total() decimal.Decimal {
	return o.BaseAmount.Add(o.LateFeeAmount)
}

// IsPaid reports whether the obligation has been paid
func (o *ServiceChargeObligation) IsPaid() bool {
	return o.Status == ServiceChargeStatusPaid
}

// ServiceChargeStatement lists every billable year of a property as of a date.
// TotalOutstanding sums the Due years that can be priced; UnsupportedYears are
// Due years outside the late fee tiers and are not part of the total.
type ServiceChargeStatement struct {
	AsOf             time.Time                  `json:"as_of"`
	CurrentYear      FinancialYear              `json:"current_year"`
	Obligations      []*ServiceChargeObligation `json:"obligations"`
	PaidYears        []FinancialYear            `json:"paid_years"`
	DueYears         []FinancialYear            `json:"due_years"`
	UnsupportedYears []FinancialYear            `json:"unsupported_years,omitempty"`
	TotalOutstanding decimal.Decimal            `json:"total_outstanding"`
}

// Complete reports whether every Due year is priced into TotalOutstanding
func (s *ServiceChargeStatement) Complete() bool {
	return len(s.UnsupportedYears) == 0
}
