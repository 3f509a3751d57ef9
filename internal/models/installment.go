package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus defines the status of a quarterly installment
type InstallmentStatus string

const (
	InstallmentStatusScheduled InstallmentStatus = "SCHEDULED"
	InstallmentStatusPaid      InstallmentStatus = "PAID"
)

// InstallmentPlan is derived from PropertyTerms on every read and never stored
type InstallmentPlan struct {
	Principal               decimal.Decimal `json:"principal"`
	InterestPortion         decimal.Decimal `json:"interest_portion"`
	TotalPayable            decimal.Decimal `json:"total_payable"`
	PerInstallmentPrincipal decimal.Decimal `json:"per_installment_principal"`
	PerInstallmentInterest  decimal.Decimal `json:"per_installment_interest"`
	PerInstallmentTotal     decimal.Decimal `json:"per_installment_total"`
	LateFeePerDay           decimal.Decimal `json:"late_fee_per_day"`
	FirstDueDate            time.Time       `json:"first_due_date"`
	NumberOfInstallments    int             `json:"number_of_installments"`
}

// Installment is one quarterly installment. Scheduled rows are derived from the plan;
// Paid rows are recorded once and never changed afterwards.
type Installment struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	PropertyID     uuid.UUID         `json:"property_id" db:"property_id"`
	SequenceNumber int               `json:"sequence_number" db:"sequence_number"`
	DueDate        time.Time         `json:"due_date" db:"due_date"`
	PaymentDate    *time.Time        `json:"payment_date,omitempty" db:"payment_date"`
	PrincipalPaid  decimal.Decimal   `json:"principal_paid" db:"principal_paid"`
	InterestPaid   decimal.Decimal   `json:"interest_paid" db:"interest_paid"`
	LateFeePaid    decimal.Decimal   `json:"late_fee_paid" db:"late_fee_paid"`
	DaysDelinquent int               `json:"days_delinquent" db:"days_delinquent"`
	Status         InstallmentStatus `json:"status" db:"status"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// IsPaid reports whether the installment has been paid
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// InstallmentDue describes an unpaid installment as of a given date
type InstallmentDue struct {
	SequenceNumber int             `json:"sequence_number"`
	DueDate        time.Time       `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
	DaysDelinquent int             `json:"days_delinquent"`
	AccruedLateFee decimal.Decimal `json:"accrued_late_fee"`
}

// IsOverdue reports whether the due date has passed
func (d InstallmentDue) IsOverdue() bool {
	return d.DaysDelinquent > 0
}

// PaymentLedgerSnapshot is the progress of an installment plan, recomputed on every read
type PaymentLedgerSnapshot struct {
	PaidAmount            decimal.Decimal `json:"paid_amount"`
	RemainingBalance      decimal.Decimal `json:"remaining_balance"`
	InstallmentsPaidCount int             `json:"installments_paid_count"`
	CompletionPercent     decimal.Decimal `json:"completion_percent"`
	NextDueDate           *time.Time      `json:"next_due_date"`
	LateFeesPaid          decimal.Decimal `json:"late_fees_paid"`
}

// FullyPaid reports whether no further installment is due
func (s PaymentLedgerSnapshot) FullyPaid() bool {
	return s.NextDueDate == nil
}
