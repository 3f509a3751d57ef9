package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"allotment-service/internal/models"
)

// Schedule derives the installment plan for a property's sale terms.
// Identical terms always produce an identical plan.
func (e *Engine) Schedule(terms models.PropertyTerms) (models.InstallmentPlan, error) {
	if terms.NumberOfInstallments <= 0 {
		return models.InstallmentPlan{}, fmt.Errorf("%w: number of installments must be positive, got %d",
			models.ErrInvalidTerms, terms.NumberOfInstallments)
	}
	if terms.AllotmentDate.IsZero() {
		return models.InstallmentPlan{}, fmt.Errorf("%w: allotment date is required", models.ErrInvalidDate)
	}
	if terms.AnnualInterestRatePercent.IsNegative() {
		return models.InstallmentPlan{}, fmt.Errorf("%w: interest rate cannot be negative", models.ErrInvalidTerms)
	}

	principal := terms.Principal()
	if principal.IsNegative() {
		return models.InstallmentPlan{}, fmt.Errorf("%w: upfront payments exceed sale price by %s",
			models.ErrInvalidTerms, principal.Neg().StringFixed(2))
	}

	n := decimal.NewFromInt(int64(terms.NumberOfInstallments))

	// Annual interest is halved regardless of term length.
	interest := principal.Mul(terms.AnnualInterestRatePercent).
		Div(hundred).
		Div(decimal.NewFromInt(e.policy.InterestDivisor))
	total := principal.Add(interest)
	perTotal := total.Div(n)

	lateFeePerDay := e.policy.PenalRatePercent.Div(hundred).
		Mul(perTotal).
		Div(decimal.NewFromInt(e.policy.DaysInYear))

	return models.InstallmentPlan{
		Principal:               principal,
		InterestPortion:         interest,
		TotalPayable:            total,
		PerInstallmentPrincipal: principal.Div(n),
		PerInstallmentInterest:  interest.Div(n),
		PerInstallmentTotal:     perTotal,
		LateFeePerDay:           lateFeePerDay,
		FirstDueDate:            AddMonths(terms.AllotmentDate, e.policy.GraceMonths),
		NumberOfInstallments:    terms.NumberOfInstallments,
	}, nil
}

// Installments lays out all N installments of the plan. Recorded Paid installments
// are returned as recorded; every other sequence number gets a Scheduled row.
func (e *Engine) Installments(plan models.InstallmentPlan, recorded []*models.Installment) ([]*models.Installment, error) {
	paid := paidBySequence(recorded)

	rows := make([]*models.Installment, 0, plan.NumberOfInstallments)
	for seq := 1; seq <= plan.NumberOfInstallments; seq++ {
		if inst, ok := paid[seq]; ok {
			rows = append(rows, inst)
			continue
		}

		due, err := e.DueDateForInstallment(plan.FirstDueDate, seq)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &models.Installment{
			SequenceNumber: seq,
			DueDate:        due,
			PrincipalPaid:  decimal.Zero,
			InterestPaid:   decimal.Zero,
			LateFeePaid:    decimal.Zero,
			Status:         models.InstallmentStatusScheduled,
		})
	}
	return rows, nil
}

func paidBySequence(recorded []*models.Installment) map[int]*models.Installment {
	paid := make(map[int]*models.Installment, len(recorded))
	for _, inst := range recorded {
		if inst == nil || !inst.IsPaid() {
			continue
		}
		if _, seen := paid[inst.SequenceNumber]; !seen {
			paid[inst.SequenceNumber] = inst
		}
	}
	return paid
}
