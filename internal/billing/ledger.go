package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"allotment-service/internal/models"
)

// Snapshot reduces the recorded installments of a plan to its payment progress.
// Late fees are summed separately and do not count toward the paid amount.
// Installments need not have been paid in sequence order.
func (e *Engine) Snapshot(plan models.InstallmentPlan, installments []*models.Installment) (models.PaymentLedgerSnapshot, error) {
	if plan.NumberOfInstallments <= 0 {
		return models.PaymentLedgerSnapshot{}, fmt.Errorf("%w: plan has %d installments",
			models.ErrInvalidTerms, plan.NumberOfInstallments)
	}

	paidAmount := decimal.Zero
	lateFees := decimal.Zero
	count := 0
	for _, inst := range installments {
		if inst == nil || !inst.IsPaid() {
			continue
		}
		paidAmount = paidAmount.Add(inst.PrincipalPaid).Add(inst.InterestPaid)
		lateFees = lateFees.Add(inst.LateFeePaid)
		count++
	}

	percent := decimal.NewFromInt(int64(count)).
		Div(decimal.NewFromInt(int64(plan.NumberOfInstallments))).
		Mul(hundred)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	snapshot := models.PaymentLedgerSnapshot{
		PaidAmount:            paidAmount,
		RemainingBalance:      plan.TotalPayable.Sub(paidAmount),
		InstallmentsPaidCount: count,
		CompletionPercent:     percent,
		LateFeesPaid:          lateFees,
	}

	if count < plan.NumberOfInstallments {
		next, err := e.DueDateForInstallment(plan.FirstDueDate, count+1)
		if err != nil {
			return models.PaymentLedgerSnapshot{}, err
		}
		snapshot.NextDueDate = &next
	}

	return snapshot, nil
}

// Outstanding lists the unpaid installments of a plan in due-date order, with the
// late fee each would carry if it were paid on asOf
func (e *Engine) Outstanding(plan models.InstallmentPlan, recorded []*models.Installment, asOf time.Time) ([]models.InstallmentDue, error) {
	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: zero as-of date", models.ErrInvalidDate)
	}

	rows, err := e.Installments(plan, recorded)
	if err != nil {
		return nil, err
	}

	dues := make([]models.InstallmentDue, 0, len(rows))
	for _, row := range rows {
		if row.IsPaid() {
			continue
		}

		fee, err := LateFee(row.DueDate, asOf, plan.LateFeePerDay)
		if err != nil {
			return nil, err
		}
		dues = append(dues, models.InstallmentDue{
			SequenceNumber: row.SequenceNumber,
			DueDate:        row.DueDate,
			Amount:         plan.PerInstallmentTotal,
			DaysDelinquent: DaysLate(row.DueDate, asOf),
			AccruedLateFee: fee,
		})
	}

	sort.SliceStable(dues, func(i, j int) bool {
		return dues[i].DueDate.Before(dues[j].DueDate)
	})
	return dues, nil
}

// Round2 rounds a monetary amount to paise for display
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
