package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"allotment-service/internal/models"
)

const day = 24 * time.Hour

// AddMonths adds n calendar months, clamping to the last day of the target month
// when the day of month does not exist there (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, dd := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(year, month+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); dd > last {
		dd = last
	}
	return time.Date(first.Year(), first.Month(), dd, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// DueDateForInstallment returns the due date of installment seq (1-based),
// counted from the first due date on the policy cadence
func (e *Engine) DueDateForInstallment(firstDueDate time.Time, seq int) (time.Time, error) {
	if firstDueDate.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero first due date", models.ErrInvalidDate)
	}
	if seq < 1 {
		return time.Time{}, fmt.Errorf("%w: installment sequence %d", models.ErrInvalidTerms, seq)
	}
	return AddMonths(firstDueDate, e.policy.CadenceMonths*(seq-1)), nil
}

// DaysLate counts started days between due and paid; zero when paid on or before due
func DaysLate(dueDate, paymentDate time.Time) int {
	if !paymentDate.After(dueDate) {
		return 0
	}
	elapsed := paymentDate.Sub(dueDate)
	return int((elapsed + day - 1) / day)
}

// LateFee is the per-day fee for every started day the payment is late
func LateFee(dueDate, paymentDate time.Time, perDayRate decimal.Decimal) (decimal.Decimal, error) {
	if dueDate.IsZero() || paymentDate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero due or payment date", models.ErrInvalidDate)
	}
	if perDayRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative late fee rate", models.ErrInvalidTerms)
	}

	days := DaysLate(dueDate, paymentDate)
	if days == 0 {
		return decimal.Zero, nil
	}
	return perDayRate.Mul(decimal.NewFromInt(int64(days))), nil
}
