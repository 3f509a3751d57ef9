package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"allotment-service/internal/models"
)

// BaseAmount looks up the annual service charge for a floor category
func (e *Engine) BaseAmount(category string) (decimal.Decimal, error) {
	base, ok := e.policy.CategoryBaseAmounts[normalizeCategory(category)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	return base, nil
}

// TieredLateFee is the late fee on a service charge for obligationYear paid in
// paymentYear: the tier percent for the year offset, rounded up to a whole unit
func (e *Engine) TieredLateFee(obligationYear, paymentYear models.FinancialYear, base decimal.Decimal) (decimal.Decimal, error) {
	offset := paymentYear.StartYear - obligationYear.StartYear
	if offset < 0 {
		return decimal.Zero, fmt.Errorf("%w: payment year %s precedes obligation year %s",
			models.ErrInvalidTerms, paymentYear, obligationYear)
	}
	if offset > e.policy.MaxDelinquencyOffset() {
		return decimal.Zero, fmt.Errorf("%w: %s is %d years overdue, tiers cover %d",
			models.ErrUnsupportedDelinquencyWindow, obligationYear, offset, e.policy.MaxDelinquencyOffset())
	}

	pct := e.policy.LateFeeTiers[offset]
	return base.Mul(pct).Div(hundred).Ceil(), nil
}

// Obligations enumerates the service charge of every billable year as of asOf.
// Years with a recorded Paid obligation are returned as recorded; the others are Due
// with the late fee that would apply if paid in the financial year of asOf. Due years
// past the last late fee tier are still listed, flagged LateFeeUnsupported.
func (e *Engine) Obligations(category string, allotmentDate, asOf time.Time, recorded []*models.ServiceChargeObligation) ([]*models.ServiceChargeObligation, error) {
	years, err := BillableYears(allotmentDate, asOf)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return []*models.ServiceChargeObligation{}, nil
	}

	base, err := e.BaseAmount(category)
	if err != nil {
		return nil, err
	}

	current, err := ResolveFinancialYear(asOf)
	if err != nil {
		return nil, err
	}

	paid := make(map[models.FinancialYear]*models.ServiceChargeObligation, len(recorded))
	for _, o := range recorded {
		if o == nil || !o.IsPaid() {
			continue
		}
		if _, seen := paid[o.FinancialYear]; !seen {
			paid[o.FinancialYear] = o
		}
	}

	obligations := make([]*models.ServiceChargeObligation, 0, len(years))
	for _, fy := range years {
		if o, ok := paid[fy]; ok {
			obligations = append(obligations, o)
			continue
		}

		fee, err := e.TieredLateFee(fy, current, base)
		unsupported := errors.Is(err, models.ErrUnsupportedDelinquencyWindow)
		if err != nil && !unsupported {
			return nil, err
		}
		obligations = append(obligations, &models.ServiceChargeObligation{
			FinancialYear:      fy,
			BaseAmount:         base,
			LateFeeAmount:      fee,
			LateFeeUnsupported: unsupported,
			Status:             models.ServiceChargeStatusDue,
		})
	}
	return obligations, nil
}

// Statement builds the service charge statement shown for a property as of asOf
func (e *Engine) Statement(category string, allotmentDate, asOf time.Time, recorded []*models.ServiceChargeObligation) (*models.ServiceChargeStatement, error) {
	obligations, err := e.Obligations(category, allotmentDate, asOf, recorded)
	if err != nil {
		return nil, err
	}

	current, err := ResolveFinancialYear(asOf)
	if err != nil {
		return nil, err
	}

	stmt := &models.ServiceChargeStatement{
		AsOf:             asOf,
		CurrentYear:      current,
		Obligations:      obligations,
		PaidYears:        make([]models.FinancialYear, 0),
		DueYears:         make([]models.FinancialYear, 0),
		TotalOutstanding: decimal.Zero,
	}
	for _, o := range obligations {
		if o.IsPaid() {
			stmt.PaidYears = append(stmt.PaidYears, o.FinancialYear)
			continue
		}
		stmt.DueYears = append(stmt.DueYears, o.FinancialYear)
		if o.LateFeeUnsupported {
			stmt.UnsupportedYears = append(stmt.UnsupportedYears, o.FinancialYear)
			continue
		}
		stmt.TotalOutstanding = stmt.TotalOutstanding.Add(o.Total())
	}
	return stmt, nil
}
