package billing

import (
	"fmt"
	"time"

	"allotment-service/internal/models"
)

// ResolveFinancialYear maps a date to its April-March financial year
func ResolveFinancialYear(date time.Time) (models.FinancialYear, error) {
	if date.IsZero() {
		return models.FinancialYear{}, fmt.Errorf("%w: zero date", models.ErrInvalidDate)
	}

	year := date.Year()
	if date.Month() < time.April {
		return models.FinancialYear{StartYear: year - 1}, nil
	}
	return models.FinancialYear{StartYear: year}, nil
}

// ResolveFinancialYearString parses a date string and resolves its financial year
func ResolveFinancialYearString(value string) (models.FinancialYear, error) {
	date, err := models.ParseDate(value)
	if err != nil {
		return models.FinancialYear{}, err
	}
	return ResolveFinancialYear(date)
}

// BillableYears lists, in ascending order, the financial years after the allotment
// year up to and including the year of asOf. The allotment year itself is never billed.
func BillableYears(allotmentDate, asOf time.Time) ([]models.FinancialYear, error) {
	first, err := ResolveFinancialYear(allotmentDate)
	if err != nil {
		return nil, err
	}
	last, err := ResolveFinancialYear(asOf)
	if err != nil {
		return nil, err
	}

	years := make([]models.FinancialYear, 0)
	for fy := first.Next(); fy.StartYear <= last.StartYear; fy = fy.Next() {
		years = append(years, fy)
	}
	return years, nil
}
