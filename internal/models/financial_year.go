package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// FinancialYear is an Indian financial year, April 1 of StartYear to March 31 of StartYear+1
type FinancialYear struct {
	StartYear int
}

// String renders the "YYYY-YYYY" label
func (fy FinancialYear) String() string {
	return fmt.Sprintf("%d-%d", fy.StartYear, fy.StartYear+1)
}

// Next returns the following financial year
func (fy FinancialYear) Next() FinancialYear {
	return FinancialYear{StartYear: fy.StartYear + 1}
}

// ParseFinancialYear parses "2021-2022" and the short form "2021-22"
func ParseFinancialYear(label string) (FinancialYear, error) {
	parts := strings.Split(strings.TrimSpace(label), "-")
	if len(parts) != 2 {
		return FinancialYear{}, fmt.Errorf("%w: financial year %q", ErrInvalidDate, label)
	}

	start, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return FinancialYear{}, fmt.Errorf("%w: financial year %q", ErrInvalidDate, label)
	}

	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return FinancialYear{}, fmt.Errorf("%w: financial year %q", ErrInvalidDate, label)
	}

	switch len(parts[1]) {
	case 4:
		if end != start+1 {
			return FinancialYear{}, fmt.Errorf("%w: financial year %q does not span one year", ErrInvalidDate, label)
		}
	case 2:
		if end != (start+1)%100 {
			return FinancialYear{}, fmt.Errorf("%w: financial year %q does not span one year", ErrInvalidDate, label)
		}
	default:
		return FinancialYear{}, fmt.Errorf("%w: financial year %q", ErrInvalidDate, label)
	}

	return FinancialYear{StartYear: start}, nil
}

// MarshalText implements encoding.TextMarshaler
func (fy FinancialYear) MarshalText() ([]byte, error) {
	return []byte(fy.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (fy *FinancialYear) UnmarshalText(text []byte) error {
	parsed, err := ParseFinancialYear(string(text))
	if err != nil {
		return err
	}
	*fy = parsed
	return nil
}

// Value implements driver.Valuer
func (fy FinancialYear) Value() (driver.Value, error) {
	return fy.String(), nil
}

// Scan implements sql.Scanner
func (fy *FinancialYear) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return fy.UnmarshalText([]byte(v))
	case []byte:
		return fy.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into FinancialYear", src)
	}
}
