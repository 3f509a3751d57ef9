package models

import "errors"

// Error kinds surfaced by the billing engine and the record boundary.
// Callers match them with errors.Is; the wrapped message carries the detail.
var (
	ErrInvalidDate                  = errors.New("invalid date")
	ErrInvalidTerms                 = errors.New("invalid terms")
	ErrUnknownCategory              = errors.New("unknown floor category")
	ErrUnsupportedDelinquencyWindow = errors.New("unsupported delinquency window")
)
