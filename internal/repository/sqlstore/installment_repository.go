package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"allotment-service/internal/models"
)

// InstallmentRepo is a SQL implementation of the repository.InstallmentRepository interface
type InstallmentRepo struct {
	db *sqlx.DB
}

// NewInstallmentRepository creates a new InstallmentRepo
func NewInstallmentRepository(db *sqlx.DB) *InstallmentRepo {
	return &InstallmentRepo{db: db}
}

// Append records a paid installment. A second record for the same
// property and sequence number fails with ErrDuplicate.
func (r *InstallmentRepo) Append(ctx context.Context, installment *models.Installment) error {
	query := `INSERT INTO installments (id, property_id, sequence_number, due_date, payment_date,
		principal_paid, interest_paid, late_fee_paid, days_delinquent, status, created_at)
		VALUES (:id, :property_id, :sequence_number, :due_date, :payment_date,
		:principal_paid, :interest_paid, :late_fee_paid, :days_delinquent, :status, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, installment); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("installment %d of property %s: %w",
				installment.SequenceNumber, installment.PropertyID, ErrDuplicate)
		}
		return fmt.Errorf("failed to append installment: %w", err)
	}
	return nil
}

// GetByPropertyID gets the recorded installments of a property in sequence order
func (r *InstallmentRepo) GetByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Installment, error) {
	query := r.db.Rebind(`SELECT id, property_id, sequence_number, due_date, payment_date,
		principal_paid, interest_paid, late_fee_paid, days_delinquent, status, created_at
		FROM installments WHERE property_id = ? ORDER BY sequence_number`)

	installments := []*models.Installment{}
	if err := r.db.SelectContext(ctx, &installments, query, propertyID); err != nil {
		return nil, fmt.Errorf("failed to get installments: %w", err)
	}
	return installments, nil
}
