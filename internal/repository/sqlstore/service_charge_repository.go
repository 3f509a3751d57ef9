package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"allotment-service/internal/models"
)

// ServiceChargeRepo is a SQL implementation of the repository.ServiceChargeRepository interface
type ServiceChargeRepo struct {
	db *sqlx.DB
}

// NewServiceChargeRepository creates a new ServiceChargeRepo
func NewServiceChargeRepository(db *sqlx.DB) *ServiceChargeRepo {
	return &ServiceChargeRepo{db: db}
}

// Append records a paid service charge; one record per property and financial year
func (r *ServiceChargeRepo) Append(ctx context.Context, obligation *models.ServiceChargeObligation) error {
	query := `INSERT INTO service_charges (id, property_id, financial_year, base_amount,
		late_fee_amount, payment_date, status, created_at)
		VALUES (:id, :property_id, :financial_year, :base_amount,
		:late_fee_amount, :payment_date, :status, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, obligation); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("service charge %s of property %s: %w",
				obligation.FinancialYear, obligation.PropertyID, ErrDuplicate)
		}
		return fmt.Errorf("failed to append service charge: %w", err)
	}
	return nil
}

// GetByPropertyID gets the recorded service charges of a property, oldest year first
func (r *ServiceChargeRepo) GetByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.ServiceChargeObligation, error) {
	query := r.db.Rebind(`SELECT id, property_id, financial_year, base_amount, late_fee_amount,
		payment_date, status, created_at
		FROM service_charges WHERE property_id = ? ORDER BY financial_year`)

	obligations := []*models.ServiceChargeObligation{}
	if err := r.db.SelectContext(ctx, &obligations, query, propertyID); err != nil {
		return nil, fmt.Errorf("failed to get service charges: %w", err)
	}
	return obligations, nil
}
