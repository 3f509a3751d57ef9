package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"allotment-service/internal/models"
	"allotment-service/internal/repository/sqlstore"
)

// ErrNotFound is returned when a record lookup matches nothing
var ErrNotFound = sqlstore.ErrNotFound

// ErrDuplicate is returned when an append-once record already exists
var ErrDuplicate = sqlstore.ErrDuplicate

// SearchCriteria filters properties; empty fields match everything
type SearchCriteria = sqlstore.SearchCriteria

// PropertyRepository defines methods for the property repository
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Search(ctx context.Context, criteria SearchCriteria) ([]*models.Property, error)
	ListAll(ctx context.Context) ([]*models.Property, error)
}

// InstallmentRepository defines methods for the installment repository.
// Installments are append-only: there is no update or delete.
type InstallmentRepository interface {
	Append(ctx context.Context, installment *models.Installment) error
	GetByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Installment, error)
}

// ServiceChargeRepository defines methods for the service charge repository
type ServiceChargeRepository interface {
	Append(ctx context.Context, obligation *models.ServiceChargeObligation) error
	GetByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.ServiceChargeObligation, error)
}

// Repository is a composition of all repositories
type Repository struct {
	DB            *sqlx.DB
	Property      PropertyRepository
	Installment   InstallmentRepository
	ServiceCharge ServiceChargeRepository
}

// NewRepository creates a new repository with all sub-repositories
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		DB:            db,
		Property:      sqlstore.NewPropertyRepository(db),
		Installment:   sqlstore.NewInstallmentRepository(db),
		ServiceCharge: sqlstore.NewServiceChargeRepository(db),
	}
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
