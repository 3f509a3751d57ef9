package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"allotment-service/internal/models"
)

const propertyColumns = `id, allottee_name, allottee_email, scheme_name, floor_category,
	total_sale_price, registration_amount, allotment_amount, lump_sum_discount,
	annual_interest_rate_percent, number_of_installments, allotment_date, created_at`

// SearchCriteria filters properties; empty fields match everything
type SearchCriteria struct {
	AllotteeName  string
	SchemeName    string
	FloorCategory string
	Limit         int
}

// PropertyRepo is a SQL implementation of the repository.PropertyRepository interface
type PropertyRepo struct {
	db *sqlx.DB
}

// NewPropertyRepository creates a new PropertyRepo
func NewPropertyRepository(db *sqlx.DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

// Create inserts a new property
func (r *PropertyRepo) Create(ctx context.Context, property *models.Property) error {
	query := `INSERT INTO properties (` + propertyColumns + `)
		VALUES (:id, :allottee_name, :allottee_email, :scheme_name, :floor_category,
		:total_sale_price, :registration_amount, :allotment_amount, :lump_sum_discount,
		:annual_interest_rate_percent, :number_of_installments, :allotment_date, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, property); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("property %s: %w", property.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// GetByID gets a property by ID
func (r *PropertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := r.db.Rebind(`SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`)

	property := &models.Property{}
	if err := r.db.GetContext(ctx, property, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("property %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return property, nil
}

// Search finds properties by allottee name fragment, scheme and floor category
func (r *PropertyRepo) Search(ctx context.Context, criteria SearchCriteria) ([]*models.Property, error) {
	var (
		conds []string
		args  []interface{}
	)

	if name := strings.TrimSpace(criteria.AllotteeName); name != "" {
		conds = append(conds, "LOWER(allottee_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(name)+"%")
	}
	if scheme := strings.TrimSpace(criteria.SchemeName); scheme != "" {
		conds = append(conds, "scheme_name = ?")
		args = append(args, scheme)
	}
	if category := strings.TrimSpace(criteria.FloorCategory); category != "" {
		conds = append(conds, "floor_category = ?")
		args = append(args, strings.ToUpper(category))
	}

	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY allottee_name, created_at`
	if criteria.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, criteria.Limit)
	}

	properties := []*models.Property{}
	if err := r.db.SelectContext(ctx, &properties, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return properties, nil
}

// ListAll gets every property, oldest first
func (r *PropertyRepo) ListAll(ctx context.Context) ([]*models.Property, error) {
	properties := []*models.Property{}
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &properties, query); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}
