package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"allotment-service/configs"
	"allotment-service/internal/billing"
	"allotment-service/internal/models"
	"allotment-service/internal/repository"
)

// PropertyPlan is a property with its derived plan and the full installment schedule
type PropertyPlan struct {
	Property     *models.Property       `json:"property"`
	Plan         models.InstallmentPlan `json:"plan"`
	Installments []*models.Installment  `json:"installments"`
}

// DelinquencyNotice is the next unpaid installment of a property that is overdue
// or falls inside the reminder window
type DelinquencyNotice struct {
	Property                      *models.Property       `json:"property"`
	Due                           models.InstallmentDue  `json:"due"`
	UnpaidInstallments            int                    `json:"unpaid_installments"`
	ServiceChargeDueYears         []models.FinancialYear `json:"service_charge_due_years"`
	ServiceChargeUnsupportedYears []models.FinancialYear `json:"service_charge_unsupported_years,omitempty"`
	ServiceChargeDue              decimal.Decimal        `json:"service_charge_due"`
}

// AllotmentSvc is an implementation of the service.AllotmentService interface
type AllotmentSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
	engine *billing.Engine
}

// NewAllotmentService creates a new AllotmentSvc
func NewAllotmentService(deps Dependencies) *AllotmentSvc {
	return &AllotmentSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
		engine: deps.engine(),
	}
}

// Register validates a registration and stores the new property
func (s *AllotmentSvc) Register(ctx context.Context, registration *models.PropertyRegistration) (*models.Property, error) {
	property, err := registration.ToProperty()
	if err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	// The terms must produce a plan and the category must carry a service charge
	if _, err := s.engine.Schedule(property.PropertyTerms); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}
	if _, err := s.engine.BaseAmount(property.FloorCategory); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	if err := s.repos.Property.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.logger.Infof("Property %s registered for %s in %s (%s)",
		property.ID, property.AllotteeName, property.SchemeName, property.FloorCategory)

	return property, nil
}

// GetByID gets a property by ID
func (s *AllotmentSvc) GetByID(ctx context.Context, propertyID uuid.UUID) (*models.Property, error) {
	property, err := s.repos.Property.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return property, nil
}

// Search finds properties matching the criteria
func (s *AllotmentSvc) Search(ctx context.Context, criteria repository.SearchCriteria) ([]*models.Property, error) {
	properties, err := s.repos.Property.Search(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return properties, nil
}

// Plan derives the installment plan of a property and lays out its schedule
func (s *AllotmentSvc) Plan(ctx context.Context, propertyID uuid.UUID) (*PropertyPlan, error) {
	property, plan, recorded, err := s.loadInstallments(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	rows, err := s.engine.Installments(plan, recorded)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out installments: %w", err)
	}

	return &PropertyPlan{
		Property:     property,
		Plan:         plan,
		Installments: rows,
	}, nil
}

// Ledger computes the payment progress of a property
func (s *AllotmentSvc) Ledger(ctx context.Context, propertyID uuid.UUID) (models.PaymentLedgerSnapshot, error) {
	_, plan, recorded, err := s.loadInstallments(ctx, propertyID)
	if err != nil {
		return models.PaymentLedgerSnapshot{}, err
	}

	snapshot, err := s.engine.Snapshot(plan, recorded)
	if err != nil {
		return models.PaymentLedgerSnapshot{}, fmt.Errorf("failed to compute ledger: %w", err)
	}
	return snapshot, nil
}

// ServiceCharges builds the service charge statement of a property as of a date
func (s *AllotmentSvc) ServiceCharges(ctx context.Context, propertyID uuid.UUID, asOf time.Time) (*models.ServiceChargeStatement, error) {
	property, err := s.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	recorded, err := s.repos.ServiceCharge.GetByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service charges: %w", err)
	}

	stmt, err := s.engine.Statement(property.FloorCategory, property.AllotmentDate, asOf, recorded)
	if err != nil {
		return nil, fmt.Errorf("failed to compute service charges: %w", err)
	}
	return stmt, nil
}

// RecordInstallmentPayment records installment seq of a property as paid on paymentDate.
// The amounts come from the plan; the late fee is charged on the days past the due date.
func (s *AllotmentSvc) RecordInstallmentPayment(ctx context.Context, propertyID uuid.UUID, seq int, paymentDate time.Time) (*models.Installment, error) {
	if paymentDate.IsZero() {
		return nil, fmt.Errorf("%w: payment date is required", models.ErrInvalidDate)
	}

	property, plan, recorded, err := s.loadInstallments(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if seq < 1 || seq > plan.NumberOfInstallments {
		return nil, fmt.Errorf("%w: installment %d outside 1..%d",
			models.ErrInvalidTerms, seq, plan.NumberOfInstallments)
	}
	for _, inst := range recorded {
		if inst.SequenceNumber == seq && inst.IsPaid() {
			return nil, fmt.Errorf("installment %d of property %s: %w", seq, propertyID, ErrAlreadyPaid)
		}
	}

	dueDate, err := s.engine.DueDateForInstallment(plan.FirstDueDate, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to compute due date: %w", err)
	}
	lateFee, err := billing.LateFee(dueDate, paymentDate, plan.LateFeePerDay)
	if err != nil {
		return nil, fmt.Errorf("failed to compute late fee: %w", err)
	}

	installment := &models.Installment{
		ID:             uuid.New(),
		PropertyID:     property.ID,
		SequenceNumber: seq,
		DueDate:        dueDate,
		PaymentDate:    &paymentDate,
		PrincipalPaid:  plan.PerInstallmentPrincipal,
		InterestPaid:   plan.PerInstallmentInterest,
		LateFeePaid:    lateFee,
		DaysDelinquent: billing.DaysLate(dueDate, paymentDate),
		Status:         models.InstallmentStatusPaid,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repos.Installment.Append(ctx, installment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("installment %d of property %s: %w", seq, propertyID, ErrAlreadyPaid)
		}
		return nil, fmt.Errorf("failed to record installment: %w", err)
	}

	s.logger.Infof("Installment %d of property %s paid on %s: principal %s, interest %s, late fee %s (%d days late)",
		seq, propertyID, paymentDate.Format(models.DateLayout),
		billing.Round2(installment.PrincipalPaid), billing.Round2(installment.InterestPaid),
		billing.Round2(lateFee), installment.DaysDelinquent)

	return installment, nil
}

// RecordServiceChargePayment records the service charge of fy as paid on paymentDate.
// The late fee tier is chosen by the financial year the payment falls in.
func (s *AllotmentSvc) RecordServiceChargePayment(ctx context.Context, propertyID uuid.UUID, fy models.FinancialYear, paymentDate time.Time) (*models.ServiceChargeObligation, error) {
	property, err := s.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	years, err := billing.BillableYears(property.AllotmentDate, paymentDate)
	if err != nil {
		return nil, err
	}
	if !containsYear(years, fy) {
		return nil, fmt.Errorf("%s for property %s as of %s: %w",
			fy, propertyID, paymentDate.Format(models.DateLayout), ErrNotBillable)
	}

	recorded, err := s.repos.ServiceCharge.GetByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service charges: %w", err)
	}
	for _, o := range recorded {
		if o.FinancialYear == fy && o.IsPaid() {
			return nil, fmt.Errorf("service charge %s of property %s: %w", fy, propertyID, ErrAlreadyPaid)
		}
	}

	base, err := s.engine.BaseAmount(property.FloorCategory)
	if err != nil {
		return nil, err
	}
	paymentYear, err := billing.ResolveFinancialYear(paymentDate)
	if err != nil {
		return nil, err
	}
	lateFee, err := s.engine.TieredLateFee(fy, paymentYear, base)
	if err != nil {
		return nil, err
	}

	obligation := &models.ServiceChargeObligation{
		ID:            uuid.New(),
		PropertyID:    property.ID,
		FinancialYear: fy,
		BaseAmount:    base,
		LateFeeAmount: lateFee,
		PaymentDate:   &paymentDate,
		Status:        models.ServiceChargeStatusPaid,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repos.ServiceCharge.Append(ctx, obligation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("service charge %s of property %s: %w", fy, propertyID, ErrAlreadyPaid)
		}
		return nil, fmt.Errorf("failed to record service charge: %w", err)
	}

	s.logger.Infof("Service charge %s of property %s paid on %s: base %s, late fee %s",
		fy, propertyID, paymentDate.Format(models.DateLayout), base, lateFee)

	return obligation, nil
}

// Delinquencies lists, for every property, the next unpaid installment that is overdue
// as of asOf or due within the configured lead days. A property that cannot be
// evaluated is logged and left out.
func (s *AllotmentSvc) Delinquencies(ctx context.Context, asOf time.Time) ([]*DelinquencyNotice, error) {
	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: as-of date is required", models.ErrInvalidDate)
	}
	asOf = models.CalendarDate(asOf)

	properties, err := s.repos.Property.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	horizon := asOf.AddDate(0, 0, s.leadDays())
	notices := make([]*DelinquencyNotice, 0)
	for _, property := range properties {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		notice, err := s.delinquency(ctx, property, asOf, horizon)
		if err != nil {
			s.logger.Warnf("Failed to evaluate dues of property %s: %v", property.ID, err)
			continue
		}
		if notice != nil {
			notices = append(notices, notice)
		}
	}

	return notices, nil
}

func (s *AllotmentSvc) delinquency(ctx context.Context, property *models.Property, asOf, horizon time.Time) (*DelinquencyNotice, error) {
	plan, err := s.engine.Schedule(property.PropertyTerms)
	if err != nil {
		return nil, err
	}
	recorded, err := s.repos.Installment.GetByPropertyID(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get installments: %w", err)
	}

	dues, err := s.engine.Outstanding(plan, recorded, asOf)
	if err != nil {
		return nil, err
	}
	if len(dues) == 0 || dues[0].DueDate.After(horizon) {
		return nil, nil
	}

	notice := &DelinquencyNotice{
		Property:              property,
		Due:                   dues[0],
		UnpaidInstallments:    len(dues),
		ServiceChargeDueYears: []models.FinancialYear{},
		ServiceChargeDue:      decimal.Zero,
	}

	charges, err := s.repos.ServiceCharge.GetByPropertyID(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service charges: %w", err)
	}
	stmt, err := s.engine.Statement(property.FloorCategory, property.AllotmentDate, asOf, charges)
	if err != nil {
		// Installment reminders still go out when the service charge history is out of range
		s.logger.Warnf("Service charges of property %s left out of notice: %v", property.ID, err)
		return notice, nil
	}
	notice.ServiceChargeDueYears = stmt.DueYears
	notice.ServiceChargeUnsupportedYears = stmt.UnsupportedYears
	notice.ServiceChargeDue = stmt.TotalOutstanding

	return notice, nil
}

func (s *AllotmentSvc) loadInstallments(ctx context.Context, propertyID uuid.UUID) (*models.Property, models.InstallmentPlan, []*models.Installment, error) {
	property, err := s.GetByID(ctx, propertyID)
	if err != nil {
		return nil, models.InstallmentPlan{}, nil, err
	}

	plan, err := s.engine.Schedule(property.PropertyTerms)
	if err != nil {
		return nil, models.InstallmentPlan{}, nil, fmt.Errorf("failed to derive plan: %w", err)
	}

	recorded, err := s.repos.Installment.GetByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, models.InstallmentPlan{}, nil, fmt.Errorf("failed to get installments: %w", err)
	}

	return property, plan, recorded, nil
}

func (s *AllotmentSvc) leadDays() int {
	if s.config == nil {
		return 0
	}
	return s.config.Reminder.LeadDays
}

func containsYear(years []models.FinancialYear, fy models.FinancialYear) bool {
	for _, y := range years {
		if y == fy {
			return true
		}
	}
	return false
}
