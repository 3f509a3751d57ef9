package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"allotment-service/configs"
	"allotment-service/internal/billing"
	"allotment-service/internal/models"
	"allotment-service/internal/repository"
)

var (
	// ErrAlreadyPaid is returned when a payment is recorded twice for the same installment or year
	ErrAlreadyPaid = errors.New("already paid")
	// ErrNotBillable is returned when a service charge is paid for a year that is not billable
	ErrNotBillable = errors.New("financial year not billable")
)

// AllotmentService defines methods for the allotment service
type AllotmentService interface {
	Register(ctx context.Context, registration *models.PropertyRegistration) (*models.Property, error)
	GetByID(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
	Search(ctx context.Context, criteria repository.SearchCriteria) ([]*models.Property, error)
	Plan(ctx context.Context, propertyID uuid.UUID) (*PropertyPlan, error)
	Ledger(ctx context.Context, propertyID uuid.UUID) (models.PaymentLedgerSnapshot, error)
	ServiceCharges(ctx context.Context, propertyID uuid.UUID, asOf time.Time) (*models.ServiceChargeStatement, error)
	RecordInstallmentPayment(ctx context.Context, propertyID uuid.UUID, seq int, paymentDate time.Time) (*models.Installment, error)
	RecordServiceChargePayment(ctx context.Context, propertyID uuid.UUID, fy models.FinancialYear, paymentDate time.Time) (*models.ServiceChargeObligation, error)
	Delinquencies(ctx context.Context, asOf time.Time) ([]*DelinquencyNotice, error)
}

// ReminderService defines methods for the dues reminder service
type ReminderService interface {
	SendDueReminders(ctx context.Context, asOf time.Time) (ReminderResult, error)
}

// Dependencies contains dependencies for services
type Dependencies struct {
	Repos  *repository.Repository
	Logger *logrus.Logger
	Config *configs.Config
	// Engine defaults to billing.Default() when nil
	Engine *billing.Engine
	// Mailer defaults to an SMTP dialer built from Config.Email when nil
	Mailer Mailer
}

// Service is a composition of all services
type Service struct {
	Allotment AllotmentService
	Reminder  ReminderService
	Analytics AnalyticsService
}

// NewService creates a new service with all sub-services
func NewService(deps Dependencies) *Service {
	allotment := NewAllotmentService(deps)
	return &Service{
		Allotment: allotment,
		Reminder:  NewReminderService(deps, allotment),
		Analytics: NewAnalyticsService(deps),
	}
}

func (deps Dependencies) engine() *billing.Engine {
	if deps.Engine == nil {
		return billing.Default()
	}
	return deps.Engine
}
