package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"allotment-service/internal/billing"
	"allotment-service/internal/models"
	"allotment-service/internal/repository"
)

// AnalyticsService defines methods for the collection analytics service
type AnalyticsService interface {
	SchemeReport(ctx context.Context, schemeName string, asOf time.Time) (*SchemeReport, error)
}

// PropertySummary is the collection position of one property as of a date.
// ServiceChargeIncomplete is set when ServiceChargeDue leaves out years that could
// not be priced or the service charge history could not be read.
type PropertySummary struct {
	PropertyID              uuid.UUID       `json:"property_id"`
	AllotteeName            string          `json:"allottee_name"`
	FloorCategory           string          `json:"floor_category"`
	TotalPayable            decimal.Decimal `json:"total_payable"`
	PaidAmount              decimal.Decimal `json:"paid_amount"`
	RemainingBalance        decimal.Decimal `json:"remaining_balance"`
	CompletionPercent       decimal.Decimal `json:"completion_percent"`
	NextDueDate             *time.Time      `json:"next_due_date"`
	OverdueInstallments     int             `json:"overdue_installments"`
	AccruedLateFees         decimal.Decimal `json:"accrued_late_fees"`
	LateFeesPaid            decimal.Decimal `json:"late_fees_paid"`
	ServiceChargeDue        decimal.Decimal `json:"service_charge_due"`
	ServiceChargeIncomplete bool            `json:"service_charge_incomplete,omitempty"`
}

// SchemeReport totals the collection position of every property in a scheme
type SchemeReport struct {
	SchemeName               string             `json:"scheme_name"`
	AsOf                     time.Time          `json:"as_of"`
	Properties               int                `json:"properties"`
	FullyPaid                int                `json:"fully_paid"`
	TotalPayable             decimal.Decimal    `json:"total_payable"`
	Collected                decimal.Decimal    `json:"collected"`
	Outstanding              decimal.Decimal    `json:"outstanding"`
	OverdueInstallments      int                `json:"overdue_installments"`
	AccruedLateFees          decimal.Decimal    `json:"accrued_late_fees"`
	LateFeesCollected        decimal.Decimal    `json:"late_fees_collected"`
	ServiceChargeOutstanding decimal.Decimal    `json:"service_charge_outstanding"`
	IncompleteServiceCharges int                `json:"incomplete_service_charges"`
	Summaries                []*PropertySummary `json:"summaries"`
}

// AnalyticsSvc is an implementation of the service.AnalyticsService interface
type AnalyticsSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	engine *billing.Engine
}

// NewAnalyticsService creates a new AnalyticsSvc
func NewAnalyticsService(deps Dependencies) *AnalyticsSvc {
	return &AnalyticsSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		engine: deps.engine(),
	}
}

// SchemeReport builds the collection report of a scheme as of a date; an empty
// scheme name covers every property. Properties that fail to evaluate are logged
// and left out of the totals.
func (s *AnalyticsSvc) SchemeReport(ctx context.Context, schemeName string, asOf time.Time) (*SchemeReport, error) {
	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: as-of date is required", models.ErrInvalidDate)
	}

	properties, err := s.repos.Property.Search(ctx, repository.SearchCriteria{SchemeName: schemeName})
	if err != nil {
		return nil, fmt.Errorf("failed to get properties: %w", err)
	}

	report := &SchemeReport{
		SchemeName:               schemeName,
		AsOf:                     asOf,
		TotalPayable:             decimal.Zero,
		Collected:                decimal.Zero,
		Outstanding:              decimal.Zero,
		AccruedLateFees:          decimal.Zero,
		LateFeesCollected:        decimal.Zero,
		ServiceChargeOutstanding: decimal.Zero,
		Summaries:                make([]*PropertySummary, 0, len(properties)),
	}

	for _, property := range properties {
		summary, err := s.summarize(ctx, property, asOf)
		if err != nil {
			s.logger.Warnf("Failed to summarize property %s: %v", property.ID, err)
			continue
		}

		report.Summaries = append(report.Summaries, summary)
		report.Properties++
		if summary.NextDueDate == nil {
			report.FullyPaid++
		}
		report.TotalPayable = report.TotalPayable.Add(summary.TotalPayable)
		report.Collected = report.Collected.Add(summary.PaidAmount)
		report.Outstanding = report.Outstanding.Add(summary.RemainingBalance)
		report.OverdueInstallments += summary.OverdueInstallments
		report.AccruedLateFees = report.AccruedLateFees.Add(summary.AccruedLateFees)
		report.LateFeesCollected = report.LateFeesCollected.Add(summary.LateFeesPaid)
		report.ServiceChargeOutstanding = report.ServiceChargeOutstanding.Add(summary.ServiceChargeDue)
		if summary.ServiceChargeIncomplete {
			report.IncompleteServiceCharges++
		}
	}

	s.logger.Infof("Generated scheme report for %q as of %s: %d properties",
		schemeName, asOf.Format(models.DateLayout), report.Properties)

	return report, nil
}

func (s *AnalyticsSvc) summarize(ctx context.Context, property *models.Property, asOf time.Time) (*PropertySummary, error) {
	plan, err := s.engine.Schedule(property.PropertyTerms)
	if err != nil {
		return nil, err
	}

	installments, err := s.repos.Installment.GetByPropertyID(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get installments: %w", err)
	}
	snapshot, err := s.engine.Snapshot(plan, installments)
	if err != nil {
		return nil, err
	}
	dues, err := s.engine.Outstanding(plan, installments, asOf)
	if err != nil {
		return nil, err
	}

	summary := &PropertySummary{
		PropertyID:        property.ID,
		AllotteeName:      property.AllotteeName,
		FloorCategory:     property.FloorCategory,
		TotalPayable:      plan.TotalPayable,
		PaidAmount:        snapshot.PaidAmount,
		RemainingBalance:  snapshot.RemainingBalance,
		CompletionPercent: snapshot.CompletionPercent,
		NextDueDate:       snapshot.NextDueDate,
		AccruedLateFees:   decimal.Zero,
		LateFeesPaid:      snapshot.LateFeesPaid,
		ServiceChargeDue:  decimal.Zero,
	}
	for _, due := range dues {
		if due.IsOverdue() {
			summary.OverdueInstallments++
			summary.AccruedLateFees = summary.AccruedLateFees.Add(due.AccruedLateFee)
		}
	}

	stmt, err := s.serviceCharges(ctx, property, asOf)
	if err != nil {
		// The installment position is still reported without the service charges
		s.logger.Warnf("Service charges of property %s left out of report: %v", property.ID, err)
		summary.ServiceChargeIncomplete = true
		return summary, nil
	}
	summary.ServiceChargeDue = stmt.TotalOutstanding
	if !stmt.Complete() {
		s.logger.Warnf("Service charges of property %s for %v are past the late fee tiers and not priced",
			property.ID, stmt.UnsupportedYears)
		summary.ServiceChargeIncomplete = true
	}

	return summary, nil
}

func (s *AnalyticsSvc) serviceCharges(ctx context.Context, property *models.Property, asOf time.Time) (*models.ServiceChargeStatement, error) {
	charges, err := s.repos.ServiceCharge.GetByPropertyID(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service charges: %w", err)
	}
	return s.engine.Statement(property.FloorCategory, property.AllotmentDate, asOf, charges)
}
