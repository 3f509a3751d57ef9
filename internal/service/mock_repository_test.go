package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"allotment-service/configs"
	"allotment-service/internal/models"
	"allotment-service/internal/repository"
)

// mockStore keeps records in memory and implements every repository interface
type mockStore struct {
	mu           sync.Mutex
	properties   map[uuid.UUID]*models.Property
	installments map[uuid.UUID][]*models.Installment
	charges      map[uuid.UUID][]*models.ServiceChargeObligation
	failList     error
	failCharges  error
}

func newMockStore() *mockStore {
	return &mockStore{
		properties:   make(map[uuid.UUID]*models.Property),
		installments: make(map[uuid.UUID][]*models.Installment),
		charges:      make(map[uuid.UUID][]*models.ServiceChargeObligation),
	}
}

func (m *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		Property:      &mockPropertyRepo{m},
		Installment:   &mockInstallmentRepo{m},
		ServiceCharge: &mockServiceChargeRepo{m},
	}
}

type mockPropertyRepo struct{ *mockStore }

func (r *mockPropertyRepo) Create(ctx context.Context, property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties[property.ID]; ok {
		return repository.ErrDuplicate
	}
	r.properties[property.ID] = property
	return nil
}

func (r *mockPropertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	property, ok := r.properties[id]
	if !ok {
		return nil, fmt.Errorf("property %s: %w", id, repository.ErrNotFound)
	}
	return property, nil
}

func (r *mockPropertyRepo) Search(ctx context.Context, criteria repository.SearchCriteria) ([]*models.Property, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	found := []*models.Property{}
	for _, p := range all {
		if criteria.SchemeName != "" && p.SchemeName != criteria.SchemeName {
			continue
		}
		if criteria.AllotteeName != "" &&
			!strings.Contains(strings.ToLower(p.AllotteeName), strings.ToLower(criteria.AllotteeName)) {
			continue
		}
		found = append(found, p)
	}
	return found, nil
}

func (r *mockPropertyRepo) ListAll(ctx context.Context) ([]*models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	all := make([]*models.Property, 0, len(r.properties))
	for _, p := range r.properties {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AllotteeName < all[j].AllotteeName })
	return all, nil
}

type mockInstallmentRepo struct{ *mockStore }

func (r *mockInstallmentRepo) Append(ctx context.Context, installment *models.Installment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.installments[installment.PropertyID] {
		if inst.SequenceNumber == installment.SequenceNumber {
			return repository.ErrDuplicate
		}
	}
	r.installments[installment.PropertyID] = append(r.installments[installment.PropertyID], installment)
	return nil
}

func (r *mockInstallmentRepo) GetByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Installment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Installment{}, r.installments[propertyID]...), nil
}

type mockServiceChargeRepo struct{ *mockStore }

func (r *mockServiceChargeRepo) Append(ctx context.Context, obligation *models.ServiceChargeObligation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.charges[obligation.PropertyID] {
		if o.FinancialYear == obligation.FinancialYear {
			return repository.ErrDuplicate
		}
	}
	r.charges[obligation.PropertyID] = append(r.charges[obligation.PropertyID], obligation)
	return nil
}

func (r *mockServiceChargeRepo) GetByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.ServiceChargeObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCharges != nil {
		return nil, r.failCharges
	}
	return append([]*models.ServiceChargeObligation{}, r.charges[propertyID]...), nil
}

func testConfig() *configs.Config {
	return &configs.Config{
		Email:    configs.EmailConfig{SenderEmail: "accounts@allotment.test"},
		Reminder: configs.ReminderConfig{Schedule: "@daily", LeadDays: 15},
	}
}

func newTestDeps(store *mockStore) (Dependencies, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return Dependencies{
		Repos:  store.repository(),
		Logger: logger,
		Config: testConfig(),
	}, hook
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// registration is a 1,000,000 sale with 900,000 financed over 4 quarterly installments
func registration(name, email, category, allotted string) *models.PropertyRegistration {
	amount := func(s string) *decimal.Decimal {
		d := dec(s)
		return &d
	}
	n := 4
	return &models.PropertyRegistration{
		AllotteeName:  name,
		AllotteeEmail: email,
		SchemeName:    "Sector 21",
		FloorCategory: category,
		Terms: models.PropertyTermsInput{
			TotalSalePrice:            amount("1000000"),
			RegistrationAmount:        amount("50000"),
			AllotmentAmount:           amount("50000"),
			LumpSumDiscount:           amount("0"),
			AnnualInterestRatePercent: amount("12"),
			NumberOfInstallments:      &n,
			AllotmentDate:             allotted,
		},
	}
}

func mustRegister(t *testing.T, svc *AllotmentSvc, reg *models.PropertyRegistration) *models.Property {
	t.Helper()
	property, err := svc.Register(context.Background(), reg)
	require.NoError(t, err)
	return property
}

var errStoreDown = errors.New("store unavailable")
