package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allotment-service/internal/models"
)

func TestSchemeReport(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	deps, hook := newTestDeps(store)
	allotments := NewAllotmentService(deps)
	analytics := NewAnalyticsService(deps)

	anita := mustRegister(t, allotments, registration("Anita Rao", "", "LGF", "2024-01-15"))
	vikram := mustRegister(t, allotments, registration("Vikram Anand", "", "UGF", "2024-01-15"))

	for seq := 1; seq <= 4; seq++ {
		_, err := allotments.RecordInstallmentPayment(ctx, vikram.ID, seq, date(t, "2024-01-20"))
		require.NoError(t, err)
	}
	_, err := allotments.RecordInstallmentPayment(ctx, anita.ID, 1, date(t, "2024-02-15"))
	require.NoError(t, err)

	other := registration("Meera Singh", "", "LGF", "2024-01-15")
	other.SchemeName = "Sector 9"
	mustRegister(t, allotments, other)

	broken := &models.Property{ID: uuid.New(), AllotteeName: "Zoya Khan", SchemeName: "Sector 21", FloorCategory: "LGF"}
	store.properties[broken.ID] = broken

	// Anita's installment 2 (due 2024-05-15) is 17 days late, installments 3 and 4 not yet due
	report, err := analytics.SchemeReport(ctx, "Sector 21", date(t, "2024-06-01"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Properties)
	assert.Equal(t, 1, report.FullyPaid)
	assert.True(t, dec("1908000").Equal(report.TotalPayable))
	assert.True(t, dec("1192500").Equal(report.Collected))
	assert.True(t, dec("715500").Equal(report.Outstanding))
	assert.Equal(t, 1, report.OverdueInstallments)
	assert.Equal(t, "1999.48", report.AccruedLateFees.Round(2).StringFixed(2))
	assert.True(t, dec("21615").Equal(report.ServiceChargeOutstanding), "got %s", report.ServiceChargeOutstanding)
	require.Len(t, report.Summaries, 2)
	assert.Equal(t, "Anita Rao", report.Summaries[0].AllotteeName)
	assert.True(t, dec("25").Equal(report.Summaries[0].CompletionPercent))

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned, "broken property should be logged")
}

func TestSchemeReport_ZeroDate(t *testing.T) {
	deps, _ := newTestDeps(newMockStore())

	_, err := NewAnalyticsService(deps).SchemeReport(context.Background(), "", time.Time{})
	assert.ErrorIs(t, err, models.ErrInvalidDate)
}

func TestSchemeReport_ChargesPastTierWindow(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	deps, hook := newTestDeps(store)
	allotments := NewAllotmentService(deps)

	mustRegister(t, allotments, registration("Rohit Bansal", "", "LGF", "2015-01-15"))

	report, err := NewAnalyticsService(deps).SchemeReport(ctx, "Sector 21", date(t, "2024-06-01"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Properties)
	assert.True(t, dec("954000").Equal(report.TotalPayable))
	assert.True(t, dec("954000").Equal(report.Outstanding))
	assert.Equal(t, 4, report.OverdueInstallments)
	// 2015-2016 to 2017-2018 are past the tiers; 2018-2019 to 2024-2025 are priced
	assert.True(t, dec("85412").Equal(report.ServiceChargeOutstanding), "got %s", report.ServiceChargeOutstanding)
	assert.Equal(t, 1, report.IncompleteServiceCharges)
	require.Len(t, report.Summaries, 1)
	assert.True(t, report.Summaries[0].ServiceChargeIncomplete)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestSchemeReport_ServiceChargesUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	deps, hook := newTestDeps(store)
	allotments := NewAllotmentService(deps)

	mustRegister(t, allotments, registration("Rohit Bansal", "", "LGF", "2024-01-15"))
	store.failCharges = errStoreDown

	report, err := NewAnalyticsService(deps).SchemeReport(ctx, "", date(t, "2024-06-01"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Properties)
	assert.True(t, dec("954000").Equal(report.TotalPayable))
	assert.Equal(t, 2, report.OverdueInstallments)
	assert.True(t, report.ServiceChargeOutstanding.IsZero())
	assert.Equal(t, 1, report.IncompleteServiceCharges)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}
