package billing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allotment-service/internal/models"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	assert.Equal(t, 6, p.MaxDelinquencyOffset())
}

func TestLoadPolicyXML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<billingPolicy penalRate="15" cadenceMonths="6">
  <category code="lgf" base="12000"/>
  <category code="SHOP" base="25000.50"/>
  <tier offset="1" percent="10"/>
  <tier offset="0" percent="0"/>
  <tier offset="2" percent="20"/>
</billingPolicy>`

	p, err := LoadPolicyXML(strings.NewReader(doc))
	require.NoError(t, err)

	assertDecimal(t, "15", p.PenalRatePercent)
	assert.Equal(t, 6, p.CadenceMonths)
	assert.Equal(t, 1, p.GraceMonths)
	assert.Len(t, p.CategoryBaseAmounts, 2)
	assertDecimal(t, "12000", p.CategoryBaseAmounts["LGF"])
	assert.Equal(t, 2, p.MaxDelinquencyOffset())

	e, err := NewEngine(p)
	require.NoError(t, err)

	base, err := e.BaseAmount("shop")
	require.NoError(t, err)
	fee, err := e.TieredLateFee(models.FinancialYear{StartYear: 2020}, models.FinancialYear{StartYear: 2021}, base)
	require.NoError(t, err)
	assertDecimal(t, "2501", fee)

	_, err = e.TieredLateFee(models.FinancialYear{StartYear: 2020}, models.FinancialYear{StartYear: 2023}, base)
	assert.ErrorIs(t, err, models.ErrUnsupportedDelinquencyWindow)

	_, err = e.BaseAmount("UGF")
	assert.ErrorIs(t, err, models.ErrUnknownCategory)
}

func TestLoadPolicyXML_KeepsDefaults(t *testing.T) {
	p, err := LoadPolicyXML(strings.NewReader(`<billingPolicy/>`))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicyXML_Invalid(t *testing.T) {
	tests := map[string]string{
		"no root":          `<policy/>`,
		"gap in tiers":     `<billingPolicy><tier offset="0" percent="0"/><tier offset="2" percent="10"/></billingPolicy>`,
		"decreasing tiers": `<billingPolicy><tier offset="0" percent="5"/><tier offset="1" percent="1"/></billingPolicy>`,
		"duplicate tier":   `<billingPolicy><tier offset="0" percent="0"/><tier offset="0" percent="1"/></billingPolicy>`,
		"bad base":         `<billingPolicy><category code="LGF" base="lots"/></billingPolicy>`,
		"missing code":     `<billingPolicy><category base="100"/></billingPolicy>`,
		"bad penal rate":   `<billingPolicy penalRate="high"/>`,
		"bad cadence":      `<billingPolicy cadenceMonths="0"/>`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPolicyXML(strings.NewReader(doc))
			assert.ErrorIs(t, err, models.ErrInvalidTerms)
		})
	}
}
