package billing

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"allotment-service/internal/models"
)

// Policy holds the billing values that are set by administration rather than computed
type Policy struct {
	// CategoryBaseAmounts maps a floor category code to its annual service charge
	CategoryBaseAmounts map[string]decimal.Decimal
	// LateFeeTiers is the service-charge late fee percent indexed by financial-year offset
	LateFeeTiers []decimal.Decimal
	// PenalRatePercent is the annualized rate applied to an overdue installment
	PenalRatePercent decimal.Decimal
	DaysInYear       int64
	// InterestDivisor halves annual interest under the current rule
	InterestDivisor int64
	GraceMonths     int
	CadenceMonths   int
}

// DefaultPolicy returns the policy values currently in force
func DefaultPolicy() Policy {
	return Policy{
		CategoryBaseAmounts: map[string]decimal.Decimal{
			"LGF": decimal.NewFromInt(10610),
			"UGF": decimal.NewFromInt(11005),
			"HGF": decimal.NewFromInt(11005),
		},
		LateFeeTiers:     percents(0, 5, 10, 15, 20, 25, 30),
		PenalRatePercent: decimal.NewFromInt(18),
		DaysInYear:       365,
		InterestDivisor:  2,
		GraceMonths:      1,
		CadenceMonths:    3,
	}
}

// MaxDelinquencyOffset is the largest financial-year offset with a late fee tier
func (p Policy) MaxDelinquencyOffset() int {
	return len(p.LateFeeTiers) - 1
}

// Validate checks that the policy can drive the engine
func (p Policy) Validate() error {
	if len(p.LateFeeTiers) == 0 {
		return fmt.Errorf("%w: policy has no late fee tiers", models.ErrInvalidTerms)
	}
	for i, tier := range p.LateFeeTiers {
		if tier.IsNegative() {
			return fmt.Errorf("%w: late fee tier %d is negative", models.ErrInvalidTerms, i)
		}
		if i > 0 && tier.LessThan(p.LateFeeTiers[i-1]) {
			return fmt.Errorf("%w: late fee tier %d is lower than tier %d", models.ErrInvalidTerms, i, i-1)
		}
	}
	for code, amount := range p.CategoryBaseAmounts {
		if amount.IsNegative() {
			return fmt.Errorf("%w: base amount for %s is negative", models.ErrInvalidTerms, code)
		}
	}
	if p.PenalRatePercent.IsNegative() {
		return fmt.Errorf("%w: penal rate is negative", models.ErrInvalidTerms)
	}
	if p.DaysInYear <= 0 || p.InterestDivisor <= 0 || p.CadenceMonths <= 0 || p.GraceMonths < 0 {
		return fmt.Errorf("%w: policy periods must be positive", models.ErrInvalidTerms)
	}
	return nil
}

// LoadPolicyFile reads an XML policy document from path
func LoadPolicyFile(path string) (Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()

	return LoadPolicyXML(f)
}

// LoadPolicyXML parses a billing policy document:
//
//	<billingPolicy penalRate="18" graceMonths="1" cadenceMonths="3">
//	  <category code="LGF" base="10610"/>
//	  <tier offset="0" percent="0"/>
//	</billingPolicy>
//
// Values that are absent keep their defaults. Categories or tiers, when present,
// replace the default table entirely.
func LoadPolicyXML(r io.Reader) (Policy, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy XML: %w", err)
	}

	root := doc.SelectElement("billingPolicy")
	if root == nil {
		return Policy{}, fmt.Errorf("%w: billingPolicy element not found", models.ErrInvalidTerms)
	}

	policy := DefaultPolicy()

	if v := root.SelectAttrValue("penalRate", ""); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: penalRate %q", models.ErrInvalidTerms, v)
		}
		policy.PenalRatePercent = rate
	}

	intAttrs := []struct {
		name string
		dst  *int
	}{
		{"graceMonths", &policy.GraceMonths},
		{"cadenceMonths", &policy.CadenceMonths},
	}
	for _, a := range intAttrs {
		if v := root.SelectAttrValue(a.name, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Policy{}, fmt.Errorf("%w: %s %q", models.ErrInvalidTerms, a.name, v)
			}
			*a.dst = n
		}
	}

	if categories := root.SelectElements("category"); len(categories) > 0 {
		policy.CategoryBaseAmounts = make(map[string]decimal.Decimal, len(categories))
		for _, el := range categories {
			code := normalizeCategory(el.SelectAttrValue("code", ""))
			if code == "" {
				return Policy{}, fmt.Errorf("%w: category without code", models.ErrInvalidTerms)
			}
			base, err := decimal.NewFromString(el.SelectAttrValue("base", ""))
			if err != nil {
				return Policy{}, fmt.Errorf("%w: base amount for category %s", models.ErrInvalidTerms, code)
			}
			policy.CategoryBaseAmounts[code] = base
		}
	}

	if tiers := root.SelectElements("tier"); len(tiers) > 0 {
		byOffset := make(map[int]decimal.Decimal, len(tiers))
		for _, el := range tiers {
			offset, err := strconv.Atoi(el.SelectAttrValue("offset", ""))
			if err != nil || offset < 0 {
				return Policy{}, fmt.Errorf("%w: tier offset %q", models.ErrInvalidTerms, el.SelectAttrValue("offset", ""))
			}
			pct, err := decimal.NewFromString(el.SelectAttrValue("percent", ""))
			if err != nil {
				return Policy{}, fmt.Errorf("%w: tier percent for offset %d", models.ErrInvalidTerms, offset)
			}
			if _, dup := byOffset[offset]; dup {
				return Policy{}, fmt.Errorf("%w: duplicate tier offset %d", models.ErrInvalidTerms, offset)
			}
			byOffset[offset] = pct
		}

		policy.LateFeeTiers = make([]decimal.Decimal, len(byOffset))
		for i := range policy.LateFeeTiers {
			pct, ok := byOffset[i]
			if !ok {
				return Policy{}, fmt.Errorf("%w: tiers must be contiguous from offset 0, missing %d", models.ErrInvalidTerms, i)
			}
			policy.LateFeeTiers[i] = pct
		}
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}

	return policy, nil
}

func normalizeCategory(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func percents(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}
