package billing

import (
	"strings"

	"github.com/ManuelReschke/TableFox/app/models"
)

// DefaultValidityDays is the validity every catalog plan grants.
const DefaultValidityDays = 30

// PlanInfo describes a purchasable plan. Prices are in centavos.
type PlanInfo struct {
	Name         string
	PriceCents   int64
	ValidityDays int
}

// Catalog maps plan identifiers to their commercial terms.
type Catalog map[string]PlanInfo

// DefaultCatalog returns the plans sold to tenants.
func DefaultCatalog() Catalog {
	return Catalog{
		models.PlanTypeBasic: {
			Name:         "Plano Básico",
			PriceCents:   300,
			ValidityDays: DefaultValidityDays,
		},
		models.PlanTypePremium: {
			Name:         "Plano Premium",
			PriceCents:   14990,
			ValidityDays: DefaultValidityDays,
		},
		models.PlanTypeEnterprise: {
			Name:         "Plano Enterprise",
			PriceCents:   29990,
			ValidityDays: DefaultValidityDays,
		},
	}
}

// Lookup returns the plan for planType or ErrUnknownPlan.
func (c Catalog) Lookup(planType string) (PlanInfo, error) {
	p, ok := c[normalizePlan(planType)]
	if !ok {
		return PlanInfo{}, ErrUnknownPlan
	}
	return p, nil
}

func normalizePlan(plan string) string {
	return strings.ToLower(strings.TrimSpace(plan))
}
