package provisioning

import (
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/grants"
)

// MonthlyCostCents computes the monthly cost of a module for a company.
// Provisioning-level price overrides take precedence over the module's
// default prices; prov may be nil, in which case only defaults apply.
func MonthlyCostCents(module *catalog.Module, prov *grants.Provisioning, licensedUsers int) int64 {
	base := module.BasePriceCents
	perUser := module.PerUserPriceCents
	if prov != nil {
		if prov.MonthlyPriceCents != nil {
			base = *prov.MonthlyPriceCents
		}
		if prov.PerUserPriceCents != nil {
			perUser = *prov.PerUserPriceCents
		}
	}
	return base + perUser*int64(licensedUsers)
}

// CostLine is the cost breakdown for one provisioned module.
type CostLine struct {
	ModuleID          int64              `json:"module_id"`
	ModuleName        string             `json:"module_name"`
	Tier              catalog.ModuleTier `json:"tier"`
	PricingTier       grants.PricingTier `json:"pricing_tier"`
	IsEnabled         bool               `json:"is_enabled"`
	UsersLicensed     int                `json:"users_licensed"`
	ActiveUsers       int                `json:"active_users"`
	LicensedCostCents int64              `json:"licensed_cost_cents"`
	ActualCostCents   int64              `json:"actual_cost_cents"`
}

// CostSummary aggregates a company's provisioned modules. ActualCostCents
// prices actual active module grants instead of licensed seats; the
// variance fields show how far usage has drifted from what was licensed.
type CostSummary struct {
	CompanyID         int64      `json:"company_id"`
	Lines             []CostLine `json:"lines"`
	LicensedCostCents int64      `json:"licensed_cost_cents"`
	ActualCostCents   int64      `json:"actual_cost_cents"`
	VarianceUsers     int        `json:"variance_users"`
	VarianceCents     int64      `json:"variance_cents"`
}
