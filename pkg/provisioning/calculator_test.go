package provisioning

import (
	"testing"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMonthlyCostCents_ModuleDefaults(t *testing.T) {
	module := &catalog.Module{BasePriceCents: 5000, PerUserPriceCents: 500}

	assert.Equal(t, int64(10000), MonthlyCostCents(module, nil, 10))
	assert.Equal(t, int64(5000), MonthlyCostCents(module, nil, 0))
}

func TestMonthlyCostCents_ProvisioningOverrides(t *testing.T) {
	module := &catalog.Module{BasePriceCents: 5000, PerUserPriceCents: 500}

	baseOnly := &grants.Provisioning{MonthlyPriceCents: int64Ptr(4000)}
	assert.Equal(t, int64(9000), MonthlyCostCents(module, baseOnly, 10))

	perUserOnly := &grants.Provisioning{PerUserPriceCents: int64Ptr(300)}
	assert.Equal(t, int64(8000), MonthlyCostCents(module, perUserOnly, 10))

	both := &grants.Provisioning{
		MonthlyPriceCents: int64Ptr(0),
		PerUserPriceCents: int64Ptr(250),
	}
	assert.Equal(t, int64(2500), MonthlyCostCents(module, both, 10))
}

func TestMonthlyCostCents_FreeModule(t *testing.T) {
	module := &catalog.Module{BasePriceCents: 0, PerUserPriceCents: 0}
	assert.Equal(t, int64(0), MonthlyCostCents(module, nil, 100))
}
