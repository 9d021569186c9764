package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/companies"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolverFixture() (*mockCatalogStore, *mockGrantStore, *mockCompanyStore) {
	catalogStore := &mockCatalogStore{
		roleDefaultsFunc: func(role string) ([]string, error) {
			if role == "user" {
				return []string{"users.view"}, nil
			}
			return nil, nil
		},
	}
	return catalogStore, &mockGrantStore{}, &mockCompanyStore{}
}

func TestResolver_RoleDefaultsOnly(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()
	r := NewResolver(catalogStore, grantStore, companyStore)

	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "users.view", perms[0].PermissionKey)
	assert.Equal(t, SourceRole, perms[0].Source)
	assert.Equal(t, "user", perms[0].GrantedVia)
}

func TestResolver_DenialWinsOverAllSources(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	// users.view comes from the role default AND a core module, but an
	// explicit denial suppresses it everywhere.
	catalogStore.listModulesFunc = func(activeOnly bool) ([]catalog.Module, error) {
		return []catalog.Module{
			{ID: 1, Name: "platform", Tier: catalog.TierCore, PermissionKeys: []string{"users.view"}, IsActive: true},
		}, nil
	}
	grantStore.listUserDataGrantsFunc = func(userID, companyID int64) ([]grants.DataPermissionGrant, error) {
		return []grants.DataPermissionGrant{
			{UserID: userID, CompanyID: companyID, PermissionKey: "users.view", IsGranted: false},
		}, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestResolver_SourcePriority(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	// users.view arrives from role default, core module, and a direct
	// grant. The direct grant has the highest priority.
	catalogStore.listModulesFunc = func(activeOnly bool) ([]catalog.Module, error) {
		return []catalog.Module{
			{ID: 1, Name: "platform", Tier: catalog.TierCore, PermissionKeys: []string{"users.view"}, IsActive: true},
		}, nil
	}
	grantStore.listUserDataGrantsFunc = func(userID, companyID int64) ([]grants.DataPermissionGrant, error) {
		return []grants.DataPermissionGrant{
			{UserID: userID, CompanyID: companyID, PermissionKey: "users.view", IsGranted: true},
		}, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, SourceData, perms[0].Source)
	assert.Equal(t, "direct grant", perms[0].GrantedVia)
}

func TestResolver_ModuleGating(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	catalogStore.roleDefaultsFunc = func(role string) ([]string, error) { return nil, nil }
	catalogStore.listModulesFunc = func(activeOnly bool) ([]catalog.Module, error) {
		return []catalog.Module{
			{ID: 2, Name: "reporting", Tier: catalog.TierStandard, PermissionKeys: []string{"reports.view"}, IsActive: true},
		}, nil
	}
	grantStore.listModuleGrantsFunc = func(userID, companyID int64) ([]grants.ModuleGrant, error) {
		return []grants.ModuleGrant{{UserID: userID, CompanyID: companyID, ModuleID: 2}}, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)

	// Not provisioned: no reports.view even with a user module grant.
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Empty(t, perms)

	// Provisioned and enabled: the key appears with module provenance.
	grantStore.listProvisioningFunc = func(companyID int64, enabledOnly bool) ([]grants.Provisioning, error) {
		return []grants.Provisioning{{CompanyID: companyID, ModuleID: 2, IsEnabled: true}}, nil
	}
	perms, err = r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "reports.view", perms[0].PermissionKey)
	assert.Equal(t, SourceModule, perms[0].Source)
	assert.Equal(t, "reporting", perms[0].GrantedVia)
}

func TestResolver_CoreModuleAlwaysOn(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	catalogStore.roleDefaultsFunc = func(role string) ([]string, error) { return nil, nil }
	catalogStore.listModulesFunc = func(activeOnly bool) ([]catalog.Module, error) {
		return []catalog.Module{
			{ID: 1, Name: "platform", Tier: catalog.TierCore, PermissionKeys: []string{"users.view"}, IsActive: true},
		}, nil
	}

	// Zero provisioning rows and zero module grants.
	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "users.view", perms[0].PermissionKey)
}

func TestResolver_FoundationBypassesGating(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	catalogStore.roleDefaultsFunc = func(role string) ([]string, error) { return nil, nil }
	catalogStore.listModulesFunc = func(activeOnly bool) ([]catalog.Module, error) {
		return []catalog.Module{
			{ID: 2, Name: "reporting", Tier: catalog.TierPremium, PermissionKeys: []string{"reports.basics", "reports.advanced"}, IsActive: true},
		}, nil
	}
	catalogStore.getPermissionsFunc = func(keys []string) (map[string]*catalog.Permission, error) {
		perms := make(map[string]*catalog.Permission)
		for _, key := range keys {
			perms[key] = &catalog.Permission{Key: key, Group: "reports", IsFoundation: key == "reports.basics"}
		}
		return perms, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "reports.basics", perms[0].PermissionKey)
}

func TestResolver_CustomRoleReplacesDefaults(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	grantStore.getActiveCustomRoleFunc = func(userID, companyID int64) (*grants.CustomRole, error) {
		return &grants.CustomRole{
			ID: 2, CompanyID: companyID, Name: "auditor",
			PermissionKeys: []string{"audit.view"}, IsActive: true,
		}, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "audit.view", perms[0].PermissionKey)
	assert.Equal(t, "auditor", perms[0].GrantedVia)
}

func TestResolver_SuperAdminFullCatalog(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	companyStore.getUserFunc = func(userID int64) (*companies.User, error) {
		return &companies.User{ID: userID, CompanyID: 1, Role: "super-admin", IsActive: true}, nil
	}
	catalogStore.listPermissionsFunc = func(filter catalog.PermissionFilter) ([]catalog.Permission, error) {
		return []catalog.Permission{
			{Key: "audit.view", Group: "audit"},
			{Key: "users.view", Group: "users"},
		}, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 99, 5)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "super-admin", perms[0].GrantedVia)
}

func TestResolver_UnknownCompany(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	companyStore.getCompanyFunc = func(companyID int64) (*companies.Company, error) {
		return nil, &companies.NotFoundError{Entity: "company", ID: companyID}
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	_, err := r.Resolve(context.Background(), 7, 99)

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "company", notFound.Entity)
}

func TestResolver_UserOutsideCompany(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	companyStore.userBelongsToFunc = func(userID, companyID int64) (bool, error) {
		return false, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	_, err := r.Resolve(context.Background(), 7, 5)

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "user", notFound.Entity)
}

func TestResolver_OrderedByGroupThenKey(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	catalogStore.roleDefaultsFunc = func(role string) ([]string, error) {
		return []string{"users.view", "audit.view", "users.manage"}, nil
	}
	catalogStore.getPermissionsFunc = func(keys []string) (map[string]*catalog.Permission, error) {
		groups := map[string]string{
			"users.view":   "users",
			"users.manage": "users",
			"audit.view":   "audit",
		}
		perms := make(map[string]*catalog.Permission)
		for _, key := range keys {
			perms[key] = &catalog.Permission{Key: key, Group: groups[key]}
		}
		return perms, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, perms, 3)
	assert.Equal(t, "audit.view", perms[0].PermissionKey)
	assert.Equal(t, "users.manage", perms[1].PermissionKey)
	assert.Equal(t, "users.view", perms[2].PermissionKey)
}

func TestResolver_HasPermission(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()
	r := NewResolver(catalogStore, grantStore, companyStore)

	ok, err := r.HasPermission(context.Background(), 7, 5, "users.view")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasPermission(context.Background(), 7, 5, "billing.manage")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_StaleGrantKeyDropped(t *testing.T) {
	catalogStore, grantStore, companyStore := resolverFixture()

	catalogStore.roleDefaultsFunc = func(role string) ([]string, error) { return nil, nil }
	grantStore.listUserDataGrantsFunc = func(userID, companyID int64) ([]grants.DataPermissionGrant, error) {
		return []grants.DataPermissionGrant{
			{UserID: userID, CompanyID: companyID, PermissionKey: "legacy.removed", IsGranted: true},
		}, nil
	}
	catalogStore.getPermissionsFunc = func(keys []string) (map[string]*catalog.Permission, error) {
		return map[string]*catalog.Permission{}, nil
	}

	r := NewResolver(catalogStore, grantStore, companyStore)
	perms, err := r.Resolve(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Empty(t, perms)
}
