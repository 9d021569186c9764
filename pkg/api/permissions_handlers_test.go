package api

import (
	"net/http"
	"testing"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/entitlement"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPermissions(t *testing.T) {
	server, mocks := newTestServer()

	var seenFilter catalog.PermissionFilter
	mocks.catalog.listPermissionsFunc = func(filter catalog.PermissionFilter) ([]catalog.Permission, error) {
		seenFilter = filter
		return []catalog.Permission{{Key: "users.view", Group: "users"}}, nil
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/permissions?group=users&foundation_only=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "users", seenFilter.Group)
	assert.True(t, seenFilter.FoundationOnly)

	var perms []catalog.Permission
	decodeBody(t, w, &perms)
	require.Len(t, perms, 1)
	assert.Equal(t, "users.view", perms[0].Key)
}

func TestListPermissions_Grouped(t *testing.T) {
	server, mocks := newTestServer()

	mocks.catalog.listPermissionsFunc = func(filter catalog.PermissionFilter) ([]catalog.Permission, error) {
		return []catalog.Permission{
			{Key: "users.view", Group: "users"},
			{Key: "users.manage", Group: "users"},
			{Key: "billing.view", Group: "billing"},
		}, nil
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/permissions?grouped=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var byGroup map[string][]catalog.Permission
	decodeBody(t, w, &byGroup)
	require.Len(t, byGroup, 2)
	assert.Len(t, byGroup["users"], 2)
	assert.Len(t, byGroup["billing"], 1)
}

func TestListPermissions_CompanyScoped(t *testing.T) {
	server, mocks := newTestServer()

	mocks.catalog.listPermissionsFunc = func(filter catalog.PermissionFilter) ([]catalog.Permission, error) {
		return []catalog.Permission{
			{Key: "users.view", Group: "users", IsFoundation: true},
			{Key: "directory.view", Group: "directory"},
			{Key: "reporting.view", Group: "reporting"},
			{Key: "analytics.view", Group: "analytics"},
		}, nil
	}
	mocks.catalog.listModulesFunc = func(activeOnly bool) ([]catalog.Module, error) {
		return []catalog.Module{
			{ID: 1, Name: "directory", Tier: catalog.TierCore, PermissionKeys: []string{"directory.view"}},
			{ID: 2, Name: "reporting", Tier: catalog.TierStandard, PermissionKeys: []string{"reporting.view"}},
			{ID: 3, Name: "analytics", Tier: catalog.TierPremium, PermissionKeys: []string{"analytics.view"}},
		}, nil
	}
	mocks.grants.listCompanyProvisioningFunc = func(companyID int64, enabledOnly bool) ([]grants.Provisioning, error) {
		assert.True(t, enabledOnly, "scoping must only consider enabled provisioning")
		return []grants.Provisioning{{CompanyID: companyID, ModuleID: 2, IsEnabled: true}}, nil
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/permissions?company_id=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var perms []catalog.Permission
	decodeBody(t, w, &perms)

	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key)
	}
	// Foundation, core-tier, and the provisioned module survive; the
	// unprovisioned analytics module does not.
	assert.Equal(t, []string{"users.view", "directory.view", "reporting.view"}, keys)
}

func TestListPermissions_CompanyScopeCrossTenant(t *testing.T) {
	server, _ := newTestServer()

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/permissions?company_id=9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPermissions_Unauthenticated(t *testing.T) {
	server, _ := newTestServer()
	w := doRequest(t, server, nil, http.MethodGet, "/api/v1/permissions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetPermissionDependencies(t *testing.T) {
	server, mocks := newTestServer()

	mocks.catalog.getPermissionFunc = func(key string) (*catalog.Permission, error) {
		return &catalog.Permission{Key: key, Requires: []string{"billing.view", "users.view"}}, nil
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/permissions/billing.manage/dependencies", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dependenciesResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "billing.manage", resp.PermissionKey)
	require.Len(t, resp.Requires, 2)
	assert.Equal(t, "billing.view", resp.Requires[0].Key)
	assert.Equal(t, "users.view", resp.Requires[1].Key)
}

func TestGetPermissionDependencies_UnknownKey(t *testing.T) {
	server, mocks := newTestServer()

	mocks.catalog.getPermissionFunc = func(key string) (*catalog.Permission, error) {
		return nil, &catalog.NotFoundError{Entity: "permission", Key: key}
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/permissions/nope.nope/dependencies", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserGrants(t *testing.T) {
	server, mocks := newTestServer()

	mocks.grants.listUserDataGrantsFunc = func(userID, companyID int64) ([]grants.DataPermissionGrant, error) {
		return []grants.DataPermissionGrant{{UserID: userID, CompanyID: companyID, PermissionKey: "reports.view", IsGranted: true}}, nil
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/users/7/grants?company_id=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var result []grants.DataPermissionGrant
	decodeBody(t, w, &result)
	require.Len(t, result, 1)
	assert.Equal(t, "reports.view", result[0].PermissionKey)
}

func TestGetUserGrants_SelfRead(t *testing.T) {
	server, _ := newTestServer()
	w := doRequest(t, server, testUser, http.MethodGet, "/api/v1/users/7/grants?company_id=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetUserGrants_CrossTenantDeniedAsNotFound(t *testing.T) {
	server, _ := newTestServer()

	// admin of company 5 probing company 9
	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/users/7/grants?company_id=9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserGrants_MissingCompanyID(t *testing.T) {
	server, _ := newTestServer()
	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/users/7/grants", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEffectivePermissions(t *testing.T) {
	server, mocks := newTestServer()

	mocks.resolver.resolveFunc = func(userID, companyID int64) ([]entitlement.EffectivePermission, error) {
		return []entitlement.EffectivePermission{
			{PermissionKey: "users.view", Group: "users", Source: entitlement.SourceRole, GrantedVia: "user"},
		}, nil
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/users/7/effective-permissions?company_id=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resolved []entitlement.EffectivePermission
	decodeBody(t, w, &resolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, entitlement.SourceRole, resolved[0].Source)
}

func TestGetEffectivePermissions_UnknownUser(t *testing.T) {
	server, mocks := newTestServer()

	mocks.resolver.resolveFunc = func(userID, companyID int64) ([]entitlement.EffectivePermission, error) {
		return nil, &entitlement.NotFoundError{Entity: "user", ID: userID}
	}

	w := doRequest(t, server, testAdmin, http.MethodGet, "/api/v1/users/404/effective-permissions?company_id=5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHasPermission(t *testing.T) {
	server, mocks := newTestServer()

	mocks.resolver.hasPermissionFunc = func(userID, companyID int64, key string) (bool, error) {
		return key == "reports.view", nil
	}

	w := doRequest(t, server, testUser, http.MethodGet, "/api/v1/users/7/has-permission?company_id=5&key=reports.view", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp hasPermissionResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.HasPermission)
}

func TestHasPermission_MissingKey(t *testing.T) {
	server, _ := newTestServer()
	w := doRequest(t, server, testUser, http.MethodGet, "/api/v1/users/7/has-permission?company_id=5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
