package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/auth"
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/contextkeys"
	"github.com/platinummonkey/backoffice/pkg/entitlement"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/platinummonkey/backoffice/pkg/provisioning"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	listPermissionsFunc func(filter catalog.PermissionFilter) ([]catalog.Permission, error)
	getPermissionFunc   func(key string) (*catalog.Permission, error)
	getPermissionsFunc  func(keys []string) (map[string]*catalog.Permission, error)
	listModulesFunc     func(activeOnly bool) ([]catalog.Module, error)
	listTemplatesFunc   func(targetRole string) ([]catalog.Template, error)
	getTemplateFunc     func(templateID int64) (*catalog.Template, error)
	createTemplateFunc  func(tmpl *catalog.Template) error
	updateTemplateFunc  func(tmpl *catalog.Template) error
	deleteTemplateFunc  func(templateID int64) error
}

func (m *mockCatalog) ListPermissions(ctx context.Context, filter catalog.PermissionFilter) ([]catalog.Permission, error) {
	if m.listPermissionsFunc != nil {
		return m.listPermissionsFunc(filter)
	}
	return nil, nil
}

func (m *mockCatalog) GetPermission(ctx context.Context, key string) (*catalog.Permission, error) {
	if m.getPermissionFunc != nil {
		return m.getPermissionFunc(key)
	}
	return &catalog.Permission{Key: key, Group: "test"}, nil
}

func (m *mockCatalog) GetPermissions(ctx context.Context, keys []string) (map[string]*catalog.Permission, error) {
	if m.getPermissionsFunc != nil {
		return m.getPermissionsFunc(keys)
	}
	perms := make(map[string]*catalog.Permission, len(keys))
	for _, key := range keys {
		perms[key] = &catalog.Permission{Key: key, Group: "test"}
	}
	return perms, nil
}

func (m *mockCatalog) ListModules(ctx context.Context, activeOnly bool) ([]catalog.Module, error) {
	if m.listModulesFunc != nil {
		return m.listModulesFunc(activeOnly)
	}
	return nil, nil
}

func (m *mockCatalog) ListTemplates(ctx context.Context, targetRole string) ([]catalog.Template, error) {
	if m.listTemplatesFunc != nil {
		return m.listTemplatesFunc(targetRole)
	}
	return nil, nil
}

func (m *mockCatalog) GetTemplate(ctx context.Context, templateID int64) (*catalog.Template, error) {
	if m.getTemplateFunc != nil {
		return m.getTemplateFunc(templateID)
	}
	return &catalog.Template{ID: templateID}, nil
}

func (m *mockCatalog) CreateTemplate(ctx context.Context, tmpl *catalog.Template) error {
	if m.createTemplateFunc != nil {
		return m.createTemplateFunc(tmpl)
	}
	tmpl.ID = 1
	return nil
}

func (m *mockCatalog) UpdateTemplate(ctx context.Context, tmpl *catalog.Template) error {
	if m.updateTemplateFunc != nil {
		return m.updateTemplateFunc(tmpl)
	}
	return nil
}

func (m *mockCatalog) DeleteTemplate(ctx context.Context, templateID int64) error {
	if m.deleteTemplateFunc != nil {
		return m.deleteTemplateFunc(templateID)
	}
	return nil
}

type mockGrantReader struct {
	listUserDataGrantsFunc      func(userID, companyID int64) ([]grants.DataPermissionGrant, error)
	listCompanyProvisioningFunc func(companyID int64, enabledOnly bool) ([]grants.Provisioning, error)
}

func (m *mockGrantReader) ListUserDataGrants(ctx context.Context, userID, companyID int64) ([]grants.DataPermissionGrant, error) {
	if m.listUserDataGrantsFunc != nil {
		return m.listUserDataGrantsFunc(userID, companyID)
	}
	return nil, nil
}

func (m *mockGrantReader) ListCompanyProvisioning(ctx context.Context, companyID int64, enabledOnly bool) ([]grants.Provisioning, error) {
	if m.listCompanyProvisioningFunc != nil {
		return m.listCompanyProvisioningFunc(companyID, enabledOnly)
	}
	return nil, nil
}

type mockResolver struct {
	resolveFunc       func(userID, companyID int64) ([]entitlement.EffectivePermission, error)
	hasPermissionFunc func(userID, companyID int64, key string) (bool, error)
}

func (m *mockResolver) Resolve(ctx context.Context, userID, companyID int64) ([]entitlement.EffectivePermission, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(userID, companyID)
	}
	return nil, nil
}

func (m *mockResolver) HasPermission(ctx context.Context, userID, companyID int64, key string) (bool, error) {
	if m.hasPermissionFunc != nil {
		return m.hasPermissionFunc(userID, companyID, key)
	}
	return false, nil
}

type mockEntitlements struct {
	grantFunc         func(req entitlement.GrantRequest) (*grants.DataPermissionGrant, error)
	revokeFunc        func(req entitlement.RevokeRequest) error
	bulkGrantFunc     func(actor auth.Actor, userID, companyID int64, items []entitlement.BulkItem, reason string) (*entitlement.BulkResult, error)
	applyTemplateFunc func(actor auth.Actor, templateID, userID, companyID int64) (*entitlement.TemplateResult, error)
	grantModuleFunc   func(req entitlement.ModuleGrantRequest) error
	revokeModuleFunc  func(req entitlement.ModuleGrantRequest) error
}

func (m *mockEntitlements) Grant(ctx context.Context, req entitlement.GrantRequest) (*grants.DataPermissionGrant, error) {
	if m.grantFunc != nil {
		return m.grantFunc(req)
	}
	return &grants.DataPermissionGrant{
		UserID: req.UserID, CompanyID: req.CompanyID,
		PermissionKey: req.PermissionKey, IsGranted: req.IsGranted,
	}, nil
}

func (m *mockEntitlements) Revoke(ctx context.Context, req entitlement.RevokeRequest) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(req)
	}
	return nil
}

func (m *mockEntitlements) BulkGrant(ctx context.Context, actor auth.Actor, userID, companyID int64, items []entitlement.BulkItem, reason string) (*entitlement.BulkResult, error) {
	if m.bulkGrantFunc != nil {
		return m.bulkGrantFunc(actor, userID, companyID, items, reason)
	}
	return &entitlement.BulkResult{Successful: len(items)}, nil
}

func (m *mockEntitlements) ApplyTemplate(ctx context.Context, actor auth.Actor, templateID, userID, companyID int64) (*entitlement.TemplateResult, error) {
	if m.applyTemplateFunc != nil {
		return m.applyTemplateFunc(actor, templateID, userID, companyID)
	}
	return &entitlement.TemplateResult{}, nil
}

func (m *mockEntitlements) GrantModule(ctx context.Context, req entitlement.ModuleGrantRequest) error {
	if m.grantModuleFunc != nil {
		return m.grantModuleFunc(req)
	}
	return nil
}

func (m *mockEntitlements) RevokeModule(ctx context.Context, req entitlement.ModuleGrantRequest) error {
	if m.revokeModuleFunc != nil {
		return m.revokeModuleFunc(req)
	}
	return nil
}

type mockProvisioner struct {
	provisionFunc    func(req provisioning.ProvisionRequest) (*grants.Provisioning, error)
	companyCostsFunc func(companyID int64) (*provisioning.CostSummary, error)
}

func (m *mockProvisioner) Provision(ctx context.Context, req provisioning.ProvisionRequest) (*grants.Provisioning, error) {
	if m.provisionFunc != nil {
		return m.provisionFunc(req)
	}
	return &grants.Provisioning{
		CompanyID: req.CompanyID, ModuleID: req.ModuleID,
		PricingTier: req.PricingTier, IsEnabled: req.IsEnabled,
	}, nil
}

func (m *mockProvisioner) CompanyCosts(ctx context.Context, companyID int64) (*provisioning.CostSummary, error) {
	if m.companyCostsFunc != nil {
		return m.companyCostsFunc(companyID)
	}
	return &provisioning.CostSummary{CompanyID: companyID}, nil
}

type mockAuditLog struct {
	searchFunc func(filter audit.Filter) (*audit.SearchResult, error)
	exportFunc func(filter audit.Filter, format audit.ExportFormat) ([]byte, error)
}

func (m *mockAuditLog) Search(ctx context.Context, filter audit.Filter) (*audit.SearchResult, error) {
	if m.searchFunc != nil {
		return m.searchFunc(filter)
	}
	return &audit.SearchResult{}, nil
}

func (m *mockAuditLog) Export(ctx context.Context, filter audit.Filter, format audit.ExportFormat) ([]byte, error) {
	if m.exportFunc != nil {
		return m.exportFunc(filter, format)
	}
	return []byte("[]"), nil
}

type serverMocks struct {
	catalog      *mockCatalog
	grants       *mockGrantReader
	resolver     *mockResolver
	entitlements *mockEntitlements
	provisioner  *mockProvisioner
	audit        *mockAuditLog
}

func newTestServer() (*Server, *serverMocks) {
	mocks := &serverMocks{
		catalog:      &mockCatalog{},
		grants:       &mockGrantReader{},
		resolver:     &mockResolver{},
		entitlements: &mockEntitlements{},
		provisioner:  &mockProvisioner{},
		audit:        &mockAuditLog{},
	}
	server := NewServer(Deps{
		Catalog:      mocks.catalog,
		Grants:       mocks.grants,
		Resolver:     mocks.resolver,
		Entitlements: mocks.entitlements,
		Provisioner:  mocks.provisioner,
		Audit:        mocks.audit,
	})
	return server, mocks
}

func doRequest(t *testing.T, server *Server, actor *auth.Actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	r := httptest.NewRequest(method, path, reader)
	if actor != nil {
		r = r.WithContext(contextkeys.WithActor(r.Context(), actor))
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

var (
	testAdmin      = &auth.Actor{UserID: 1, CompanyID: 5, Role: auth.RoleAdmin}
	testSuperAdmin = &auth.Actor{UserID: 99, Role: auth.RoleSuperAdmin}
	testUser       = &auth.Actor{UserID: 7, CompanyID: 5, Role: auth.RoleUser}
)
