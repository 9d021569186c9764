package entitlement

import (
	"context"
	"database/sql"

	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/companies"
	"github.com/platinummonkey/backoffice/pkg/grants"
)

// mockCatalogStore is a mock implementation of CatalogStore
type mockCatalogStore struct {
	getPermissionFunc   func(key string) (*catalog.Permission, error)
	getPermissionsFunc  func(keys []string) (map[string]*catalog.Permission, error)
	listPermissionsFunc func(filter catalog.PermissionFilter) ([]catalog.Permission, error)
	getModuleFunc       func(moduleID int64) (*catalog.Module, error)
	listModulesFunc     func(activeOnly bool) ([]catalog.Module, error)
	getTemplateFunc     func(templateID int64) (*catalog.Template, error)
	roleDefaultsFunc    func(role string) ([]string, error)
}

func (m *mockCatalogStore) GetPermission(ctx context.Context, key string) (*catalog.Permission, error) {
	if m.getPermissionFunc != nil {
		return m.getPermissionFunc(key)
	}
	return &catalog.Permission{Key: key, Group: "test"}, nil
}

func (m *mockCatalogStore) GetPermissions(ctx context.Context, keys []string) (map[string]*catalog.Permission, error) {
	if m.getPermissionsFunc != nil {
		return m.getPermissionsFunc(keys)
	}
	perms := make(map[string]*catalog.Permission, len(keys))
	for _, key := range keys {
		perms[key] = &catalog.Permission{Key: key, Group: "test"}
	}
	return perms, nil
}

func (m *mockCatalogStore) ListPermissions(ctx context.Context, filter catalog.PermissionFilter) ([]catalog.Permission, error) {
	if m.listPermissionsFunc != nil {
		return m.listPermissionsFunc(filter)
	}
	return nil, nil
}

func (m *mockCatalogStore) GetModule(ctx context.Context, moduleID int64) (*catalog.Module, error) {
	if m.getModuleFunc != nil {
		return m.getModuleFunc(moduleID)
	}
	return &catalog.Module{ID: moduleID, Name: "test-module", Tier: catalog.TierStandard, IsActive: true}, nil
}

func (m *mockCatalogStore) ListModules(ctx context.Context, activeOnly bool) ([]catalog.Module, error) {
	if m.listModulesFunc != nil {
		return m.listModulesFunc(activeOnly)
	}
	return nil, nil
}

func (m *mockCatalogStore) GetTemplate(ctx context.Context, templateID int64) (*catalog.Template, error) {
	if m.getTemplateFunc != nil {
		return m.getTemplateFunc(templateID)
	}
	return &catalog.Template{ID: templateID, Name: "test-template"}, nil
}

func (m *mockCatalogStore) RoleDefaults(ctx context.Context, role string) ([]string, error) {
	if m.roleDefaultsFunc != nil {
		return m.roleDefaultsFunc(role)
	}
	return nil, nil
}

// mockGrantStore is a mock implementation of GrantStore
type mockGrantStore struct {
	db *sql.DB

	upsertDataGrantFunc     func(grant *grants.DataPermissionGrant) error
	deleteDataGrantFunc     func(userID, companyID int64, permissionKey string) error
	getDataGrantFunc        func(userID, companyID int64, permissionKey string) (*grants.DataPermissionGrant, error)
	listUserDataGrantsFunc  func(userID, companyID int64) ([]grants.DataPermissionGrant, error)
	activeGrantKeysFunc     func(userID, companyID int64) (map[string]bool, error)
	upsertModuleGrantFunc   func(grant *grants.ModuleGrant) error
	deleteModuleGrantFunc   func(userID, companyID, moduleID int64) error
	listModuleGrantsFunc    func(userID, companyID int64) ([]grants.ModuleGrant, error)
	getProvisioningFunc     func(companyID, moduleID int64) (*grants.Provisioning, error)
	listProvisioningFunc    func(companyID int64, enabledOnly bool) ([]grants.Provisioning, error)
	getActiveCustomRoleFunc func(userID, companyID int64) (*grants.CustomRole, error)
}

func (m *mockGrantStore) DB() *sql.DB {
	return m.db
}

func (m *mockGrantStore) UpsertDataGrantTx(ctx context.Context, tx *sql.Tx, grant *grants.DataPermissionGrant) error {
	if m.upsertDataGrantFunc != nil {
		return m.upsertDataGrantFunc(grant)
	}
	return nil
}

func (m *mockGrantStore) DeleteDataGrantTx(ctx context.Context, tx *sql.Tx, userID, companyID int64, permissionKey string) error {
	if m.deleteDataGrantFunc != nil {
		return m.deleteDataGrantFunc(userID, companyID, permissionKey)
	}
	return nil
}

func (m *mockGrantStore) GetDataGrant(ctx context.Context, userID, companyID int64, permissionKey string) (*grants.DataPermissionGrant, error) {
	if m.getDataGrantFunc != nil {
		return m.getDataGrantFunc(userID, companyID, permissionKey)
	}
	return nil, &grants.NotFoundError{Entity: "data grant", ID: userID}
}

func (m *mockGrantStore) ListUserDataGrants(ctx context.Context, userID, companyID int64) ([]grants.DataPermissionGrant, error) {
	if m.listUserDataGrantsFunc != nil {
		return m.listUserDataGrantsFunc(userID, companyID)
	}
	return nil, nil
}

func (m *mockGrantStore) ActiveGrantKeys(ctx context.Context, userID, companyID int64) (map[string]bool, error) {
	if m.activeGrantKeysFunc != nil {
		return m.activeGrantKeysFunc(userID, companyID)
	}
	return map[string]bool{}, nil
}

func (m *mockGrantStore) UpsertModuleGrantTx(ctx context.Context, tx *sql.Tx, grant *grants.ModuleGrant) error {
	if m.upsertModuleGrantFunc != nil {
		return m.upsertModuleGrantFunc(grant)
	}
	return nil
}

func (m *mockGrantStore) DeleteModuleGrantTx(ctx context.Context, tx *sql.Tx, userID, companyID, moduleID int64) error {
	if m.deleteModuleGrantFunc != nil {
		return m.deleteModuleGrantFunc(userID, companyID, moduleID)
	}
	return nil
}

func (m *mockGrantStore) ListUserModuleGrants(ctx context.Context, userID, companyID int64) ([]grants.ModuleGrant, error) {
	if m.listModuleGrantsFunc != nil {
		return m.listModuleGrantsFunc(userID, companyID)
	}
	return nil, nil
}

func (m *mockGrantStore) GetProvisioning(ctx context.Context, companyID, moduleID int64) (*grants.Provisioning, error) {
	if m.getProvisioningFunc != nil {
		return m.getProvisioningFunc(companyID, moduleID)
	}
	return nil, &grants.NotFoundError{Entity: "provisioning", ID: moduleID}
}

func (m *mockGrantStore) ListCompanyProvisioning(ctx context.Context, companyID int64, enabledOnly bool) ([]grants.Provisioning, error) {
	if m.listProvisioningFunc != nil {
		return m.listProvisioningFunc(companyID, enabledOnly)
	}
	return nil, nil
}

func (m *mockGrantStore) GetActiveCustomRole(ctx context.Context, userID, companyID int64) (*grants.CustomRole, error) {
	if m.getActiveCustomRoleFunc != nil {
		return m.getActiveCustomRoleFunc(userID, companyID)
	}
	return nil, nil
}

// mockCompanyStore is a mock implementation of CompanyStore
type mockCompanyStore struct {
	getCompanyFunc    func(companyID int64) (*companies.Company, error)
	getUserFunc       func(userID int64) (*companies.User, error)
	userBelongsToFunc func(userID, companyID int64) (bool, error)
}

func (m *mockCompanyStore) GetCompany(ctx context.Context, companyID int64) (*companies.Company, error) {
	if m.getCompanyFunc != nil {
		return m.getCompanyFunc(companyID)
	}
	return &companies.Company{ID: companyID, Name: "Test Co", IsActive: true}, nil
}

func (m *mockCompanyStore) GetUser(ctx context.Context, userID int64) (*companies.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(userID)
	}
	return &companies.User{ID: userID, CompanyID: 5, Role: "user", IsActive: true}, nil
}

func (m *mockCompanyStore) UserBelongsTo(ctx context.Context, userID, companyID int64) (bool, error) {
	if m.userBelongsToFunc != nil {
		return m.userBelongsToFunc(userID, companyID)
	}
	return true, nil
}

// mockRecorder captures audit records without a database
type mockRecorder struct {
	records []*audit.Record
	err     error
}

func (m *mockRecorder) Record(ctx context.Context, rec *audit.Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRecorder) RecordTx(ctx context.Context, tx *sql.Tx, rec *audit.Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}
