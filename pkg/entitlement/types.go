package entitlement

import (
	"context"
	"database/sql"
	"time"

	"github.com/platinummonkey/backoffice/pkg/auth"
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/companies"
	"github.com/platinummonkey/backoffice/pkg/grants"
)

// Source identifies which layer granted an effective permission
type Source string

const (
	SourceRole   Source = "role"
	SourceData   Source = "data"
	SourceModule Source = "module"
)

// sourceRank orders sources for de-duplication: explicit grant > module >
// role default.
var sourceRank = map[Source]int{
	SourceData:   3,
	SourceModule: 2,
	SourceRole:   1,
}

// EffectivePermission is one resolved capability with its provenance
type EffectivePermission struct {
	PermissionKey string `json:"permission_key"`
	Group         string `json:"group"`
	Source        Source `json:"source"`
	GrantedVia    string `json:"granted_via"`
}

// CatalogStore is the slice of pkg/catalog the engine reads
type CatalogStore interface {
	GetPermission(ctx context.Context, key string) (*catalog.Permission, error)
	GetPermissions(ctx context.Context, keys []string) (map[string]*catalog.Permission, error)
	ListPermissions(ctx context.Context, filter catalog.PermissionFilter) ([]catalog.Permission, error)
	GetModule(ctx context.Context, moduleID int64) (*catalog.Module, error)
	ListModules(ctx context.Context, activeOnly bool) ([]catalog.Module, error)
	GetTemplate(ctx context.Context, templateID int64) (*catalog.Template, error)
	RoleDefaults(ctx context.Context, role string) ([]string, error)
}

// GrantStore is the slice of pkg/grants the engine reads and mutates
type GrantStore interface {
	DB() *sql.DB

	UpsertDataGrantTx(ctx context.Context, tx *sql.Tx, grant *grants.DataPermissionGrant) error
	DeleteDataGrantTx(ctx context.Context, tx *sql.Tx, userID, companyID int64, permissionKey string) error
	GetDataGrant(ctx context.Context, userID, companyID int64, permissionKey string) (*grants.DataPermissionGrant, error)
	ListUserDataGrants(ctx context.Context, userID, companyID int64) ([]grants.DataPermissionGrant, error)
	ActiveGrantKeys(ctx context.Context, userID, companyID int64) (map[string]bool, error)

	UpsertModuleGrantTx(ctx context.Context, tx *sql.Tx, grant *grants.ModuleGrant) error
	DeleteModuleGrantTx(ctx context.Context, tx *sql.Tx, userID, companyID, moduleID int64) error
	ListUserModuleGrants(ctx context.Context, userID, companyID int64) ([]grants.ModuleGrant, error)

	GetProvisioning(ctx context.Context, companyID, moduleID int64) (*grants.Provisioning, error)
	ListCompanyProvisioning(ctx context.Context, companyID int64, enabledOnly bool) ([]grants.Provisioning, error)

	GetActiveCustomRole(ctx context.Context, userID, companyID int64) (*grants.CustomRole, error)
}

// CompanyStore is the slice of pkg/companies the engine reads
type CompanyStore interface {
	GetCompany(ctx context.Context, companyID int64) (*companies.Company, error)
	GetUser(ctx context.Context, userID int64) (*companies.User, error)
	UserBelongsTo(ctx context.Context, userID, companyID int64) (bool, error)
}

// GrantRequest is a single grant or explicit denial of a data permission
type GrantRequest struct {
	Actor         auth.Actor
	UserID        int64
	CompanyID     int64
	PermissionKey string
	IsGranted     bool
	Reason        string
	ExpiresAt     *time.Time
}

// RevokeRequest removes a data permission grant row
type RevokeRequest struct {
	Actor         auth.Actor
	UserID        int64
	CompanyID     int64
	PermissionKey string
	Reason        string
}

// BulkItem is one entry in a bulk grant request, processed in input order
type BulkItem struct {
	PermissionKey string `json:"permission_key"`
	IsGranted     bool   `json:"is_granted"`
}

// BulkError records one failed bulk item, preserving input position
type BulkError struct {
	Index         int    `json:"index"`
	PermissionKey string `json:"permission_key"`
	Message       string `json:"message"`
}

// BulkResult summarizes a bulk grant: successes committed, failures listed
type BulkResult struct {
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []BulkError `json:"errors,omitempty"`
}

// ModuleGrantRequest grants or revokes per-user module access
type ModuleGrantRequest struct {
	Actor        auth.Actor
	UserID       int64
	CompanyID    int64
	ModuleID     int64
	Restrictions map[string]interface{}
	ExpiresAt    *time.Time
	Reason       string
}

// TemplateResult aggregates the outcome of applying a template
type TemplateResult struct {
	PermissionsGranted int         `json:"permissions_granted"`
	ModulesGranted     int         `json:"modules_granted"`
	Errors             []BulkError `json:"errors,omitempty"`
}
