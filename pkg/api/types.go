package api

import (
	"context"
	"time"

	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/auth"
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/entitlement"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/platinummonkey/backoffice/pkg/provisioning"
)

// Catalog is the permission/template catalog surface the handlers need
type Catalog interface {
	ListPermissions(ctx context.Context, filter catalog.PermissionFilter) ([]catalog.Permission, error)
	GetPermission(ctx context.Context, key string) (*catalog.Permission, error)
	GetPermissions(ctx context.Context, keys []string) (map[string]*catalog.Permission, error)
	ListModules(ctx context.Context, activeOnly bool) ([]catalog.Module, error)
	ListTemplates(ctx context.Context, targetRole string) ([]catalog.Template, error)
	GetTemplate(ctx context.Context, templateID int64) (*catalog.Template, error)
	CreateTemplate(ctx context.Context, tmpl *catalog.Template) error
	UpdateTemplate(ctx context.Context, tmpl *catalog.Template) error
	DeleteTemplate(ctx context.Context, templateID int64) error
}

// GrantReader exposes read-only grant state
type GrantReader interface {
	ListUserDataGrants(ctx context.Context, userID, companyID int64) ([]grants.DataPermissionGrant, error)
	ListCompanyProvisioning(ctx context.Context, companyID int64, enabledOnly bool) ([]grants.Provisioning, error)
}

// Resolver computes effective permissions
type Resolver interface {
	Resolve(ctx context.Context, userID, companyID int64) ([]entitlement.EffectivePermission, error)
	HasPermission(ctx context.Context, userID, companyID int64, key string) (bool, error)
}

// Entitlements is the grant/revoke orchestrator surface
type Entitlements interface {
	Grant(ctx context.Context, req entitlement.GrantRequest) (*grants.DataPermissionGrant, error)
	Revoke(ctx context.Context, req entitlement.RevokeRequest) error
	BulkGrant(ctx context.Context, actor auth.Actor, userID, companyID int64, items []entitlement.BulkItem, reason string) (*entitlement.BulkResult, error)
	ApplyTemplate(ctx context.Context, actor auth.Actor, templateID, userID, companyID int64) (*entitlement.TemplateResult, error)
	GrantModule(ctx context.Context, req entitlement.ModuleGrantRequest) error
	RevokeModule(ctx context.Context, req entitlement.ModuleGrantRequest) error
}

// Provisioner applies provisioning changes and computes costs
type Provisioner interface {
	Provision(ctx context.Context, req provisioning.ProvisionRequest) (*grants.Provisioning, error)
	CompanyCosts(ctx context.Context, companyID int64) (*provisioning.CostSummary, error)
}

// AuditLog is the audit query surface
type AuditLog interface {
	Search(ctx context.Context, filter audit.Filter) (*audit.SearchResult, error)
	Export(ctx context.Context, filter audit.Filter, format audit.ExportFormat) ([]byte, error)
}

// grantRequest is the wire shape for POST /api/v1/grants
type grantRequest struct {
	UserID        int64      `json:"user_id"`
	CompanyID     int64      `json:"company_id"`
	PermissionKey string     `json:"permission_key"`
	IsGranted     bool       `json:"is_granted"`
	Reason        string     `json:"reason,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// revokeRequest is the wire shape for DELETE /api/v1/grants
type revokeRequest struct {
	UserID        int64  `json:"user_id"`
	CompanyID     int64  `json:"company_id"`
	PermissionKey string `json:"permission_key"`
	Reason        string `json:"reason,omitempty"`
}

// bulkGrantRequest is the wire shape for POST /api/v1/grants/bulk
type bulkGrantRequest struct {
	UserID    int64                  `json:"user_id"`
	CompanyID int64                  `json:"company_id"`
	Items     []entitlement.BulkItem `json:"items"`
	Reason    string                 `json:"reason,omitempty"`
}

// moduleGrantRequest is the wire shape for POST/DELETE /api/v1/module-grants
type moduleGrantRequest struct {
	UserID       int64                  `json:"user_id"`
	CompanyID    int64                  `json:"company_id"`
	ModuleID     int64                  `json:"module_id"`
	Restrictions map[string]interface{} `json:"restrictions,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
}

// applyTemplateRequest is the wire shape for POST /api/v1/templates/{id}/apply
type applyTemplateRequest struct {
	UserID    int64 `json:"user_id"`
	CompanyID int64 `json:"company_id"`
}

// provisionRequest is the wire shape for the provisioning endpoint
type provisionRequest struct {
	PricingTier       grants.PricingTier `json:"pricing_tier"`
	MonthlyPriceCents *int64             `json:"monthly_price_cents,omitempty"`
	PerUserPriceCents *int64             `json:"per_user_price_cents,omitempty"`
	UsersLicensed     int                `json:"users_licensed"`
	BillingNotes      string             `json:"billing_notes,omitempty"`
	IsEnabled         bool               `json:"is_enabled"`
	Reason            string             `json:"reason,omitempty"`
}

// dependenciesResponse is the wire shape for permission dependencies
type dependenciesResponse struct {
	PermissionKey string               `json:"permission_key"`
	Requires      []catalog.Permission `json:"requires"`
}

// hasPermissionResponse is the wire shape for the single-key check
type hasPermissionResponse struct {
	PermissionKey string `json:"permission_key"`
	HasPermission bool   `json:"has_permission"`
}
