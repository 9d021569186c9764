package grants

import (
	"fmt"
	"time"
)

// PricingTier classifies how a provisioning record is priced
type PricingTier string

const (
	PricingStandard   PricingTier = "standard"
	PricingCustom     PricingTier = "custom"
	PricingEnterprise PricingTier = "enterprise"
)

// Valid reports whether the tier is one of the known pricing tiers
func (t PricingTier) Valid() bool {
	switch t {
	case PricingStandard, PricingCustom, PricingEnterprise:
		return true
	}
	return false
}

// DataPermissionGrant is a per-user permission grant or explicit denial.
// IsGranted false is a denial that suppresses the key no matter which
// other source would have provided it.
type DataPermissionGrant struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	CompanyID     int64      `json:"company_id"`
	PermissionKey string     `json:"permission_key"`
	IsGranted     bool       `json:"is_granted"`
	GrantedBy     int64      `json:"granted_by"`
	Reason        string     `json:"reason,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Active reports whether the grant should participate in resolution at t
func (g *DataPermissionGrant) Active(t time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(t)
}

// ModuleGrant is explicit per-user access to a module
type ModuleGrant struct {
	ID           int64                  `json:"id"`
	UserID       int64                  `json:"user_id"`
	CompanyID    int64                  `json:"company_id"`
	ModuleID     int64                  `json:"module_id"`
	Restrictions map[string]interface{} `json:"restrictions,omitempty"`
	GrantedBy    int64                  `json:"granted_by"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Provisioning records that a company has a module enabled, with pricing.
// Price fields are overrides; nil means the module default applies.
type Provisioning struct {
	ID                int64       `json:"id"`
	CompanyID         int64       `json:"company_id"`
	ModuleID          int64       `json:"module_id"`
	PricingTier       PricingTier `json:"pricing_tier"`
	MonthlyPriceCents *int64      `json:"monthly_price_cents,omitempty"`
	PerUserPriceCents *int64      `json:"per_user_price_cents,omitempty"`
	UsersLicensed     int         `json:"users_licensed"`
	BillingNotes      string      `json:"billing_notes,omitempty"`
	IsEnabled         bool        `json:"is_enabled"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// CustomRole is a company-scoped named permission set that replaces the
// standard role defaults for users assigned to it. Soft-deleted via
// IsActive.
type CustomRole struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"company_id"`
	Name           string    `json:"name"`
	PermissionKeys []string  `json:"permission_keys"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NotFoundError indicates a grant-store entity does not exist
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError indicates a malformed grant-store request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
