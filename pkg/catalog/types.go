package catalog

import (
	"time"
)

// ModuleTier classifies how a module is provisioned and billed
type ModuleTier string

const (
	TierCore     ModuleTier = "core"     // Always active for every company
	TierStandard ModuleTier = "standard" // Provisioned per company
	TierPremium  ModuleTier = "premium"  // Provisioned per company, premium pricing
)

// Valid reports whether the tier is known
func (t ModuleTier) Valid() bool {
	switch t {
	case TierCore, TierStandard, TierPremium:
		return true
	}
	return false
}

// Permission is a named capability. Requires lists the permission keys that
// must already be actively granted before this one can be granted.
type Permission struct {
	Key          string    `json:"key"`
	DisplayName  string    `json:"display_name"`
	Description  string    `json:"description,omitempty"`
	Group        string    `json:"group"`
	IsFoundation bool      `json:"is_foundation"` // available without module provisioning
	IsSystem     bool      `json:"is_system"`     // cannot be deleted or edited
	Requires     []string  `json:"requires,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Module is a provisionable unit of functionality. Prices are in cents.
type Module struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Tier              ModuleTier `json:"tier"`
	BasePriceCents    int64      `json:"base_price_cents"`
	PerUserPriceCents int64      `json:"per_user_price_cents"`
	PermissionKeys    []string   `json:"permission_keys"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Template is a reusable bundle of permissions and modules for a target role
type Template struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	TargetRole     string    `json:"target_role,omitempty"`
	PermissionKeys []string  `json:"permission_keys"`
	ModuleIDs      []int64   `json:"module_ids"`
	IsSystem       bool      `json:"is_system"` // read-only, apply-only
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PermissionFilter narrows ListPermissions
type PermissionFilter struct {
	Group          string
	FoundationOnly bool
}
