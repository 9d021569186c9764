package auth

import (
	"context"

	"github.com/platinummonkey/backoffice/pkg/contextkeys"
)

// Role represents platform-level roles
type Role string

const (
	RoleUser       Role = "user"        // May read own effective permissions only
	RoleAdmin      Role = "admin"       // May operate within own company
	RoleSuperAdmin Role = "super-admin" // May operate on any company
)

// IsSuperAdmin reports whether the role bypasses tenant scoping
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// Valid reports whether the role is one of the known platform roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Actor is the already-authenticated identity performing an engine call.
// Token and session issuance happen upstream; the engine only consumes
// the resolved identity.
type Actor struct {
	UserID    int64 `json:"user_id"`
	CompanyID int64 `json:"company_id"`
	Role      Role  `json:"role"`
}

// IsSuperAdmin reports whether the actor bypasses tenant scoping
func (a *Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// CanManageCompany reports whether the actor may mutate state in the
// given company scope
func (a *Actor) CanManageCompany(companyID int64) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return a.Role == RoleAdmin && a.CompanyID == companyID
}

// CanReadUser reports whether the actor may read grant state for the given
// user in the given company: self, company admin, or super-admin
func (a *Actor) CanReadUser(userID, companyID int64) bool {
	if a.IsSuperAdmin() {
		return true
	}
	if a.UserID == userID {
		return true
	}
	return a.Role == RoleAdmin && a.CompanyID == companyID
}

// ActorFromContext retrieves the actor placed by the identity middleware
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(*Actor)
	return actor, ok
}

// WithActor stores the actor on the context
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return contextkeys.WithActor(ctx, actor)
}
