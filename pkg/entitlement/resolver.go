package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/companies"
)

// Resolver computes effective permissions. It is stateless and re-reads
// current catalog and grant state on every call: there is no cached result
// to invalidate, so a provisioning toggle or revoke is visible on the very
// next resolution.
type Resolver struct {
	catalog   CatalogStore
	grants    GrantStore
	companies CompanyStore
}

// NewResolver creates a resolver over the three stores
func NewResolver(catalogStore CatalogStore, grantStore GrantStore, companyStore CompanyStore) *Resolver {
	return &Resolver{
		catalog:   catalogStore,
		grants:    grantStore,
		companies: companyStore,
	}
}

// Resolve merges role defaults, direct data grants, and module-derived
// permissions into one deduplicated set with provenance. Explicit denial
// rows suppress their key regardless of any other source. Results are
// ordered by (group, key).
func (r *Resolver) Resolve(ctx context.Context, userID, companyID int64) ([]EffectivePermission, error) {
	user, err := r.lookupUser(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	if user.Role.IsSuperAdmin() {
		return r.fullCatalog(ctx)
	}

	resolved := make(map[string]EffectivePermission)
	add := func(key string, source Source, via string) {
		existing, ok := resolved[key]
		if ok && sourceRank[existing.Source] >= sourceRank[source] {
			return
		}
		resolved[key] = EffectivePermission{PermissionKey: key, Source: source, GrantedVia: via}
	}

	// 1. Role defaults, replaced entirely by an assigned custom role.
	customRole, err := r.grants.GetActiveCustomRole(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	if customRole != nil {
		for _, key := range customRole.PermissionKeys {
			add(key, SourceRole, customRole.Name)
		}
	} else {
		defaults, err := r.catalog.RoleDefaults(ctx, string(user.Role))
		if err != nil {
			return nil, err
		}
		for _, key := range defaults {
			add(key, SourceRole, string(user.Role))
		}
	}

	// 2. Direct data grants. Denials are collected and applied last so
	// they win no matter which source contributed the key.
	denied := make(map[string]bool)
	dataGrants, err := r.grants.ListUserDataGrants(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	for _, g := range dataGrants {
		if g.IsGranted {
			add(g.PermissionKey, SourceData, "direct grant")
		} else {
			denied[g.PermissionKey] = true
		}
	}

	// 3. Module-derived permissions.
	if err := r.addModulePermissions(ctx, userID, companyID, add); err != nil {
		return nil, err
	}

	for key := range denied {
		delete(resolved, key)
	}

	return r.annotate(ctx, resolved)
}

// HasPermission reports whether a single key resolves for the user
func (r *Resolver) HasPermission(ctx context.Context, userID, companyID int64, key string) (bool, error) {
	perms, err := r.Resolve(ctx, userID, companyID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.PermissionKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) lookupUser(ctx context.Context, userID, companyID int64) (*companies.User, error) {
	if _, err := r.companies.GetCompany(ctx, companyID); err != nil {
		var notFound *companies.NotFoundError
		if errors.As(err, &notFound) {
			return nil, &NotFoundError{Entity: "company", ID: companyID}
		}
		return nil, err
	}

	user, err := r.companies.GetUser(ctx, userID)
	if err != nil {
		var notFound *companies.NotFoundError
		if errors.As(err, &notFound) {
			return nil, &NotFoundError{Entity: "user", ID: userID}
		}
		return nil, err
	}

	if !user.Role.IsSuperAdmin() {
		belongs, err := r.companies.UserBelongsTo(ctx, userID, companyID)
		if err != nil {
			return nil, err
		}
		if !belongs {
			return nil, &NotFoundError{Entity: "user", ID: userID}
		}
	}

	return user, nil
}

// fullCatalog is the super-admin path: every catalog permission, already
// ordered by (group, key) in SQL.
func (r *Resolver) fullCatalog(ctx context.Context) ([]EffectivePermission, error) {
	all, err := r.catalog.ListPermissions(ctx, catalog.PermissionFilter{})
	if err != nil {
		return nil, err
	}

	perms := make([]EffectivePermission, 0, len(all))
	for _, p := range all {
		perms = append(perms, EffectivePermission{
			PermissionKey: p.Key,
			Group:         p.Group,
			Source:        SourceRole,
			GrantedVia:    "super-admin",
		})
	}
	return perms, nil
}

func (r *Resolver) addModulePermissions(ctx context.Context, userID, companyID int64, add func(string, Source, string)) error {
	modules, err := r.catalog.ListModules(ctx, true)
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		return nil
	}

	provisioned := make(map[int64]bool)
	provRecords, err := r.grants.ListCompanyProvisioning(ctx, companyID, true)
	if err != nil {
		return err
	}
	for _, p := range provRecords {
		provisioned[p.ModuleID] = true
	}

	userModules := make(map[int64]bool)
	moduleGrants, err := r.grants.ListUserModuleGrants(ctx, userID, companyID)
	if err != nil {
		return err
	}
	for _, g := range moduleGrants {
		userModules[g.ModuleID] = true
	}

	// Foundation permissions bypass module gating, so their metadata is
	// needed even for modules the user does not qualify for.
	var allKeys []string
	for _, m := range modules {
		allKeys = append(allKeys, m.PermissionKeys...)
	}
	keyMeta, err := r.catalog.GetPermissions(ctx, allKeys)
	if err != nil {
		return err
	}

	for _, m := range modules {
		qualified := m.Tier == catalog.TierCore ||
			(provisioned[m.ID] && userModules[m.ID])

		for _, key := range m.PermissionKeys {
			if qualified {
				add(key, SourceModule, m.Name)
				continue
			}
			if meta, ok := keyMeta[key]; ok && meta.IsFoundation {
				add(key, SourceModule, m.Name)
			}
		}
	}
	return nil
}

// annotate fills in permission groups and orders the result. Keys no
// longer present in the catalog are dropped rather than surfaced with
// fabricated metadata.
func (r *Resolver) annotate(ctx context.Context, resolved map[string]EffectivePermission) ([]EffectivePermission, error) {
	if len(resolved) == 0 {
		return []EffectivePermission{}, nil
	}

	keys := make([]string, 0, len(resolved))
	for key := range resolved {
		keys = append(keys, key)
	}

	meta, err := r.catalog.GetPermissions(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to annotate permissions: %w", err)
	}

	perms := make([]EffectivePermission, 0, len(resolved))
	for key, p := range resolved {
		m, ok := meta[key]
		if !ok {
			continue
		}
		p.Group = m.Group
		perms = append(perms, p)
	}

	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Group != perms[j].Group {
			return perms[i].Group < perms[j].Group
		}
		return perms[i].PermissionKey < perms[j].PermissionKey
	})
	return perms, nil
}
