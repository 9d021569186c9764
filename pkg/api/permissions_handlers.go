package api

import (
	"context"
	"net/http"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/httputil"
)

// listPermissions handles GET /api/v1/permissions. With company_id the
// listing narrows to the permissions reachable for that company:
// foundation keys plus keys of core-tier or enabled-provisioned modules.
func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	foundationOnly, err := httputil.QueryBool(r, "foundation_only")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid foundation_only")
		return
	}

	grouped, err := httputil.QueryBool(r, "grouped")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid grouped")
		return
	}

	companyID, hasCompany, err := httputil.QueryInt64(r, "company_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid company_id")
		return
	}
	if hasCompany && !actor.CanManageCompany(companyID) {
		httputil.WriteNotFound(w, "not found")
		return
	}

	perms, err := s.catalog.ListPermissions(r.Context(), catalog.PermissionFilter{
		Group:          r.URL.Query().Get("group"),
		FoundationOnly: foundationOnly,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if hasCompany {
		perms, err = s.scopeToCompany(r.Context(), companyID, perms)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	if grouped {
		byGroup := make(map[string][]catalog.Permission)
		for _, p := range perms {
			byGroup[p.Group] = append(byGroup[p.Group], p)
		}
		httputil.WriteSuccess(w, byGroup)
		return
	}

	httputil.WriteSuccess(w, perms)
}

// scopeToCompany filters a permission list down to what the company can
// reach, mirroring the resolver's module gating: core-tier modules count
// as provisioned, foundation permissions bypass gating entirely.
func (s *Server) scopeToCompany(ctx context.Context, companyID int64, perms []catalog.Permission) ([]catalog.Permission, error) {
	modules, err := s.catalog.ListModules(ctx, true)
	if err != nil {
		return nil, err
	}
	provisioned := make(map[int64]bool)
	provs, err := s.grants.ListCompanyProvisioning(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	for _, p := range provs {
		provisioned[p.ModuleID] = true
	}

	reachable := make(map[string]bool)
	for _, m := range modules {
		if m.Tier != catalog.TierCore && !provisioned[m.ID] {
			continue
		}
		for _, key := range m.PermissionKeys {
			reachable[key] = true
		}
	}

	scoped := perms[:0]
	for _, p := range perms {
		if p.IsFoundation || reachable[p.Key] {
			scoped = append(scoped, p)
		}
	}
	return scoped, nil
}

// getPermissionDependencies handles GET /api/v1/permissions/{key}/dependencies
func (s *Server) getPermissionDependencies(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actor(w, r); !ok {
		return
	}

	key, err := httputil.PathString(r, "key")
	if err != nil {
		httputil.WriteBadRequest(w, "missing permission key")
		return
	}

	perm, err := s.catalog.GetPermission(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	requires := make([]catalog.Permission, 0, len(perm.Requires))
	if len(perm.Requires) > 0 {
		prereqs, err := s.catalog.GetPermissions(r.Context(), perm.Requires)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		// preserve declaration order
		for _, req := range perm.Requires {
			if p, ok := prereqs[req]; ok {
				requires = append(requires, *p)
			}
		}
	}

	httputil.WriteSuccess(w, dependenciesResponse{
		PermissionKey: perm.Key,
		Requires:      requires,
	})
}

// getUserGrants handles GET /api/v1/users/{id}/grants
func (s *Server) getUserGrants(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	userID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	companyID, ok2, err := httputil.QueryInt64(r, "company_id")
	if err != nil || !ok2 {
		httputil.WriteBadRequest(w, "missing or invalid company_id")
		return
	}

	if !actor.CanReadUser(userID, companyID) {
		httputil.WriteNotFound(w, "not found")
		return
	}

	userGrants, err := s.grants.ListUserDataGrants(r.Context(), userID, companyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, userGrants)
}

// getEffectivePermissions handles GET /api/v1/users/{id}/effective-permissions
func (s *Server) getEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	userID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	companyID, ok2, err := httputil.QueryInt64(r, "company_id")
	if err != nil || !ok2 {
		httputil.WriteBadRequest(w, "missing or invalid company_id")
		return
	}

	if !actor.CanReadUser(userID, companyID) {
		httputil.WriteNotFound(w, "not found")
		return
	}

	resolved, err := s.resolver.Resolve(r.Context(), userID, companyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, resolved)
}

// hasPermission handles GET /api/v1/users/{id}/has-permission
func (s *Server) hasPermission(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	userID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	companyID, ok2, err := httputil.QueryInt64(r, "company_id")
	if err != nil || !ok2 {
		httputil.WriteBadRequest(w, "missing or invalid company_id")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		httputil.WriteBadRequest(w, "missing key")
		return
	}

	if !actor.CanReadUser(userID, companyID) {
		httputil.WriteNotFound(w, "not found")
		return
	}

	has, err := s.resolver.HasPermission(r.Context(), userID, companyID, key)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, hasPermissionResponse{
		PermissionKey: key,
		HasPermission: has,
	})
}
