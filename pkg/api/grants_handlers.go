package api

import (
	"net/http"

	"github.com/platinummonkey/backoffice/pkg/entitlement"
	"github.com/platinummonkey/backoffice/pkg/httputil"
)

// grantPermission handles POST /api/v1/grants
func (s *Server) grantPermission(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var req grantRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.CompanyID <= 0 || req.PermissionKey == "" {
		httputil.WriteBadRequest(w, "user_id, company_id, and permission_key are required")
		return
	}

	grant, err := s.entitlements.Grant(r.Context(), entitlement.GrantRequest{
		Actor:         *actor,
		UserID:        req.UserID,
		CompanyID:     req.CompanyID,
		PermissionKey: req.PermissionKey,
		IsGranted:     req.IsGranted,
		Reason:        req.Reason,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, grant)
}

// revokePermission handles DELETE /api/v1/grants
func (s *Server) revokePermission(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var req revokeRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.CompanyID <= 0 || req.PermissionKey == "" {
		httputil.WriteBadRequest(w, "user_id, company_id, and permission_key are required")
		return
	}

	err := s.entitlements.Revoke(r.Context(), entitlement.RevokeRequest{
		Actor:         *actor,
		UserID:        req.UserID,
		CompanyID:     req.CompanyID,
		PermissionKey: req.PermissionKey,
		Reason:        req.Reason,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// bulkGrantPermissions handles POST /api/v1/grants/bulk. Per-item business
// failures come back inside a 200 response; only infrastructure failures
// produce an error status.
func (s *Server) bulkGrantPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var req bulkGrantRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.CompanyID <= 0 || len(req.Items) == 0 {
		httputil.WriteBadRequest(w, "user_id, company_id, and items are required")
		return
	}

	result, err := s.entitlements.BulkGrant(r.Context(), *actor, req.UserID, req.CompanyID, req.Items, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// grantModule handles POST /api/v1/module-grants
func (s *Server) grantModule(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	req, ok := parseModuleGrantRequest(w, r)
	if !ok {
		return
	}

	err := s.entitlements.GrantModule(r.Context(), entitlement.ModuleGrantRequest{
		Actor:        *actor,
		UserID:       req.UserID,
		CompanyID:    req.CompanyID,
		ModuleID:     req.ModuleID,
		Restrictions: req.Restrictions,
		Reason:       req.Reason,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// revokeModule handles DELETE /api/v1/module-grants
func (s *Server) revokeModule(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	req, ok := parseModuleGrantRequest(w, r)
	if !ok {
		return
	}

	err := s.entitlements.RevokeModule(r.Context(), entitlement.ModuleGrantRequest{
		Actor:     *actor,
		UserID:    req.UserID,
		CompanyID: req.CompanyID,
		ModuleID:  req.ModuleID,
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func parseModuleGrantRequest(w http.ResponseWriter, r *http.Request) (moduleGrantRequest, bool) {
	var req moduleGrantRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return req, false
	}
	if req.UserID <= 0 || req.CompanyID <= 0 || req.ModuleID <= 0 {
		httputil.WriteBadRequest(w, "user_id, company_id, and module_id are required")
		return req, false
	}
	return req, true
}
