package api

import (
	"net/http"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/httputil"
)

// listTemplates handles GET /api/v1/templates
func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actor(w, r); !ok {
		return
	}

	templates, err := s.catalog.ListTemplates(r.Context(), r.URL.Query().Get("target_role"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, templates)
}

// createTemplate handles POST /api/v1/templates. Template authoring is a
// platform operation, super-admin only.
func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsSuperAdmin() {
		httputil.WriteNotFound(w, "not found")
		return
	}

	var tmpl catalog.Template
	if err := httputil.ParseJSON(r, &tmpl); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := s.catalog.CreateTemplate(r.Context(), &tmpl); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, tmpl)
}

// updateTemplate handles PUT /api/v1/templates/{id}
func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsSuperAdmin() {
		httputil.WriteNotFound(w, "not found")
		return
	}

	templateID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid template id")
		return
	}

	var tmpl catalog.Template
	if err := httputil.ParseJSON(r, &tmpl); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	tmpl.ID = templateID

	if err := s.catalog.UpdateTemplate(r.Context(), &tmpl); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, tmpl)
}

// deleteTemplate handles DELETE /api/v1/templates/{id}
func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsSuperAdmin() {
		httputil.WriteNotFound(w, "not found")
		return
	}

	templateID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid template id")
		return
	}

	if err := s.catalog.DeleteTemplate(r.Context(), templateID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// applyTemplate handles POST /api/v1/templates/{id}/apply
func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	templateID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid template id")
		return
	}

	var req applyTemplateRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.CompanyID <= 0 {
		httputil.WriteBadRequest(w, "user_id and company_id are required")
		return
	}

	result, err := s.entitlements.ApplyTemplate(r.Context(), *actor, templateID, req.UserID, req.CompanyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}
