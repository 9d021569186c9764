package api

import (
	"fmt"
	"net/http"

	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/httputil"
)

// searchAudit handles GET /api/v1/audit. Admins see their own company's
// records; super-admins may filter any company or none.
func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	filter, ok := s.auditFilter(w, r)
	if !ok {
		return
	}

	if !actor.IsSuperAdmin() {
		if filter.CompanyID == nil || !actor.CanManageCompany(*filter.CompanyID) {
			httputil.WriteNotFound(w, "not found")
			return
		}
	}

	result, err := s.audit.Search(r.Context(), *filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// exportAudit handles GET /api/v1/audit/export
func (s *Server) exportAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	filter, ok := s.auditFilter(w, r)
	if !ok {
		return
	}

	if !actor.IsSuperAdmin() {
		if filter.CompanyID == nil || !actor.CanManageCompany(*filter.CompanyID) {
			httputil.WriteNotFound(w, "not found")
			return
		}
	}

	format := audit.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = audit.ExportFormatJSON
	}
	switch format {
	case audit.ExportFormatJSON, audit.ExportFormatCSV, audit.ExportFormatNDJSON:
	default:
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown export format %q", format))
		return
	}

	data, err := s.audit.Export(r.Context(), *filter, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	contentType := "application/json"
	if format == audit.ExportFormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=audit.%s", format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) auditFilter(w http.ResponseWriter, r *http.Request) (*audit.Filter, bool) {
	filter := &audit.Filter{
		EntityType: audit.EntityType(r.URL.Query().Get("entity_type")),
		Action:     audit.Action(r.URL.Query().Get("action")),
	}

	for param, dest := range map[string]**int64{
		"actor_id":   &filter.ActorID,
		"user_id":    &filter.UserID,
		"company_id": &filter.CompanyID,
	} {
		val, ok, err := httputil.QueryInt64(r, param)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid "+param)
			return nil, false
		}
		if ok {
			v := val
			*dest = &v
		}
	}

	start, err := httputil.QueryTime(r, "start_time")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid start_time")
		return nil, false
	}
	filter.StartTime = start

	end, err := httputil.QueryTime(r, "end_time")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid end_time")
		return nil, false
	}
	filter.EndTime = end

	filter.Limit, err = httputil.QueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid limit")
		return nil, false
	}
	filter.Offset, err = httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid offset")
		return nil, false
	}

	return filter, true
}
