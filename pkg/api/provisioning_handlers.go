package api

import (
	"net/http"

	"github.com/platinummonkey/backoffice/pkg/httputil"
	"github.com/platinummonkey/backoffice/pkg/provisioning"
)

// provisionModule handles PUT /api/v1/companies/{id}/modules/{moduleID}/provisioning
func (s *Server) provisionModule(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	companyID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid company id")
		return
	}
	moduleID, err := httputil.ParsePathInt64(r, "moduleID")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid module id")
		return
	}

	var req provisionRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}

	prov, err := s.provisioner.Provision(r.Context(), provisioning.ProvisionRequest{
		Actor:             *actor,
		CompanyID:         companyID,
		ModuleID:          moduleID,
		PricingTier:       req.PricingTier,
		MonthlyPriceCents: req.MonthlyPriceCents,
		PerUserPriceCents: req.PerUserPriceCents,
		UsersLicensed:     req.UsersLicensed,
		BillingNotes:      req.BillingNotes,
		IsEnabled:         req.IsEnabled,
		Reason:            req.Reason,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, prov)
}

// getCompanyModuleCosts handles GET /api/v1/companies/{id}/module-costs
func (s *Server) getCompanyModuleCosts(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	companyID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid company id")
		return
	}

	if !actor.CanManageCompany(companyID) {
		httputil.WriteNotFound(w, "not found")
		return
	}

	summary, err := s.provisioner.CompanyCosts(r.Context(), companyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, summary)
}
