package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/companies"
	"github.com/platinummonkey/backoffice/pkg/entitlement"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/platinummonkey/backoffice/pkg/httputil"
	"github.com/platinummonkey/backoffice/pkg/provisioning"
)

// writeServiceError maps business errors onto HTTP status codes.
// Authorization failures surface as 404 so cross-tenant probes cannot
// confirm that a resource exists.
func writeServiceError(w http.ResponseWriter, err error) {
	var depErr *entitlement.DependencyError
	if errors.As(err, &depErr) {
		httputil.WriteMissingDependencies(w, depErr.Error(), depErr.Missing)
		return
	}

	var catalogValidation *catalog.ValidationError
	var grantsValidation *grants.ValidationError
	var provValidation *provisioning.ValidationError
	if errors.As(err, &catalogValidation) || errors.As(err, &grantsValidation) || errors.As(err, &provValidation) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var catalogConflict *catalog.ConflictError
	var entConflict *entitlement.ConflictError
	var provConflict *provisioning.ConflictError
	if errors.As(err, &catalogConflict) || errors.As(err, &entConflict) || errors.As(err, &provConflict) {
		httputil.WriteConflict(w, err.Error())
		return
	}

	if isNotFound(err) {
		httputil.WriteNotFound(w, "not found")
		return
	}

	httputil.WriteInternalError(w, err)
}

func isNotFound(err error) bool {
	var entNotFound *entitlement.NotFoundError
	var catalogNotFound *catalog.NotFoundError
	var grantsNotFound *grants.NotFoundError
	var companiesNotFound *companies.NotFoundError
	var provNotFound *provisioning.NotFoundError
	var entAuth *entitlement.AuthorizationError
	var provAuth *provisioning.AuthorizationError
	return errors.As(err, &entNotFound) ||
		errors.As(err, &catalogNotFound) ||
		errors.As(err, &grantsNotFound) ||
		errors.As(err, &companiesNotFound) ||
		errors.As(err, &provNotFound) ||
		errors.As(err, &entAuth) ||
		errors.As(err, &provAuth)
}
