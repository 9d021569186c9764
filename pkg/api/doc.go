// Package api exposes the entitlement engine over HTTP.
//
// # Routes
//
// All routes live under /api/v1 and expect an identified actor on the
// request context (see pkg/middleware.Identity). Authorization is applied
// uniformly at this boundary: an admin operates only within their own
// company, a super-admin anywhere, and a plain user may only read their
// own grants and effective permissions.
//
//	GET    /api/v1/permissions                                 catalog listing
//	GET    /api/v1/permissions/{key}/dependencies              direct prerequisites
//	GET    /api/v1/users/{id}/grants                           explicit data grants
//	GET    /api/v1/users/{id}/effective-permissions            resolved set
//	GET    /api/v1/users/{id}/has-permission                   single-key check
//	POST   /api/v1/grants                                      grant or deny one permission
//	DELETE /api/v1/grants                                      revoke one permission
//	POST   /api/v1/grants/bulk                                 ordered bulk grant
//	POST   /api/v1/module-grants                               per-user module access
//	DELETE /api/v1/module-grants                               revoke module access
//	GET    /api/v1/templates                                   list templates
//	POST   /api/v1/templates                                   create template
//	PUT    /api/v1/templates/{id}                              update (non-system only)
//	DELETE /api/v1/templates/{id}                              delete (non-system only)
//	POST   /api/v1/templates/{id}/apply                        apply to a user
//	PUT    /api/v1/companies/{id}/modules/{moduleID}/provisioning
//	GET    /api/v1/companies/{id}/module-costs
//	GET    /api/v1/audit                                       filtered audit search
//	GET    /api/v1/audit/export                                json/ndjson/csv export
//
// # Error Mapping
//
// Business errors map to status codes: validation 400, unmet dependencies
// 422 (with the full missing-key list), not-found and authorization
// failures 404 (cross-tenant denials never confirm resource existence),
// conflicts 409. Bulk partial failures are 200 with a structured body.
package api
