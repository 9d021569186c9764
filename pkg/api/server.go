package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/backoffice/pkg/auth"
	"github.com/platinummonkey/backoffice/pkg/httputil"
	"github.com/platinummonkey/backoffice/pkg/observability"
)

// Server routes entitlement engine requests to their handlers
type Server struct {
	router       *mux.Router
	catalog      Catalog
	grants       GrantReader
	resolver     Resolver
	entitlements Entitlements
	provisioner  Provisioner
	audit        AuditLog
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// Deps collects the services the server fronts
type Deps struct {
	Catalog      Catalog
	Grants       GrantReader
	Resolver     Resolver
	Entitlements Entitlements
	Provisioner  Provisioner
	Audit        AuditLog
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// NewServer creates the API server and sets up its routes
func NewServer(deps Deps) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		catalog:      deps.Catalog,
		grants:       deps.Grants,
		resolver:     deps.Resolver,
		entitlements: deps.Entitlements,
		provisioner:  deps.Provisioner,
		audit:        deps.Audit,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Catalog
	v1.HandleFunc("/permissions", s.listPermissions).Methods("GET")
	v1.HandleFunc("/permissions/{key}/dependencies", s.getPermissionDependencies).Methods("GET")

	// Per-user reads
	v1.HandleFunc("/users/{id}/grants", s.getUserGrants).Methods("GET")
	v1.HandleFunc("/users/{id}/effective-permissions", s.getEffectivePermissions).Methods("GET")
	v1.HandleFunc("/users/{id}/has-permission", s.hasPermission).Methods("GET")

	// Grants
	v1.HandleFunc("/grants", s.grantPermission).Methods("POST")
	v1.HandleFunc("/grants", s.revokePermission).Methods("DELETE")
	v1.HandleFunc("/grants/bulk", s.bulkGrantPermissions).Methods("POST")
	v1.HandleFunc("/module-grants", s.grantModule).Methods("POST")
	v1.HandleFunc("/module-grants", s.revokeModule).Methods("DELETE")

	// Templates
	v1.HandleFunc("/templates", s.listTemplates).Methods("GET")
	v1.HandleFunc("/templates", s.createTemplate).Methods("POST")
	v1.HandleFunc("/templates/{id}", s.updateTemplate).Methods("PUT")
	v1.HandleFunc("/templates/{id}", s.deleteTemplate).Methods("DELETE")
	v1.HandleFunc("/templates/{id}/apply", s.applyTemplate).Methods("POST")

	// Provisioning & costs
	v1.HandleFunc("/companies/{id}/modules/{moduleID}/provisioning", s.provisionModule).Methods("PUT")
	v1.HandleFunc("/companies/{id}/module-costs", s.getCompanyModuleCosts).Methods("GET")

	// Audit
	v1.HandleFunc("/audit", s.searchAudit).Methods("GET")
	v1.HandleFunc("/audit/export", s.exportAudit).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// actor pulls the identified actor off the context, rejecting the request
// when the identity middleware did not run
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (*auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "missing identity")
		return nil, false
	}
	return actor, true
}
