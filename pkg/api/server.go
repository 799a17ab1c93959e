package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/guard"
	"github.com/edukit/eduguard/pkg/observability"
	"github.com/edukit/eduguard/pkg/rbac"
)

// Server is the portal's HTTP API. Every route is wrapped by the guard;
// the handlers themselves only deal with already-authorized requests.
type Server struct {
	router      *mux.Router
	guard       *guard.Guard
	registry    *rbac.Registry
	store       *rbac.Store
	trail       *audit.DBLogger
	events      audit.SecurityLogger
	logger      *observability.Logger
	environment string
}

// Deps carries the server's collaborators. Guard and Store are required;
// Trail enables the security-event endpoints and Events the change-audit
// trail on role mutations.
type Deps struct {
	Guard       *guard.Guard
	Registry    *rbac.Registry
	Store       *rbac.Store
	Trail       *audit.DBLogger
	Events      audit.SecurityLogger
	Logger      *observability.Logger
	Environment string
}

// NewServer creates the API server and mounts its routes
func NewServer(deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		guard:       deps.Guard,
		registry:    deps.Registry,
		store:       deps.Store,
		trail:       deps.Trail,
		events:      deps.Events,
		logger:      deps.Logger,
		environment: deps.Environment,
	}
	if s.events == nil {
		s.events = audit.NewNopLogger()
	}
	if s.logger == nil {
		s.logger = observability.NewNopLogger()
	}
	if s.environment == "" {
		s.environment = "production"
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	authed := s.guard.WithAuth(guard.Options{})
	adminOnly := s.guard.WithAdminAuth()

	// Current user
	s.router.Handle("/api/me", authed(http.HandlerFunc(s.getCurrentUser))).Methods("GET")
	s.router.Handle("/api/profile",
		s.guard.WithResourceAuth(rbac.ResourceProfile, rbac.ActionRead)(
			http.HandlerFunc(s.getProfile))).Methods("GET")

	// Company settings, limited to company-level roles
	s.router.Handle("/api/company/settings",
		s.guard.WithCompanyAuth()(http.HandlerFunc(s.getCompanySettings))).Methods("GET")

	// Regional announcements; the region comes from the path, so the
	// handler invokes the guard itself instead of a fixed wrapper
	s.router.HandleFunc("/api/regions/{region}/announcements", s.listRegionAnnouncements).Methods("GET")

	// Role administration
	s.router.Handle("/api/admin/roles", adminOnly(http.HandlerFunc(s.listRoles))).Methods("GET")
	s.router.Handle("/api/admin/roles", adminOnly(http.HandlerFunc(s.createRole))).Methods("POST")
	s.router.Handle("/api/admin/roles/{id}", adminOnly(http.HandlerFunc(s.updateRole))).Methods("PUT")
	s.router.Handle("/api/admin/roles/{id}", adminOnly(http.HandlerFunc(s.deleteRole))).Methods("DELETE")

	// Per-user permission overrides
	s.router.Handle("/api/admin/users/{id}/permissions", adminOnly(http.HandlerFunc(s.listUserPermissions))).Methods("GET")
	s.router.Handle("/api/admin/users/{id}/permissions", adminOnly(http.HandlerFunc(s.grantUserPermission))).Methods("POST")
	s.router.Handle("/api/admin/users/{id}/permissions", adminOnly(http.HandlerFunc(s.revokeUserPermission))).Methods("DELETE")

	// Security event trail
	s.router.Handle("/api/admin/security-events", adminOnly(http.HandlerFunc(s.searchSecurityEvents))).Methods("GET")
	s.router.Handle("/api/admin/security-events/stats", adminOnly(http.HandlerFunc(s.securityEventStats))).Methods("GET")

	// Server-rendered dashboard
	s.router.Handle("/dashboard", authed(http.HandlerFunc(s.renderDashboard))).Methods("GET")
}

// Router exposes the configured router for middleware wrapping
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
