package guard

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/edukit/eduguard/pkg/async"
	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/auth"
	"github.com/edukit/eduguard/pkg/observability"
	"github.com/edukit/eduguard/pkg/rbac"
)

// Options describes a single authorization requirement. Zero-valued
// categories are not checked; every supplied category must pass.
type Options struct {
	// AdminOnly requires an administrative role
	AdminOnly bool

	// Roles lists acceptable roles. OR semantics unless RequireAll.
	Roles      []rbac.RoleName
	RequireAll bool

	// Resource and Action require a specific permission when both set
	Resource rbac.Resource
	Action   rbac.Action

	// CompanyLevel requires a company-level role
	CompanyLevel bool

	// Regions lists acceptable region codes; any match passes
	Regions []string
}

// Result is the guard's decision for one request
type Result struct {
	Success bool
	User    *rbac.User
	Error   string
	Status  int
}

// Client-facing denial messages. Stable strings; frontends match on them.
const (
	MsgAdminRequired        = "Admin privileges required"
	MsgInsufficientRoles    = "Insufficient role permissions"
	MsgInsufficientPerms    = "Insufficient permissions"
	MsgCompanyLevelRequired = "Company-level access required"
	MsgRegionDenied         = "Region access denied"
)

const eventTimeout = 3 * time.Second

// Guard authorizes requests. Dependencies are explicit; nothing is read
// from ambient globals.
type Guard struct {
	authenticator *auth.Authenticator
	registry      *rbac.Registry
	events        audit.SecurityLogger
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// Config wires a Guard. Authenticator is required; Registry, Events,
// Logger and Metrics are optional.
type Config struct {
	Authenticator *auth.Authenticator
	Registry      *rbac.Registry
	Events        audit.SecurityLogger
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// New builds a Guard from explicit dependencies
func New(cfg Config) *Guard {
	events := cfg.Events
	if events == nil {
		events = audit.NewNopLogger()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Guard{
		authenticator: cfg.Authenticator,
		registry:      cfg.Registry,
		events:        events,
		logger:        logger,
		metrics:       cfg.Metrics,
	}
}

// AuthenticateRequest runs only the authentication step
func (g *Guard) AuthenticateRequest(r *http.Request) Result {
	res := g.authenticator.AuthenticateRequest(r)
	return Result{Success: res.Success, User: res.User, Error: res.Error, Status: res.Status}
}

// AuthorizeRequest authenticates the request and evaluates every
// supplied option category in order, short-circuiting on the first
// failure. Authentication failures propagate verbatim.
func (g *Guard) AuthorizeRequest(r *http.Request, opts Options) Result {
	authRes := g.authenticator.AuthenticateRequest(r)
	if !authRes.Success {
		g.countDecision("denied", "unauthenticated")
		if authRes.Status == http.StatusUnauthorized && auth.ExtractToken(r) != "" {
			g.emit(r, audit.EventTypeTokenInvalid, nil, authRes.Error)
		}
		return Result{Error: authRes.Error, Status: authRes.Status}
	}
	user := authRes.User

	// Custom roles and per-user overrides come from the registry. A
	// hydration failure leaves the user with role-bundle permissions
	// only, which fails closed.
	if g.registry != nil {
		if err := g.registry.Hydrate(r.Context(), user); err != nil {
			g.logger.WithError(err).WithField("user_id", user.ID).Warn("permission hydration failed")
		}
	}

	if opts.AdminOnly && !rbac.IsAdmin(user) {
		return g.deny(r, user, opts, MsgAdminRequired, "Admin access required")
	}

	if len(opts.Roles) > 0 {
		ok := rbac.HasAnyRole(user, opts.Roles...)
		if opts.RequireAll {
			ok = rbac.HasAllRoles(user, opts.Roles...)
		}
		if !ok {
			msg := fmt.Sprintf("%s. Required roles: %s", MsgInsufficientRoles, joinRoles(opts.Roles))
			return g.deny(r, user, opts, msg, "Role requirement not met")
		}
	}

	if opts.Resource != "" && opts.Action != "" && !rbac.Can(user, opts.Resource, opts.Action) {
		reason := fmt.Sprintf("Missing permission %s:%s", opts.Resource, opts.Action)
		return g.deny(r, user, opts, MsgInsufficientPerms, reason)
	}

	if opts.CompanyLevel && !rbac.IsCompanyLevel(user) {
		return g.deny(r, user, opts, MsgCompanyLevelRequired, "Company-level access required")
	}

	if len(opts.Regions) > 0 {
		matched := false
		for _, region := range opts.Regions {
			if rbac.CanAccessRegion(user, region) {
				matched = true
				break
			}
		}
		if !matched {
			reason := fmt.Sprintf("No access to regions: %s", strings.Join(opts.Regions, ", "))
			return g.deny(r, user, opts, MsgRegionDenied, reason)
		}
	}

	g.countDecision("granted", "")
	g.emit(r, audit.EventTypeAPIAccessGranted, user, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
	return Result{Success: true, User: user}
}

func (g *Guard) deny(r *http.Request, user *rbac.User, opts Options, message, reason string) Result {
	g.countDecision("denied", reason)

	event := audit.NewEvent(audit.EventTypePermissionDenied, r)
	event.Reason = reason
	if opts.Resource != "" {
		event.Resource = string(opts.Resource)
		event.Action = string(opts.Action)
	}
	g.dispatch(event, user)

	return Result{Error: message, Status: http.StatusForbidden}
}

func (g *Guard) emit(r *http.Request, eventType audit.EventType, user *rbac.User, reason string) {
	event := audit.NewEvent(eventType, r)
	event.Reason = reason
	g.dispatch(event, user)
}

// dispatch writes the security event fire-and-forget. The write is
// detached from the request context so it survives the response being
// sent; the event must not be touched after this call.
func (g *Guard) dispatch(event *audit.SecurityEvent, user *rbac.User) {
	if user != nil {
		event.UserID = user.ID
		event.Email = user.Email
		event.Role = string(user.Role)
	}

	if g.metrics != nil {
		g.metrics.SecurityEventsTotal.WithLabelValues(string(event.EventType)).Inc()
	}

	async.SafeGoDetached(eventTimeout, "security event", func(ctx context.Context) error {
		if err := g.events.LogSecurityEvent(ctx, event); err != nil {
			if g.metrics != nil {
				g.metrics.SecurityEventSinkErrors.WithLabelValues("guard").Inc()
			}
			return err
		}
		return nil
	})
}

func (g *Guard) countDecision(decision, reason string) {
	if g.metrics != nil {
		g.metrics.AuthzDecisionsTotal.WithLabelValues(decision, reason).Inc()
	}
}

func joinRoles(roles []rbac.RoleName) string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}
