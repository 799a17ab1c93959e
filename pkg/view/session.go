package view

import (
	"context"
	"html/template"

	"github.com/edukit/eduguard/pkg/rbac"
)

// Session is the per-render authorization view. User is nil for guests;
// Loading is true while the client session is still being resolved, in
// which case gates render the Placeholder instead of evaluating
// permissions.
type Session struct {
	User        *rbac.User
	Loading     bool
	Environment string
	Placeholder template.HTML
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithEnvironment sets the deployment environment, consulted by DebugInfo
func WithEnvironment(env string) SessionOption {
	return func(s *Session) { s.Environment = env }
}

// WithPlaceholder sets the markup gates render while the session loads
func WithPlaceholder(placeholder template.HTML) SessionOption {
	return func(s *Session) { s.Placeholder = placeholder }
}

// NewSession builds a render session for the given user
func NewSession(user *rbac.User, loading bool, opts ...SessionOption) *Session {
	s := &Session{User: user, Loading: loading, Environment: "production"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Can reports whether the session user holds the permission
func (s *Session) Can(resource rbac.Resource, action rbac.Action) bool {
	return rbac.Can(s.User, resource, action)
}

// HasRole reports an exact role match
func (s *Session) HasRole(role rbac.RoleName) bool {
	return rbac.HasRole(s.User, role)
}

// HasAnyRole reports whether the user's role is one of the listed roles
func (s *Session) HasAnyRole(roles ...rbac.RoleName) bool {
	return rbac.HasAnyRole(s.User, roles...)
}

// IsAdmin reports whether the user holds an administrative role
func (s *Session) IsAdmin() bool {
	return rbac.IsAdmin(s.User)
}

// IsCompanyLevel reports whether the user holds a company-level role
func (s *Session) IsCompanyLevel() bool {
	return rbac.IsCompanyLevel(s.User)
}

// CanAccessRegion reports whether the user may access the region
func (s *Session) CanAccessRegion(regionID string) bool {
	return rbac.CanAccessRegion(s.User, regionID)
}

// IsAuthenticated reports whether a user is signed in
func (s *Session) IsAuthenticated() bool {
	return s.User != nil
}

type sessionKey struct{}

// WithSession attaches the render session to the context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// FromContext returns the attached session, if any
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*Session)
	return session, ok
}

// MustFromContext returns the attached session and panics when none was
// attached. Call it only under a handler that ran WithSession.
func MustFromContext(ctx context.Context) *Session {
	session, ok := FromContext(ctx)
	if !ok {
		panic("view: no session in context; render handlers must attach one with WithSession")
	}
	return session
}

// FuncMap exposes the session's predicates to html/template. Gate
// helpers that choose between markup blocks live on the Session itself;
// these cover the common inline cases:
//
//	{{if can "user" "delete"}} ... {{end}}
func FuncMap(s *Session) template.FuncMap {
	return template.FuncMap{
		"can": func(resource, action string) bool {
			return s.Can(rbac.Resource(resource), rbac.Action(action))
		},
		"hasRole": func(role string) bool {
			return s.HasRole(rbac.RoleName(role))
		},
		"hasAnyRole": func(roles ...string) bool {
			names := make([]rbac.RoleName, len(roles))
			for i, r := range roles {
				names[i] = rbac.RoleName(r)
			}
			return s.HasAnyRole(names...)
		},
		"isAdmin":         s.IsAdmin,
		"isCompanyLevel":  s.IsCompanyLevel,
		"canAccessRegion": s.CanAccessRegion,
		"isAuthenticated": s.IsAuthenticated,
		"isGuest":         func() bool { return s.User == nil },
		"isLoading":       func() bool { return s.Loading },
	}
}
