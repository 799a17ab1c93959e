package view

import (
	"html/template"

	"github.com/edukit/eduguard/pkg/rbac"
)

// Gates choose between two markup blocks. While the session loads they
// render the Placeholder rather than evaluating permissions, so a slow
// session resolve never flashes gated content.

func (s *Session) gate(pass bool, children, fallback template.HTML) template.HTML {
	if s.Loading {
		return s.Placeholder
	}
	if pass {
		return children
	}
	return fallback
}

// IfCan renders children when the user holds the permission
func (s *Session) IfCan(resource rbac.Resource, action rbac.Action, children, fallback template.HTML) template.HTML {
	return s.gate(s.Can(resource, action), children, fallback)
}

// IfRole renders children on a role match. Without requireAll any listed
// role suffices. With requireAll the user's single role must satisfy
// every listed role, which a list of two or more distinct roles can
// never do; that restrictive behavior is intentional and pinned by
// tests.
func (s *Session) IfRole(roles []rbac.RoleName, requireAll bool, children, fallback template.HTML) template.HTML {
	pass := rbac.HasAnyRole(s.User, roles...)
	if requireAll {
		pass = rbac.HasAllRoles(s.User, roles...)
	}
	return s.gate(pass, children, fallback)
}

// IfAdmin renders children for administrative roles
func (s *Session) IfAdmin(children, fallback template.HTML) template.HTML {
	return s.gate(s.IsAdmin(), children, fallback)
}

// IfCompanyLevel renders children for company-level roles
func (s *Session) IfCompanyLevel(children, fallback template.HTML) template.HTML {
	return s.gate(s.IsCompanyLevel(), children, fallback)
}

// IfRegion renders children when the user may access the region
func (s *Session) IfRegion(regionID string, children, fallback template.HTML) template.HTML {
	return s.gate(s.CanAccessRegion(regionID), children, fallback)
}

// IfAuthenticated renders children for signed-in users. With requireAuth
// false it renders children unconditionally, for content that is fine
// for guests too.
func (s *Session) IfAuthenticated(requireAuth bool, children, fallback template.HTML) template.HTML {
	return s.gate(!requireAuth || s.User != nil, children, fallback)
}

// IfGuest renders children only when no user is signed in
func (s *Session) IfGuest(children, fallback template.HTML) template.HTML {
	return s.gate(s.User == nil, children, fallback)
}

// IfPermission renders children when the composite conditions evaluate
// true under the operator
func (s *Session) IfPermission(cond rbac.Conditions, op rbac.Operator, children, fallback template.HTML) template.HTML {
	return s.gate(rbac.Evaluate(s.User, cond, op), children, fallback)
}
