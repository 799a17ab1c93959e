package guard

import (
	"context"
	"net/http"

	"github.com/edukit/eduguard/pkg/contextkeys"
	"github.com/edukit/eduguard/pkg/httputil"
	"github.com/edukit/eduguard/pkg/rbac"
)

// WithAuth wraps next with the full authorization pipeline. The
// authorized user is stored on the request context; read it back with
// UserFromContext.
func (g *Guard) WithAuth(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.AuthorizeRequest(r, opts)
			if !res.Success {
				writeDenial(w, res)
				return
			}
			ctx := contextkeys.WithUser(r.Context(), res.User)
			ctx = contextkeys.WithUserID(ctx, res.User.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAdminAuth requires an administrative role
func (g *Guard) WithAdminAuth() func(http.Handler) http.Handler {
	return g.WithAuth(Options{AdminOnly: true})
}

// WithCompanyAuth requires a company-level role
func (g *Guard) WithCompanyAuth() func(http.Handler) http.Handler {
	return g.WithAuth(Options{CompanyLevel: true})
}

// WithRoleAuth requires any one of the listed roles
func (g *Guard) WithRoleAuth(roles ...rbac.RoleName) func(http.Handler) http.Handler {
	return g.WithAuth(Options{Roles: roles})
}

// WithResourceAuth requires a specific resource/action permission
func (g *Guard) WithResourceAuth(resource rbac.Resource, action rbac.Action) func(http.Handler) http.Handler {
	return g.WithAuth(Options{Resource: resource, Action: action})
}

// WithRegionAuth requires access to at least one of the listed regions
func (g *Guard) WithRegionAuth(regions ...string) func(http.Handler) http.Handler {
	return g.WithAuth(Options{Regions: regions})
}

// UserFromContext returns the user attached by WithAuth
func UserFromContext(ctx context.Context) (*rbac.User, bool) {
	user, ok := ctx.Value(contextkeys.UserKey).(*rbac.User)
	return user, ok
}

func writeDenial(w http.ResponseWriter, res Result) {
	switch res.Status {
	case http.StatusUnauthorized:
		httputil.WriteUnauthorized(w, res.Error)
	case http.StatusForbidden:
		httputil.WriteForbidden(w, res.Error)
	default:
		httputil.WriteErrorMessage(w, res.Status, res.Error)
	}
}
