package api

import (
	"html/template"
	"net/http"

	"github.com/edukit/eduguard/pkg/guard"
	"github.com/edukit/eduguard/pkg/httputil"
	"github.com/edukit/eduguard/pkg/view"
)

const dashboardTemplate = `<!DOCTYPE html>
<html>
<head><title>Portal Dashboard</title></head>
<body>
<h1>Welcome, {{.Session.User.Name}}</h1>
{{if isAdmin}}<nav id="admin-nav"><a href="/api/admin/roles">Role administration</a></nav>{{end}}
{{if isCompanyLevel}}<section id="company-tools">Company tools</section>{{end}}
{{if can "announcement" "create"}}<a id="new-announcement" href="#">New announcement</a>{{end}}
{{.AdminPanel}}
{{.Debug}}
</body>
</html>`

// renderDashboard serves the signed-in landing page. Gated sections are
// decided server side from the same predicates the API guard uses.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := guard.UserFromContext(r.Context())
	if !ok {
		httputil.WriteInternalError(w, errMissingUser)
		return
	}

	session := view.NewSession(user, false, view.WithEnvironment(s.environment))

	tmpl, err := template.New("dashboard").Funcs(view.FuncMap(session)).Parse(dashboardTemplate)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	data := map[string]interface{}{
		"Session": session,
		"AdminPanel": session.IfAdmin(
			`<section id="audit-link"><a href="/api/admin/security-events">Security events</a></section>`, ""),
		"Debug": session.RenderDebugPanel(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("dashboard render failed")
	}
}
