// Package view binds authorization predicates to server-rendered UI.
//
// A Session carries the signed-in user and a loading flag for one render
// pass. Templates receive it either directly or through FuncMap, and use
// the If* gates to include or omit markup:
//
//	session := view.NewSession(user, false)
//	tmpl.Execute(w, map[string]interface{}{"Session": session})
//
// Handlers stash the session on the request context with WithSession;
// render helpers recover it with MustFromContext, which panics when the
// session was never attached. That panic is deliberate: rendering gated
// UI without a session is a wiring mistake that should fail during
// development, not silently render as signed-out.
package view
