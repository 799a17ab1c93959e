// Package guard composes request authentication with permission checks
// and produces allow/deny decisions for protected routes.
//
// A Guard is built once with explicit dependencies (authenticator, role
// registry, security event sink) and consulted per request:
//
//	result := g.AuthorizeRequest(r, guard.Options{AdminOnly: true})
//
// Checks run strictly in sequence with short-circuit on first failure:
// authentication, admin flag, roles, resource/action permission,
// company-level flag, regions. All supplied categories must pass.
//
// Every denial emits a permission_denied security event and every grant
// an api_access_granted event, fire-and-forget: event logging never
// blocks or alters the decision.
//
// The With* helpers wrap http.Handlers so routes can be protected with
// ordinary middleware chaining.
package guard
