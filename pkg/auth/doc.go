// Package auth turns an inbound HTTP request into an authenticated portal
// user or a typed failure.
//
// The pipeline is linear with early exit at each gate:
//
//	Start -> token present? -> token valid? -> Authenticated
//
// Failures are data, never panics: a missing token maps to 401, an invalid
// or expired token to 401, and a verifier malfunction to 500 with a generic
// message (the underlying error is logged server-side, never returned to the
// caller).
//
// Token verification is delegated to a TokenVerifier collaborator. Two
// implementations ship with the package: an HS256 JWT verifier for portals
// that mint their own tokens, and an OIDC verifier for portals fronted by an
// identity provider.
package auth
