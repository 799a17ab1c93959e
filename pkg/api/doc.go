// Package api exposes the portal's guarded HTTP surface: profile and
// company endpoints, regional announcement listings, role and
// permission administration, the security event trail, and a
// server-rendered dashboard. Authorization policy lives in the guard;
// handlers here assume it already ran.
package api
