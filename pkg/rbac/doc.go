// Package rbac implements role-based access control for the portal.
//
// The package has two layers:
//
//  1. A pure, side-effect-free permission resolver: package-level predicates
//     (Can, HasRole, IsAdmin, CanAccessRegion, Evaluate) that answer
//     authorization questions about a User against the built-in role table.
//     All predicates fail closed: a nil user, an unknown role, or a missing
//     region set always resolves to false.
//
//  2. A persistence layer (Store, Cache, Registry) for company-scoped custom
//     roles and per-user permission overrides. The registry hydrates a User's
//     explicit permission list before guard evaluation; the pure predicates
//     prefer that list over the role table when present.
//
// Region access uses the sentinel RegionAll: a user whose accessible regions
// contain "ALL" passes every region check.
package rbac
