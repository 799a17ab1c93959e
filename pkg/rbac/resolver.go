package rbac

// The resolver is pure: no I/O, no clock, no side effects. Every predicate
// degrades to false for a nil user rather than panicking.

// Can reports whether the user holds the (resource, action) permission.
// An explicit per-user permission list takes precedence over the role's
// built-in bundle; an unmapped role holds zero permissions.
func Can(u *User, resource Resource, action Action) bool {
	if u == nil {
		return false
	}
	want := Permission{Resource: resource, Action: action}
	if len(u.Permissions) > 0 {
		for _, p := range u.Permissions {
			if p.Resource == want.Resource && p.Action == want.Action {
				return true
			}
		}
		return false
	}
	role, ok := RoleByName(u.Role)
	if !ok {
		return false
	}
	return role.HasPermission(want)
}

// HasRole reports an exact role match
func HasRole(u *User, role RoleName) bool {
	return u != nil && u.Role == role
}

// HasAnyRole reports whether the user's role is one of the listed roles
func HasAnyRole(u *User, roles ...RoleName) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the user's single role satisfies every listed
// role. For a list with more than one distinct element this is necessarily
// false; an empty list is trivially satisfied.
func HasAllRoles(u *User, roles ...RoleName) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role != r {
			return false
		}
	}
	return true
}

// IsAdmin reports whether the user's role is in the fixed admin set
// (owner, secretariat).
func IsAdmin(u *User) bool {
	return u != nil && adminRoles[u.Role]
}

// IsCompanyLevel reports whether the user is an admin or a company
// administrator.
func IsCompanyLevel(u *User) bool {
	return u != nil && companyLevelRoles[u.Role]
}

// CanAccessRegion reports whether the user may access the region. The
// sentinel RegionAll in the user's accessible set grants every region.
func CanAccessRegion(u *User, regionID string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.AccessibleRegions {
		if r == RegionAll || r == regionID {
			return true
		}
	}
	return false
}

// Operator selects how condition categories combine in Evaluate
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// Conditions describes a composite authorization requirement. A category is
// "supplied" when non-empty (or, for AdminRequired, when true); supplied
// categories combine per the operator.
type Conditions struct {
	Roles         []RoleName   `json:"roles,omitempty"`
	AdminRequired bool         `json:"admin_required,omitempty"`
	Regions       []string     `json:"regions,omitempty"`
	Permissions   []Permission `json:"permissions,omitempty"`
}

// Evaluate checks the supplied condition categories against the user. Under
// AND every supplied category must pass; under OR at least one must.
// Categories left empty are vacuous: they never fail an AND and never
// satisfy an OR on their own. No supplied categories at all evaluates true
// under AND and false under OR.
//
// Within a category: Roles passes on any match, Regions on any accessible
// region, Permissions only when every listed pair is held.
func Evaluate(u *User, cond Conditions, op Operator) bool {
	type category struct {
		supplied bool
		pass     func() bool
	}

	categories := []category{
		{len(cond.Roles) > 0, func() bool { return HasAnyRole(u, cond.Roles...) }},
		{cond.AdminRequired, func() bool { return IsAdmin(u) }},
		{len(cond.Regions) > 0, func() bool {
			for _, region := range cond.Regions {
				if CanAccessRegion(u, region) {
					return true
				}
			}
			return false
		}},
		{len(cond.Permissions) > 0, func() bool {
			for _, p := range cond.Permissions {
				if !Can(u, p.Resource, p.Action) {
					return false
				}
			}
			return true
		}},
	}

	if op == OperatorOr {
		for _, c := range categories {
			if c.supplied && c.pass() {
				return true
			}
		}
		return false
	}

	// AND (the default for unknown operators: fail toward the stricter mode)
	for _, c := range categories {
		if c.supplied && !c.pass() {
			return false
		}
	}
	return true
}
