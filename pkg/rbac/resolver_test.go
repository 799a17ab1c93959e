package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func owner() *User {
	return &User{ID: "u-owner", Role: RoleOwner, AccessibleRegions: []string{RegionAll}}
}

func student() *User {
	return &User{ID: "u-student", Role: RoleStudent, RegionID: "kanto", AccessibleRegions: []string{"kanto"}}
}

func TestCan(t *testing.T) {
	t.Run("nil user fails closed", func(t *testing.T) {
		assert.False(t, Can(nil, ResourceUser, ActionCreate))
	})

	t.Run("role bundle grants", func(t *testing.T) {
		assert.True(t, Can(owner(), ResourceUser, ActionDelete))
		assert.True(t, Can(student(), ResourceDashboard, ActionRead))
	})

	t.Run("role bundle denies", func(t *testing.T) {
		assert.False(t, Can(student(), ResourceUser, ActionDelete))
		assert.False(t, Can(student(), ResourceAnnouncement, ActionPublish))
	})

	t.Run("unmapped role has zero permissions", func(t *testing.T) {
		u := &User{ID: "u1", Role: RoleName("nonexistent")}
		assert.False(t, Can(u, ResourceDashboard, ActionRead))
	})

	t.Run("explicit permission list takes precedence", func(t *testing.T) {
		u := student()
		u.Permissions = []Permission{{Resource: ResourceAnnouncement, Action: ActionPublish}}
		assert.True(t, Can(u, ResourceAnnouncement, ActionPublish))
		// The override list replaces the role bundle entirely.
		assert.False(t, Can(u, ResourceDashboard, ActionRead))
	})
}

func TestRolePredicates(t *testing.T) {
	t.Run("HasRole exact match", func(t *testing.T) {
		assert.True(t, HasRole(student(), RoleStudent))
		assert.False(t, HasRole(student(), RoleTeacher))
		assert.False(t, HasRole(nil, RoleStudent))
	})

	t.Run("HasAnyRole membership", func(t *testing.T) {
		assert.True(t, HasAnyRole(student(), RoleTeacher, RoleStudent))
		assert.False(t, HasAnyRole(student(), RoleTeacher, RoleOwner))
		assert.False(t, HasAnyRole(nil, RoleStudent))
	})

	t.Run("HasAllRoles single-role semantics", func(t *testing.T) {
		assert.True(t, HasAllRoles(student(), RoleStudent))
		// A single-role user can never satisfy two distinct required roles.
		assert.False(t, HasAllRoles(&User{Role: RoleSecretariat}, RoleOwner, RoleSecretariat))
		assert.True(t, HasAllRoles(student()))
		assert.False(t, HasAllRoles(nil))
	})
}

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		role RoleName
		want bool
	}{
		{RoleOwner, true},
		{RoleSecretariat, true},
		{RoleCompanyAdmin, false},
		{RoleStudent, false},
		{RoleTeacher, false},
		{RoleCommitteeChair, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsAdmin(&User{Role: tc.role}), "role %s", tc.role)
	}
	assert.False(t, IsAdmin(nil))
}

func TestIsCompanyLevel(t *testing.T) {
	assert.True(t, IsCompanyLevel(&User{Role: RoleOwner}))
	assert.True(t, IsCompanyLevel(&User{Role: RoleSecretariat}))
	assert.True(t, IsCompanyLevel(&User{Role: RoleCompanyAdmin}))
	assert.False(t, IsCompanyLevel(&User{Role: RoleStudent}))
	assert.False(t, IsCompanyLevel(nil))
}

func TestCanAccessRegion(t *testing.T) {
	t.Run("ALL sentinel grants every region", func(t *testing.T) {
		u := owner()
		for _, region := range []string{"kanto", "kansai", "tohoku", "does-not-exist"} {
			assert.True(t, CanAccessRegion(u, region))
		}
	})

	t.Run("explicit membership", func(t *testing.T) {
		u := student()
		assert.True(t, CanAccessRegion(u, "kanto"))
		assert.False(t, CanAccessRegion(u, "kansai"))
	})

	t.Run("nil and empty fail closed", func(t *testing.T) {
		assert.False(t, CanAccessRegion(nil, "kanto"))
		assert.False(t, CanAccessRegion(&User{}, "kanto"))
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("OR satisfied by one category", func(t *testing.T) {
		// The role condition satisfies the OR even though adminRequired fails.
		got := Evaluate(student(), Conditions{Roles: []RoleName{RoleStudent}, AdminRequired: true}, OperatorOr)
		assert.True(t, got)
	})

	t.Run("AND requires every supplied category", func(t *testing.T) {
		cond := Conditions{Roles: []RoleName{RoleStudent}, AdminRequired: true}
		assert.False(t, Evaluate(student(), cond, OperatorAnd))
		assert.True(t, Evaluate(student(), Conditions{Roles: []RoleName{RoleStudent}}, OperatorAnd))
	})

	t.Run("empty categories are vacuous under AND", func(t *testing.T) {
		cond := Conditions{Roles: []RoleName{RoleStudent}, Regions: nil, Permissions: nil}
		assert.True(t, Evaluate(student(), cond, OperatorAnd))
	})

	t.Run("empty categories never satisfy an OR", func(t *testing.T) {
		assert.False(t, Evaluate(student(), Conditions{}, OperatorOr))
	})

	t.Run("no categories at all", func(t *testing.T) {
		assert.True(t, Evaluate(student(), Conditions{}, OperatorAnd))
	})

	t.Run("region category passes on any accessible region", func(t *testing.T) {
		cond := Conditions{Regions: []string{"kansai", "kanto"}}
		assert.True(t, Evaluate(student(), cond, OperatorAnd))
		assert.False(t, Evaluate(student(), Conditions{Regions: []string{"kansai"}}, OperatorAnd))
	})

	t.Run("permission category requires every pair", func(t *testing.T) {
		cond := Conditions{Permissions: []Permission{
			{Resource: ResourceDashboard, Action: ActionRead},
			{Resource: ResourceProfile, Action: ActionUpdate},
		}}
		assert.True(t, Evaluate(student(), cond, OperatorAnd))

		cond.Permissions = append(cond.Permissions, Permission{Resource: ResourceUser, Action: ActionDelete})
		assert.False(t, Evaluate(student(), cond, OperatorAnd))
	})

	t.Run("nil user fails every supplied category", func(t *testing.T) {
		cond := Conditions{Roles: []RoleName{RoleStudent}}
		assert.False(t, Evaluate(nil, cond, OperatorAnd))
		assert.False(t, Evaluate(nil, cond, OperatorOr))
	})
}

func TestRoleByName(t *testing.T) {
	for _, r := range BuiltInRoles() {
		got, ok := RoleByName(r.Name)
		assert.True(t, ok, "built-in role %s must resolve", r.Name)
		assert.Equal(t, r.DisplayName, got.DisplayName)
		assert.NotEmpty(t, got.Permissions)
	}

	_, ok := RoleByName("no_such_role")
	assert.False(t, ok)
}

func TestPermissionString(t *testing.T) {
	p := Permission{Resource: ResourceUser, Action: ActionCreate}
	if p.String() != "user:create" {
		t.Errorf("unexpected permission string: %s", p.String())
	}
}
