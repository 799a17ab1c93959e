package view

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/eduguard/pkg/rbac"
)

func ownerUser() *rbac.User {
	return &rbac.User{
		ID: "1", Email: "owner@example.com", Role: rbac.RoleOwner,
		AccessibleRegions: []string{rbac.RegionAll},
	}
}

func studentUser() *rbac.User {
	return &rbac.User{
		ID: "2", Email: "student@example.com", Role: rbac.RoleStudent,
		RegionID: "NA", AccessibleRegions: []string{"NA"},
	}
}

func TestSessionPredicates(t *testing.T) {
	owner := NewSession(ownerUser(), false)
	student := NewSession(studentUser(), false)
	guest := NewSession(nil, false)

	assert.True(t, owner.IsAdmin())
	assert.False(t, student.IsAdmin())
	assert.True(t, owner.IsCompanyLevel())
	assert.False(t, student.IsCompanyLevel())

	assert.True(t, owner.Can(rbac.ResourceUser, rbac.ActionDelete))
	assert.False(t, student.Can(rbac.ResourceUser, rbac.ActionDelete))
	assert.True(t, student.Can(rbac.ResourceProfile, rbac.ActionRead))

	assert.True(t, owner.CanAccessRegion("APAC"))
	assert.True(t, student.CanAccessRegion("NA"))
	assert.False(t, student.CanAccessRegion("EU"))

	assert.True(t, student.HasAnyRole(rbac.RoleStudent, rbac.RoleTeacher))
	assert.False(t, student.HasAnyRole(rbac.RoleOwner, rbac.RoleSecretariat))

	assert.True(t, owner.IsAuthenticated())
	assert.False(t, guest.IsAuthenticated())

	// Nil user fails every permission predicate.
	assert.False(t, guest.Can(rbac.ResourceProfile, rbac.ActionRead))
	assert.False(t, guest.IsAdmin())
	assert.False(t, guest.CanAccessRegion("NA"))
}

func TestSessionContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		session := NewSession(ownerUser(), false)
		ctx := WithSession(context.Background(), session)

		got, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, session, got)
		assert.Same(t, session, MustFromContext(ctx))
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := FromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("must panics when absent", func(t *testing.T) {
		assert.Panics(t, func() {
			MustFromContext(context.Background())
		})
	})
}

func TestFuncMap(t *testing.T) {
	session := NewSession(ownerUser(), false)

	tmpl := template.Must(template.New("page").Funcs(FuncMap(session)).Parse(
		`{{if isAdmin}}admin{{end}}|{{if can "user" "delete"}}del{{end}}|{{if isGuest}}guest{{end}}|{{if hasRole "owner"}}owner{{end}}`))

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, nil))
	assert.Equal(t, "admin|del||owner", buf.String())
}

func TestFuncMapGuest(t *testing.T) {
	session := NewSession(nil, false)

	tmpl := template.Must(template.New("page").Funcs(FuncMap(session)).Parse(
		`{{if isAuthenticated}}in{{end}}{{if isGuest}}out{{end}}`))

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, nil))
	assert.Equal(t, "out", buf.String())
}
