package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/eduguard/pkg/rbac"
)

func TestRBACDebugInfo(t *testing.T) {
	t.Run("nil in production", func(t *testing.T) {
		s := NewSession(ownerUser(), false)
		assert.Nil(t, s.RBACDebugInfo())
	})

	t.Run("nil for guests", func(t *testing.T) {
		s := NewSession(nil, false, WithEnvironment("development"))
		assert.Nil(t, s.RBACDebugInfo())
	})

	t.Run("populated in development", func(t *testing.T) {
		s := NewSession(ownerUser(), false, WithEnvironment("development"))
		info := s.RBACDebugInfo()

		require.NotNil(t, info)
		assert.Equal(t, "1", info.UserID)
		assert.Equal(t, rbac.RoleOwner, info.Role)
		assert.True(t, info.IsAdmin)
		assert.True(t, info.IsCompanyLevel)
		assert.Positive(t, info.PermissionCount)
	})

	t.Run("explicit permission list wins over role bundle", func(t *testing.T) {
		user := studentUser()
		user.Permissions = []rbac.Permission{{Resource: rbac.ResourceDashboard, Action: rbac.ActionRead}}
		s := NewSession(user, false, WithEnvironment("development"))

		info := s.RBACDebugInfo()
		require.NotNil(t, info)
		assert.Equal(t, 1, info.PermissionCount)
	})
}

func TestRenderDebugPanel(t *testing.T) {
	t.Run("empty in production", func(t *testing.T) {
		s := NewSession(ownerUser(), false)
		assert.Empty(t, s.RenderDebugPanel())
	})

	t.Run("markup in development", func(t *testing.T) {
		s := NewSession(ownerUser(), false, WithEnvironment("development"))
		html := string(s.RenderDebugPanel())

		assert.Contains(t, html, "rbac-debug")
		assert.Contains(t, html, "owner@example.com")
		assert.Contains(t, html, "owner")
	})
}
