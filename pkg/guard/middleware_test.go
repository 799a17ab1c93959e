package guard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/eduguard/pkg/rbac"
)

func TestWithAdminAuth(t *testing.T) {
	g, _ := newTestGuard(t)

	var seen *rbac.User
	handler := g.WithAdminAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = user
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("admin passes through with user on context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithToken("owner-token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "1", seen.ID)
		assert.Equal(t, rbac.RoleOwner, seen.Role)
	})

	t.Run("non-admin gets 403 json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithToken("student-token"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Admin privileges required", body["error"])
	})

	t.Run("missing token gets 401 json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithToken(""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "No authentication token provided", body["error"])
	})
}

func TestWithRoleAuth(t *testing.T) {
	g, _ := newTestGuard(t)
	handler := g.WithRoleAuth(rbac.RoleTeacher, rbac.RoleCompanyAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("teacher-token"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("student-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithResourceAuth(t *testing.T) {
	g, _ := newTestGuard(t)
	handler := g.WithResourceAuth(rbac.ResourceUser, rbac.ActionDelete)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("owner-token"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("company-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithCompanyAuth(t *testing.T) {
	g, _ := newTestGuard(t)
	handler := g.WithCompanyAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("company-token"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("student-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithRegionAuth(t *testing.T) {
	g, _ := newTestGuard(t)
	handler := g.WithRegionAuth("EU")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("teacher-token"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken("student-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserFromContextAbsent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	user, ok := UserFromContext(r.Context())
	assert.False(t, ok)
	assert.Nil(t, user)
}
