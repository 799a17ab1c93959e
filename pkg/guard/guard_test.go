package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/auth"
	"github.com/edukit/eduguard/pkg/observability"
	"github.com/edukit/eduguard/pkg/rbac"
)

type stubVerifier struct {
	claims map[string]*auth.Claims
}

func (v *stubVerifier) VerifyToken(_ context.Context, token, tokenType string) (*auth.Claims, error) {
	claims, ok := v.claims[token]
	if !ok || tokenType != auth.TokenTypeAccess {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []*audit.SecurityEvent
}

func (s *recordingSink) LogSecurityEvent(_ context.Context, event *audit.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) snapshot() []*audit.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audit.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestGuard(t *testing.T) (*Guard, *recordingSink) {
	t.Helper()
	verifier := &stubVerifier{claims: map[string]*auth.Claims{
		"owner-token": {
			UserID: "1", Email: "owner@example.com", Role: "owner",
			AccessibleRegions: []string{rbac.RegionAll},
			TokenType:         auth.TokenTypeAccess,
		},
		"student-token": {
			UserID: "2", Email: "student@example.com", Role: "student",
			RegionID: "NA", AccessibleRegions: []string{"NA"},
			TokenType: auth.TokenTypeAccess,
		},
		"teacher-token": {
			UserID: "3", Email: "teacher@example.com", Role: "teacher",
			AccessibleRegions: []string{"EU"},
			TokenType:         auth.TokenTypeAccess,
		},
		"company-token": {
			UserID: "4", Email: "ca@example.com", Role: "company_admin",
			TokenType: auth.TokenTypeAccess,
		},
	}}
	sink := &recordingSink{}
	guard := New(Config{
		Authenticator: auth.NewAuthenticator(verifier, nil),
		Events:        sink,
	})
	return guard, sink
}

func requestWithToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func waitForEvents(t *testing.T, sink *recordingSink, n int) []*audit.SecurityEvent {
	t.Helper()
	require.Eventually(t, func() bool { return sink.count() >= n },
		2*time.Second, 10*time.Millisecond)
	return sink.snapshot()
}

func TestAuthorizeRequestAdminOnly(t *testing.T) {
	t.Run("admin granted", func(t *testing.T) {
		g, sink := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("owner-token"), Options{AdminOnly: true})

		require.True(t, res.Success)
		require.NotNil(t, res.User)
		assert.Equal(t, "1", res.User.ID)

		events := waitForEvents(t, sink, 1)
		require.Len(t, events, 1)
		assert.Equal(t, audit.EventTypeAPIAccessGranted, events[0].EventType)
		assert.Equal(t, http.MethodGet, events[0].Method)
		assert.Equal(t, "/api/admin/users", events[0].Path)
	})

	t.Run("non-admin denied with one event", func(t *testing.T) {
		g, sink := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("student-token"), Options{AdminOnly: true})

		require.False(t, res.Success)
		assert.Equal(t, http.StatusForbidden, res.Status)
		assert.Equal(t, "Admin privileges required", res.Error)

		events := waitForEvents(t, sink, 1)
		require.Len(t, events, 1)
		assert.Equal(t, audit.EventTypePermissionDenied, events[0].EventType)
		assert.Equal(t, "Admin access required", events[0].Reason)
		assert.Equal(t, "2", events[0].UserID)
		assert.Equal(t, "student", events[0].Role)
	})
}

func TestAuthorizeRequestRoles(t *testing.T) {
	t.Run("any-of grants on match", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("teacher-token"),
			Options{Roles: []rbac.RoleName{rbac.RoleTeacher, rbac.RoleStudent}})
		assert.True(t, res.Success)
	})

	t.Run("any-of denies with roles enumerated", func(t *testing.T) {
		g, sink := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("student-token"),
			Options{Roles: []rbac.RoleName{rbac.RoleOwner, rbac.RoleSecretariat}})

		require.False(t, res.Success)
		assert.Equal(t, http.StatusForbidden, res.Status)
		assert.Equal(t, "Insufficient role permissions. Required roles: owner, secretariat", res.Error)

		events := waitForEvents(t, sink, 1)
		assert.Equal(t, audit.EventTypePermissionDenied, events[0].EventType)
	})

	t.Run("require-all with two distinct roles always denies", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("owner-token"),
			Options{Roles: []rbac.RoleName{rbac.RoleOwner, rbac.RoleSecretariat}, RequireAll: true})
		assert.False(t, res.Success)
	})

	t.Run("require-all with single matching role grants", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("owner-token"),
			Options{Roles: []rbac.RoleName{rbac.RoleOwner}, RequireAll: true})
		assert.True(t, res.Success)
	})
}

func TestAuthorizeRequestResourceAction(t *testing.T) {
	t.Run("permitted", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("owner-token"),
			Options{Resource: rbac.ResourceUser, Action: rbac.ActionDelete})
		assert.True(t, res.Success)
	})

	t.Run("denied with resource on the event", func(t *testing.T) {
		g, sink := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("student-token"),
			Options{Resource: rbac.ResourceUser, Action: rbac.ActionDelete})

		require.False(t, res.Success)
		assert.Equal(t, "Insufficient permissions", res.Error)

		events := waitForEvents(t, sink, 1)
		assert.Equal(t, string(rbac.ResourceUser), events[0].Resource)
		assert.Equal(t, string(rbac.ActionDelete), events[0].Action)
	})
}

func TestAuthorizeRequestCompanyLevel(t *testing.T) {
	g, _ := newTestGuard(t)

	res := g.AuthorizeRequest(requestWithToken("company-token"), Options{CompanyLevel: true})
	assert.True(t, res.Success)

	res = g.AuthorizeRequest(requestWithToken("teacher-token"), Options{CompanyLevel: true})
	require.False(t, res.Success)
	assert.Equal(t, "Company-level access required", res.Error)
}

func TestAuthorizeRequestRegions(t *testing.T) {
	t.Run("any listed region grants", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("teacher-token"),
			Options{Regions: []string{"NA", "EU"}})
		assert.True(t, res.Success)
	})

	t.Run("global access grants any region", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("owner-token"),
			Options{Regions: []string{"APAC"}})
		assert.True(t, res.Success)
	})

	t.Run("no matching region denies", func(t *testing.T) {
		g, sink := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("student-token"),
			Options{Regions: []string{"EU", "APAC"}})

		require.False(t, res.Success)
		assert.Equal(t, "Region access denied", res.Error)

		events := waitForEvents(t, sink, 1)
		assert.Equal(t, "No access to regions: EU, APAC", events[0].Reason)
	})
}

func TestAuthorizeRequestAuthenticationFailures(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		g, _ := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken(""), Options{AdminOnly: true})

		require.False(t, res.Success)
		assert.Equal(t, http.StatusUnauthorized, res.Status)
		assert.Equal(t, auth.MsgNoToken, res.Error)
	})

	t.Run("invalid token emits token_invalid", func(t *testing.T) {
		g, sink := newTestGuard(t)
		res := g.AuthorizeRequest(requestWithToken("garbage"), Options{})

		require.False(t, res.Success)
		assert.Equal(t, http.StatusUnauthorized, res.Status)
		assert.Equal(t, auth.MsgInvalidToken, res.Error)

		events := waitForEvents(t, sink, 1)
		assert.Equal(t, audit.EventTypeTokenInvalid, events[0].EventType)
	})
}

func TestAuthorizeRequestShortCircuit(t *testing.T) {
	// AdminOnly fails first, so the role check never runs and only the
	// admin denial event is emitted.
	g, sink := newTestGuard(t)
	res := g.AuthorizeRequest(requestWithToken("student-token"), Options{
		AdminOnly: true,
		Roles:     []rbac.RoleName{rbac.RoleStudent},
	})

	require.False(t, res.Success)
	assert.Equal(t, "Admin privileges required", res.Error)

	events := waitForEvents(t, sink, 1)
	require.Len(t, events, 1)
	assert.Equal(t, "Admin access required", events[0].Reason)
}

func TestAuthorizeRequestEmptyOptions(t *testing.T) {
	// No option categories means authentication alone decides.
	g, sink := newTestGuard(t)
	res := g.AuthorizeRequest(requestWithToken("student-token"), Options{})

	require.True(t, res.Success)
	events := waitForEvents(t, sink, 1)
	assert.Equal(t, audit.EventTypeAPIAccessGranted, events[0].EventType)
}

func TestAuthorizeRequestGrantEventCarriesMethod(t *testing.T) {
	g, sink := newTestGuard(t)

	r := httptest.NewRequest(http.MethodPost, "/api/admin/users", nil)
	r.Header.Set("Authorization", "Bearer owner-token")

	res := g.AuthorizeRequest(r, Options{
		AdminOnly: true,
		Resource:  rbac.ResourceUser,
		Action:    rbac.ActionCreate,
	})
	require.True(t, res.Success)
	assert.Equal(t, rbac.RoleOwner, res.User.Role)

	events := waitForEvents(t, sink, 1)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeAPIAccessGranted, events[0].EventType)
	assert.Equal(t, http.MethodPost, events[0].Method)
	assert.Equal(t, "/api/admin/users", events[0].Path)
}

func TestAuthenticateRequestOnly(t *testing.T) {
	g, sink := newTestGuard(t)
	res := g.AuthenticateRequest(requestWithToken("student-token"))

	require.True(t, res.Success)
	assert.Equal(t, "2", res.User.ID)

	// Authentication alone emits no access event.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sink.count())
}

type failingSink struct{}

func (failingSink) LogSecurityEvent(context.Context, *audit.SecurityEvent) error {
	return errors.New("sink unavailable")
}

func (failingSink) Close() error { return nil }

func TestAuthorizeRequestMetrics(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	verifier := &stubVerifier{claims: map[string]*auth.Claims{
		"student-token": {
			UserID: "2", Email: "student@example.com", Role: "student",
			TokenType: auth.TokenTypeAccess,
		},
	}}
	g := New(Config{
		Authenticator: auth.NewAuthenticator(verifier, nil),
		Events:        failingSink{},
		Metrics:       m,
	})

	res := g.AuthorizeRequest(requestWithToken("student-token"), Options{AdminOnly: true})
	require.False(t, res.Success)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("denied", "Admin access required")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.SecurityEventsTotal.WithLabelValues(string(audit.EventTypePermissionDenied))))

	// The denial event could not be written; the failure lands on the
	// sink error counter instead of the request path.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.SecurityEventSinkErrors.WithLabelValues("guard")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
