package api

import (
	"fmt"
	"net/http"

	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/httputil"
	"github.com/edukit/eduguard/pkg/rbac"
)

type permissionRequest struct {
	Resource rbac.Resource `json:"resource"`
	Action   rbac.Action   `json:"action"`
}

func (s *Server) listUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	perms, err := s.store.GetUserPermissions(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, perms)
}

func (s *Server) grantUserPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req permissionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Resource == "" || req.Action == "" {
		httputil.WriteBadRequest(w, "resource and action are required")
		return
	}

	perm := rbac.Permission{Resource: req.Resource, Action: req.Action}
	if err := s.store.GrantUserPermission(r.Context(), userID, perm); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	s.invalidateUser(r, userID)

	s.recordChange(r, audit.EventTypePermissionGranted,
		fmt.Sprintf("granted %s:%s to user %s", req.Resource, req.Action, userID))
	httputil.WriteCreated(w, perm)
}

func (s *Server) revokeUserPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req permissionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	perm := rbac.Permission{Resource: req.Resource, Action: req.Action}
	if err := s.store.RevokeUserPermission(r.Context(), userID, perm); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	s.invalidateUser(r, userID)

	s.recordChange(r, audit.EventTypePermissionRevoked,
		fmt.Sprintf("revoked %s:%s from user %s", req.Resource, req.Action, userID))
	httputil.WriteNoContent(w)
}

// invalidateUser drops cached permissions so the next request sees the
// new override set
func (s *Server) invalidateUser(r *http.Request, userID string) {
	if s.registry != nil {
		s.registry.Invalidate(r.Context(), userID)
	}
}
