package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/guard"
	"github.com/edukit/eduguard/pkg/httputil"
	"github.com/edukit/eduguard/pkg/rbac"
)

var errMissingUser = errors.New("authorized request carries no user")

type roleRequest struct {
	Name        rbac.RoleName     `json:"name"`
	DisplayName string            `json:"display_name"`
	Level       int               `json:"level"`
	CompanyID   *int64            `json:"company_id,omitempty"`
	Permissions []rbac.Permission `json:"permissions"`
}

// listRoles returns the custom roles visible to the caller's company.
// Built-in roles are static and listed separately by the client.
func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	user, _ := guard.UserFromContext(r.Context())

	var companyID *int64
	if user != nil {
		companyID = user.CompanyID
	}
	roles, err := s.store.ListRoles(r.Context(), companyID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "role name is required")
		return
	}
	if _, builtIn := rbac.RoleByName(req.Name); builtIn {
		httputil.WriteBadRequest(w, fmt.Sprintf("role %s is built in and cannot be redefined", req.Name))
		return
	}

	role := &rbac.Role{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Level:       req.Level,
		CompanyID:   req.CompanyID,
		Permissions: req.Permissions,
	}
	if err := s.store.CreateRole(r.Context(), role); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.recordChange(r, audit.EventTypeRoleChanged, fmt.Sprintf("role %s created", role.Name))
	httputil.WriteCreated(w, role)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role := &rbac.Role{
		ID:          id,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Level:       req.Level,
		Permissions: req.Permissions,
	}
	if err := s.store.UpdateRole(r.Context(), role); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.recordChange(r, audit.EventTypeRoleChanged, fmt.Sprintf("role %s updated", role.Name))
	httputil.WriteSuccess(w, role)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteRole(r.Context(), id); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.recordChange(r, audit.EventTypeRoleChanged, fmt.Sprintf("role %d deleted", id))
	httputil.WriteNoContent(w)
}

// recordChange logs an administrative mutation to the security trail.
// Best effort: a sink failure never fails the mutation.
func (s *Server) recordChange(r *http.Request, eventType audit.EventType, reason string) {
	event := audit.NewEvent(eventType, r)
	event.Reason = reason
	if user, ok := guard.UserFromContext(r.Context()); ok {
		event.UserID = user.ID
		event.Email = user.Email
		event.Role = string(user.Role)
	}
	if err := s.events.LogSecurityEvent(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("security trail write failed")
	}
}
