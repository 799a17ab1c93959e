package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edukit/eduguard/pkg/guard"
	"github.com/edukit/eduguard/pkg/httputil"
	"github.com/edukit/eduguard/pkg/rbac"
)

// getCurrentUser returns the authorization view of the signed-in user
func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := guard.UserFromContext(r.Context())
	if !ok {
		httputil.WriteInternalError(w, errMissingUser)
		return
	}
	httputil.WriteSuccess(w, user)
}

// getProfile returns the profile payload for the signed-in user
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := guard.UserFromContext(r.Context())
	if !ok {
		httputil.WriteInternalError(w, errMissingUser)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"role":      user.Role,
		"region_id": user.RegionID,
	})
}

// getCompanySettings returns settings visible to company-level roles
func (s *Server) getCompanySettings(w http.ResponseWriter, r *http.Request) {
	user, ok := guard.UserFromContext(r.Context())
	if !ok {
		httputil.WriteInternalError(w, errMissingUser)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"company_id": user.CompanyID,
		"managed_by": user.Email,
	})
}

// listRegionAnnouncements serves announcements scoped to the region in
// the path. The region is only known per request, so the guard runs here
// rather than as a fixed route wrapper.
func (s *Server) listRegionAnnouncements(w http.ResponseWriter, r *http.Request) {
	region := mux.Vars(r)["region"]

	res := s.guard.AuthorizeRequest(r, guard.Options{
		Resource: rbac.ResourceAnnouncement,
		Action:   rbac.ActionRead,
		Regions:  []string{region},
	})
	if !res.Success {
		httputil.WriteErrorMessage(w, res.Status, res.Error)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"region":        region,
		"announcements": []interface{}{},
	})
}
