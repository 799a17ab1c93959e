package api

import (
	"net/http"
	"time"

	"github.com/edukit/eduguard/pkg/audit"
	"github.com/edukit/eduguard/pkg/httputil"
)

// searchSecurityEvents queries the security trail. Filters come from
// query parameters: user_id, event_type (repeatable), path, ip,
// start/end (RFC 3339), limit, offset.
func (s *Server) searchSecurityEvents(w http.ResponseWriter, r *http.Request) {
	if s.trail == nil {
		httputil.WriteNotFound(w, "security trail is not configured")
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 100)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid limit")
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid offset")
		return
	}

	filter := audit.SearchFilter{
		UserID:    httputil.ParseQueryString(r, "user_id", ""),
		IPAddress: httputil.ParseQueryString(r, "ip", ""),
		Path:      httputil.ParseQueryString(r, "path", ""),
		Limit:     limit,
		Offset:    offset,
	}
	for _, raw := range r.URL.Query()["event_type"] {
		filter.EventTypes = append(filter.EventTypes, audit.EventType(raw))
	}
	if raw := httputil.ParseQueryString(r, "start", ""); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid start time, want RFC 3339")
			return
		}
		filter.StartTime = &start
	}
	if raw := httputil.ParseQueryString(r, "end", ""); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid end time, want RFC 3339")
			return
		}
		filter.EndTime = &end
	}

	events, err := s.trail.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// securityEventStats returns per-type counts over a window, defaulting
// to the last 24 hours
func (s *Server) securityEventStats(w http.ResponseWriter, r *http.Request) {
	if s.trail == nil {
		httputil.WriteNotFound(w, "security trail is not configured")
		return
	}

	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	if raw := httputil.ParseQueryString(r, "start", ""); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid start time, want RFC 3339")
			return
		}
		start = parsed
	}

	counts, err := s.trail.CountByType(r.Context(), start, end)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"start":  start,
		"end":    end,
		"counts": counts,
	})
}
