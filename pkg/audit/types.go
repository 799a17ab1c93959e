package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/edukit/eduguard/pkg/contextkeys"
)

// EventType represents the category of security event
type EventType string

const (
	// Authorization events
	EventTypePermissionDenied  EventType = "permission_denied"
	EventTypeAPIAccessGranted  EventType = "api_access_granted"

	// Authentication events
	EventTypeAuthFailed        EventType = "auth_failed"
	EventTypeTokenInvalid      EventType = "token_invalid"

	// Role and permission administration events
	EventTypeRoleChanged       EventType = "role_changed"
	EventTypePermissionGranted EventType = "permission_granted"
	EventTypePermissionRevoked EventType = "permission_revoked"
)

// SecurityEvent is a single entry in the security trail
type SecurityEvent struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`

	// Actor
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`

	// What was attempted
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON serializes the event
func (e *SecurityEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON
func FromJSON(data []byte) (*SecurityEvent, error) {
	var event SecurityEvent
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter narrows a security trail query
type SearchFilter struct {
	StartTime  *time.Time
	EndTime    *time.Time
	UserID     string
	EventTypes []EventType
	IPAddress  string
	Path       string

	Limit  int
	Offset int
}

// RetentionPolicy defines how long the database trail is kept
type RetentionPolicy struct {
	// RetentionDays is the age past which events are pruned
	RetentionDays int

	// Schedule is a cron expression for the prune job
	Schedule string

	// ArchivePath, when set, receives pruned events as NDJSON before
	// deletion
	ArchivePath string
}

// DefaultRetentionPolicy keeps 90 days and prunes nightly
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		RetentionDays: 90,
		Schedule:      "0 3 * * *",
	}
}

// NewEvent builds an event stamped with the request context: client IP,
// user agent, request ID, method and path.
func NewEvent(eventType EventType, r *http.Request) *SecurityEvent {
	event := &SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Metadata:  make(map[string]interface{}),
	}

	if r != nil {
		event.IPAddress = clientIP(r)
		event.UserAgent = r.UserAgent()
		event.Method = r.Method
		event.Path = r.URL.Path
		if event.RequestID = contextkeys.GetRequestID(r.Context()); event.RequestID == "" {
			event.RequestID = r.Header.Get("X-Request-ID")
		}
	}

	return event
}

// clientIP extracts the client address, trusting proxy headers first
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
