package view

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/edukit/eduguard/pkg/rbac"
)

// DebugInfo is the diagnostic panel shown during development
type DebugInfo struct {
	UserID            string          `json:"user_id"`
	Email             string          `json:"email"`
	Role              rbac.RoleName   `json:"role"`
	RegionID          string          `json:"region_id,omitempty"`
	AccessibleRegions []string        `json:"accessible_regions,omitempty"`
	IsAdmin           bool            `json:"is_admin"`
	IsCompanyLevel    bool            `json:"is_company_level"`
	PermissionCount   int             `json:"permission_count"`
}

// RBACDebugInfo returns the diagnostic view of the session. It is nil in
// production and nil for guests, so callers can render it
// unconditionally.
func (s *Session) RBACDebugInfo() *DebugInfo {
	if s.Environment == "production" || s.User == nil {
		return nil
	}
	count := len(s.User.Permissions)
	if count == 0 {
		if role, ok := rbac.RoleByName(s.User.Role); ok {
			count = len(role.Permissions)
		}
	}
	return &DebugInfo{
		UserID:            s.User.ID,
		Email:             s.User.Email,
		Role:              s.User.Role,
		RegionID:          s.User.RegionID,
		AccessibleRegions: s.User.AccessibleRegions,
		IsAdmin:           s.IsAdmin(),
		IsCompanyLevel:    s.IsCompanyLevel(),
		PermissionCount:   count,
	}
}

// RenderDebugPanel renders the diagnostic panel as markup, or nothing
// when RBACDebugInfo returns nil
func (s *Session) RenderDebugPanel() template.HTML {
	info := s.RBACDebugInfo()
	if info == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<aside class="rbac-debug"><dl>`)
	writeRow(&b, "User", fmt.Sprintf("%s (%s)", info.Email, info.UserID))
	writeRow(&b, "Role", string(info.Role))
	writeRow(&b, "Admin", fmt.Sprintf("%t", info.IsAdmin))
	writeRow(&b, "Company-level", fmt.Sprintf("%t", info.IsCompanyLevel))
	if info.RegionID != "" {
		writeRow(&b, "Region", info.RegionID)
	}
	if len(info.AccessibleRegions) > 0 {
		writeRow(&b, "Accessible regions", strings.Join(info.AccessibleRegions, ", "))
	}
	writeRow(&b, "Permissions", fmt.Sprintf("%d", info.PermissionCount))
	b.WriteString(`</dl></aside>`)
	return template.HTML(b.String())
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString("<dt>")
	b.WriteString(template.HTMLEscapeString(label))
	b.WriteString("</dt><dd>")
	b.WriteString(template.HTMLEscapeString(value))
	b.WriteString("</dd>")
}
