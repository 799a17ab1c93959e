package rbac

import (
	"time"
)

// Resource represents a resource type in the portal
type Resource string

const (
	ResourceUser         Resource = "user"
	ResourceProfile      Resource = "profile"
	ResourceAnnouncement Resource = "announcement"
	ResourceDocument     Resource = "document"
	ResourceDashboard    Resource = "dashboard"
	ResourceCompany      Resource = "company"
	ResourceRegion       Resource = "region"
	ResourceSettings     Resource = "settings"
	ResourceRole         Resource = "role"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate   Action = "create"
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionPublish  Action = "publish"
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
	ActionApprove  Action = "approve"
	ActionManage   Action = "manage"
)

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// RoleName identifies a portal role. Roles are a closed enumeration so the
// admin and company-level sets are checked against known values rather than
// free-form strings.
type RoleName string

const (
	RoleOwner           RoleName = "owner"
	RoleSecretariat     RoleName = "secretariat"
	RoleCompanyAdmin    RoleName = "company_admin"
	RoleTeacher         RoleName = "teacher"
	RoleStudent         RoleName = "student"
	RoleCommitteeChair  RoleName = "committee_chair"
	RoleCommitteeMember RoleName = "committee_member"
)

// RegionAll is the sentinel region code granting access to every region.
const RegionAll = "ALL"

// Role represents a named permission bundle
type Role struct {
	ID          int64        `json:"id,omitempty"`
	Name        RoleName     `json:"name"`
	DisplayName string       `json:"display_name"`
	Level       int          `json:"level"`
	CompanyID   *int64       `json:"company_id,omitempty"` // nil for built-in roles
	Permissions []Permission `json:"permissions"`
	IsBuiltIn   bool         `json:"is_built_in"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// HasPermission checks whether the role's bundle contains the permission
func (r Role) HasPermission(p Permission) bool {
	for _, held := range r.Permissions {
		if held.Resource == p.Resource && held.Action == p.Action {
			return true
		}
	}
	return false
}

// User is the authorization view of an authenticated portal user. It is
// created when a verified token is mapped to claims, is immutable for the
// request's lifetime, and is replaced wholesale on re-authentication.
type User struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	Role              RoleName `json:"role"`
	RegionID          string   `json:"region_id,omitempty"`
	AccessibleRegions []string `json:"accessible_regions,omitempty"`
	SessionID         string   `json:"session_id,omitempty"`
	TOTPVerified      bool     `json:"totp_verified"`
	CompanyID         *int64   `json:"company_id,omitempty"`

	// Permissions, when non-empty, is an explicit per-user permission list
	// that takes precedence over the role's built-in bundle.
	Permissions []Permission `json:"permissions,omitempty"`
}

// adminRoles is the fixed elevated set; companyLevelRoles extends it with
// company administrators.
var adminRoles = map[RoleName]bool{
	RoleOwner:       true,
	RoleSecretariat: true,
}

var companyLevelRoles = map[RoleName]bool{
	RoleOwner:        true,
	RoleSecretariat:  true,
	RoleCompanyAdmin: true,
}

// BuiltInRoles returns the static portal role definitions
func BuiltInRoles() []Role {
	return []Role{
		{
			Name:        RoleOwner,
			DisplayName: "Owner",
			Level:       100,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceUser, Action: ActionCreate},
				{Resource: ResourceUser, Action: ActionRead},
				{Resource: ResourceUser, Action: ActionUpdate},
				{Resource: ResourceUser, Action: ActionDelete},
				{Resource: ResourceRole, Action: ActionManage},
				{Resource: ResourceAnnouncement, Action: ActionCreate},
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceAnnouncement, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionDelete},
				{Resource: ResourceAnnouncement, Action: ActionPublish},
				{Resource: ResourceDocument, Action: ActionUpload},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDocument, Action: ActionDelete},
				{Resource: ResourceDashboard, Action: ActionRead},
				{Resource: ResourceDashboard, Action: ActionManage},
				{Resource: ResourceCompany, Action: ActionCreate},
				{Resource: ResourceCompany, Action: ActionRead},
				{Resource: ResourceCompany, Action: ActionUpdate},
				{Resource: ResourceCompany, Action: ActionDelete},
				{Resource: ResourceRegion, Action: ActionManage},
				{Resource: ResourceSettings, Action: ActionRead},
				{Resource: ResourceSettings, Action: ActionUpdate},
			},
		},
		{
			Name:        RoleSecretariat,
			DisplayName: "Secretariat",
			Level:       90,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceUser, Action: ActionCreate},
				{Resource: ResourceUser, Action: ActionRead},
				{Resource: ResourceUser, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionCreate},
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceAnnouncement, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionPublish},
				{Resource: ResourceDocument, Action: ActionUpload},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDashboard, Action: ActionRead},
				{Resource: ResourceDashboard, Action: ActionManage},
				{Resource: ResourceCompany, Action: ActionRead},
				{Resource: ResourceCompany, Action: ActionUpdate},
				{Resource: ResourceSettings, Action: ActionRead},
			},
		},
		{
			Name:        RoleCompanyAdmin,
			DisplayName: "Company Administrator",
			Level:       50,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceUser, Action: ActionRead},
				{Resource: ResourceUser, Action: ActionUpdate},
				{Resource: ResourceProfile, Action: ActionRead},
				{Resource: ResourceProfile, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceDocument, Action: ActionUpload},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDashboard, Action: ActionRead},
				{Resource: ResourceCompany, Action: ActionRead},
				{Resource: ResourceCompany, Action: ActionUpdate},
			},
		},
		{
			Name:        RoleCommitteeChair,
			DisplayName: "Committee Chair",
			Level:       40,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceAnnouncement, Action: ActionCreate},
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceAnnouncement, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionApprove},
				{Resource: ResourceDocument, Action: ActionUpload},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDashboard, Action: ActionRead},
			},
		},
		{
			Name:        RoleCommitteeMember,
			DisplayName: "Committee Member",
			Level:       30,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceDocument, Action: ActionUpload},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDashboard, Action: ActionRead},
			},
		},
		{
			Name:        RoleTeacher,
			DisplayName: "Teacher",
			Level:       20,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceProfile, Action: ActionRead},
				{Resource: ResourceProfile, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceDocument, Action: ActionUpload},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDashboard, Action: ActionRead},
			},
		},
		{
			Name:        RoleStudent,
			DisplayName: "Student",
			Level:       10,
			IsBuiltIn:   true,
			Permissions: []Permission{
				{Resource: ResourceProfile, Action: ActionRead},
				{Resource: ResourceProfile, Action: ActionUpdate},
				{Resource: ResourceAnnouncement, Action: ActionRead},
				{Resource: ResourceDocument, Action: ActionDownload},
				{Resource: ResourceDashboard, Action: ActionRead},
			},
		},
	}
}

// builtInByName is the lookup index over BuiltInRoles
var builtInByName = func() map[RoleName]Role {
	m := make(map[RoleName]Role)
	for _, r := range BuiltInRoles() {
		m[r.Name] = r
	}
	return m
}()

// RoleByName returns the built-in role definition for a name. The second
// return is false for unknown names; callers treat that as an empty
// permission bundle.
func RoleByName(name RoleName) (Role, bool) {
	r, ok := builtInByName[name]
	return r, ok
}
