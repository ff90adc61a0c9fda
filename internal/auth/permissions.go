package auth

import "encoding/json"

// Permission names the capability flags a role may carry. Keeping them
// typed means an unknown permission is a compile error, not a silent false
// at runtime.
type Permission string

const (
	// User management
	PermManageUsers     Permission = "manage_users"
	PermInviteUsers     Permission = "invite_users"
	PermDeactivateUsers Permission = "deactivate_users"
	PermAssignRoles     Permission = "assign_roles"

	// Role management
	PermCreateRoles Permission = "create_roles"
	PermEditRoles   Permission = "edit_roles"
	PermDeleteRoles Permission = "delete_roles"
	PermViewRoles   Permission = "view_roles"

	// Organization management
	PermManageOrganization Permission = "manage_organization"
	PermManageBilling      Permission = "manage_billing"

	// Projects
	PermCreateProjects Permission = "create_projects"
	PermEditProjects   Permission = "edit_projects"
	PermDeleteProjects Permission = "delete_projects"
	PermViewProjects   Permission = "view_projects"

	// Jurisdictions
	PermCreateJurisdictions Permission = "create_jurisdictions"
	PermEditJurisdictions   Permission = "edit_jurisdictions"
	PermDeleteJurisdictions Permission = "delete_jurisdictions"
	PermViewJurisdictions   Permission = "view_jurisdictions"

	// Sources and scraping
	PermCreateSources   Permission = "create_sources"
	PermEditSources     Permission = "edit_sources"
	PermDeleteSources   Permission = "delete_sources"
	PermViewSources     Permission = "view_sources"
	PermTriggerScraping Permission = "trigger_scraping"

	// Tickets
	PermCreateTickets Permission = "create_tickets"
	PermEditTickets   Permission = "edit_tickets"
	PermDeleteTickets Permission = "delete_tickets"
	PermViewTickets   Permission = "view_tickets"
	PermAssignTickets Permission = "assign_tickets"
	PermCloseTickets  Permission = "close_tickets"

	// External participants
	PermInviteParticipants Permission = "invite_participants"
	PermRevokeParticipant  Permission = "revoke_participant_access"

	// Data
	PermViewRevisions Permission = "view_revisions"
	PermExportData    Permission = "export_data"

	// API access
	PermManageAPIKeys Permission = "manage_api_keys"

	// Audit
	PermViewAuditLogs Permission = "view_audit_logs"
)

// PermissionSet is a role's flag map. Absent keys read as false.
type PermissionSet map[Permission]bool

func (s PermissionSet) Has(p Permission) bool {
	return s[p]
}

// HasAny reports whether at least one of perms is granted.
func (s PermissionSet) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s[p] {
			return true
		}
	}
	return false
}

// ParsePermissions decodes a role's JSONB permissions column. Unknown keys
// are kept; they simply never match a typed constant.
func ParsePermissions(raw []byte) (PermissionSet, error) {
	if len(raw) == 0 {
		return PermissionSet{}, nil
	}
	var m map[string]bool
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	set := make(PermissionSet, len(m))
	for k, v := range m {
		set[Permission(k)] = v
	}
	return set, nil
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, len(s))
	for k, v := range s {
		m[string(k)] = v
	}
	return json.Marshal(m)
}

func allPermissions() []Permission {
	return []Permission{
		PermManageUsers, PermInviteUsers, PermDeactivateUsers, PermAssignRoles,
		PermCreateRoles, PermEditRoles, PermDeleteRoles, PermViewRoles,
		PermManageOrganization, PermManageBilling,
		PermCreateProjects, PermEditProjects, PermDeleteProjects, PermViewProjects,
		PermCreateJurisdictions, PermEditJurisdictions, PermDeleteJurisdictions, PermViewJurisdictions,
		PermCreateSources, PermEditSources, PermDeleteSources, PermViewSources, PermTriggerScraping,
		PermCreateTickets, PermEditTickets, PermDeleteTickets, PermViewTickets, PermAssignTickets, PermCloseTickets,
		PermInviteParticipants, PermRevokeParticipant,
		PermViewRevisions, PermExportData,
		PermManageAPIKeys,
		PermViewAuditLogs,
	}
}

func grant(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

// AdminPermissions grants everything. Used when seeding the owner role of a
// new organization.
func AdminPermissions() PermissionSet {
	return grant(allPermissions()...)
}

// ManagerPermissions can run projects and tickets but not organization
// settings, billing, or API keys.
func ManagerPermissions() PermissionSet {
	return grant(
		PermInviteUsers, PermViewRoles,
		PermCreateProjects, PermEditProjects, PermViewProjects,
		PermCreateJurisdictions, PermEditJurisdictions, PermViewJurisdictions,
		PermCreateSources, PermEditSources, PermViewSources, PermTriggerScraping,
		PermCreateTickets, PermEditTickets, PermViewTickets, PermAssignTickets, PermCloseTickets,
		PermInviteParticipants,
		PermViewRevisions, PermExportData,
	)
}

// EditorPermissions can create and edit content with no deletion rights.
func EditorPermissions() PermissionSet {
	return grant(
		PermViewRoles, PermViewProjects,
		PermCreateJurisdictions, PermEditJurisdictions, PermViewJurisdictions,
		PermCreateSources, PermEditSources, PermViewSources,
		PermCreateTickets, PermEditTickets, PermViewTickets,
		PermInviteParticipants,
		PermViewRevisions,
	)
}

// ViewerPermissions is read-only.
func ViewerPermissions() PermissionSet {
	return grant(
		PermViewRoles, PermViewProjects, PermViewJurisdictions,
		PermViewSources, PermViewTickets, PermViewRevisions,
	)
}

// RoleTemplates maps the built-in role names to their permission sets.
func RoleTemplates() map[string]PermissionSet {
	return map[string]PermissionSet{
		"admin":   AdminPermissions(),
		"manager": ManagerPermissions(),
		"editor":  EditorPermissions(),
		"viewer":  ViewerPermissions(),
	}
}
