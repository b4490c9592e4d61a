package permissions

// Permission is a fine-grained capability within an organization.
// Names must match the permission seed data on the backend.
type Permission string

const (
	// Member management
	PermissionViewMembers         Permission = "view_members"
	PermissionInviteMembers       Permission = "invite_members"
	PermissionRemoveMembers       Permission = "remove_members"
	PermissionManageMemberRoles   Permission = "manage_member_roles"
	PermissionApproveJoinRequests Permission = "approve_join_requests"

	// Organization settings
	PermissionViewOrgSettings   Permission = "view_org_settings"
	PermissionEditOrgProfile    Permission = "edit_org_profile"
	PermissionManageOrgSettings Permission = "manage_org_settings"
	PermissionManageInviteCodes Permission = "manage_invite_codes"
	PermissionUploadOrgLogo     Permission = "upload_org_logo"

	// Announcements
	PermissionViewAnnouncements   Permission = "view_announcements"
	PermissionCreateAnnouncements Permission = "create_announcements"
	PermissionEditAnnouncements   Permission = "edit_announcements"
	PermissionDeleteAnnouncements Permission = "delete_announcements"

	// Document storage
	PermissionViewStorage          Permission = "view_storage"
	PermissionUploadDocuments      Permission = "upload_documents"
	PermissionCreateFolders        Permission = "create_folders"
	PermissionDeleteDocuments      Permission = "delete_documents"
	PermissionAdminDeleteDocuments Permission = "admin_delete_documents"

	// Review system
	PermissionCreateReviews Permission = "create_reviews"
	PermissionManageReviews Permission = "manage_reviews"

	// Duty management
	PermissionParticipateInDuties Permission = "participate_in_duties"
	PermissionManageDutySystem    Permission = "manage_duty_system"

	// Analytics and reports
	PermissionViewStatistics   Permission = "view_statistics"
	PermissionExportData       Permission = "export_data"
	PermissionViewActivityLogs Permission = "view_activity_logs"

	// Advanced management
	PermissionArchiveOrganization Permission = "archive_organization"
	PermissionTransferOwnership   Permission = "transfer_ownership"
	PermissionManagePermissions   Permission = "manage_permissions"

	// Implicit member permissions (held by every member, never fetched)
	PermissionViewOwnAssignments    Permission = "view_own_assignments"
	PermissionManageOwnAvailability Permission = "manage_own_availability"
	PermissionRequestDutySwap       Permission = "request_duty_swap"
	PermissionCheckInDuty           Permission = "check_in_duty"
	PermissionCheckOutDuty          Permission = "check_out_duty"
	PermissionRespondToAssignment   Permission = "respond_to_assignment"
	PermissionLeaveOrganization     Permission = "leave_organization"
	PermissionViewOwnStatistics     Permission = "view_own_statistics"
)

// implicitMemberPermissions are satisfied by membership alone. They are
// compiled into the client and never appear in a granted-permission list.
var implicitMemberPermissions = map[Permission]struct{}{
	PermissionViewOwnAssignments:    {},
	PermissionManageOwnAvailability: {},
	PermissionRequestDutySwap:       {},
	PermissionCheckInDuty:           {},
	PermissionCheckOutDuty:          {},
	PermissionRespondToAssignment:   {},
	PermissionLeaveOrganization:     {},
	PermissionViewOwnStatistics:     {},
}

// categories groups the registry for settings UIs and admin tooling.
var categories = map[string][]Permission{
	"members": {
		PermissionViewMembers,
		PermissionInviteMembers,
		PermissionRemoveMembers,
		PermissionManageMemberRoles,
		PermissionApproveJoinRequests,
	},
	"organization": {
		PermissionViewOrgSettings,
		PermissionEditOrgProfile,
		PermissionManageOrgSettings,
		PermissionManageInviteCodes,
		PermissionUploadOrgLogo,
	},
	"announcements": {
		PermissionViewAnnouncements,
		PermissionCreateAnnouncements,
		PermissionEditAnnouncements,
		PermissionDeleteAnnouncements,
	},
	"storage": {
		PermissionViewStorage,
		PermissionUploadDocuments,
		PermissionCreateFolders,
		PermissionDeleteDocuments,
		PermissionAdminDeleteDocuments,
	},
	"reviews": {
		PermissionCreateReviews,
		PermissionManageReviews,
	},
	"duty": {
		PermissionParticipateInDuties,
		PermissionManageDutySystem,
	},
	"analytics": {
		PermissionViewStatistics,
		PermissionExportData,
		PermissionViewActivityLogs,
	},
	"advanced": {
		PermissionArchiveOrganization,
		PermissionTransferOwnership,
		PermissionManagePermissions,
	},
}

// registry is the set of all known permission names, implicit ones included.
var registry = buildRegistry()

func buildRegistry() map[Permission]struct{} {
	r := make(map[Permission]struct{})
	for _, perms := range categories {
		for _, p := range perms {
			r[p] = struct{}{}
		}
	}
	for p := range implicitMemberPermissions {
		r[p] = struct{}{}
	}
	return r
}

// Implicit reports whether the permission is held by every member without a
// server-side grant.
func (p Permission) Implicit() bool {
	_, ok := implicitMemberPermissions[p]
	return ok
}

// Valid reports whether the permission name exists in the registry.
func (p Permission) Valid() bool {
	_, ok := registry[p]
	return ok
}

func (p Permission) String() string {
	return string(p)
}

// ByCategory returns the registry grouped by feature area. The returned map
// is a copy and safe to mutate.
func ByCategory() map[string][]Permission {
	out := make(map[string][]Permission, len(categories))
	for name, perms := range categories {
		out[name] = append([]Permission(nil), perms...)
	}
	return out
}

// ImplicitPermissions returns the implicit member permission set.
func ImplicitPermissions() []Permission {
	out := make([]Permission, 0, len(implicitMemberPermissions))
	for p := range implicitMemberPermissions {
		out = append(out, p)
	}
	return out
}
