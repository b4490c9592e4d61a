package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionValid(t *testing.T) {
	assert.True(t, PermissionViewMembers.Valid())
	assert.True(t, PermissionCheckInDuty.Valid())
	assert.False(t, Permission("not_a_permission").Valid())
	assert.False(t, Permission("").Valid())
}

func TestPermissionImplicit(t *testing.T) {
	tests := []struct {
		perm Permission
		want bool
	}{
		{PermissionViewOwnAssignments, true},
		{PermissionCheckInDuty, true},
		{PermissionLeaveOrganization, true},
		{PermissionViewMembers, false},
		{PermissionManageOrgSettings, false},
	}
	for _, tt := range tests {
		t.Run(tt.perm.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.perm.Implicit())
		})
	}
}

func TestByCategoryReturnsCopy(t *testing.T) {
	first := ByCategory()
	first["members"][0] = Permission("mutated")
	first["extra"] = []Permission{PermissionViewMembers}

	second := ByCategory()
	assert.Equal(t, PermissionViewMembers, second["members"][0])
	assert.NotContains(t, second, "extra")
}

func TestImplicitPermissionsAllValid(t *testing.T) {
	implicit := ImplicitPermissions()
	assert.Len(t, implicit, len(implicitMemberPermissions))
	for _, p := range implicit {
		assert.True(t, p.Valid(), "implicit permission %s must be in the registry", p)
		assert.True(t, p.Implicit())
	}
}

func TestRoleHasFullAccess(t *testing.T) {
	assert.True(t, RoleAdmin.HasFullAccess())
	assert.True(t, RoleOwner.HasFullAccess())
	assert.False(t, RoleMember.HasFullAccess())
	assert.False(t, RoleNone.HasFullAccess())
	assert.False(t, Role("moderator").HasFullAccess(), "custom roles behave like ordinary members")
}

func TestRoleMember(t *testing.T) {
	assert.True(t, RoleAdmin.Member())
	assert.True(t, RoleOwner.Member())
	assert.True(t, RoleMember.Member())
	assert.True(t, Role("moderator").Member())
	assert.False(t, RoleNone.Member())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleNone, ParseRole(""))
	assert.Equal(t, Role("moderator"), ParseRole("moderator"))
}
