package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrgPermissionsFacade(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members"}}
	cache := newTestCache(backend, newFakeClock())

	scope := cache.For(" org-1 ")
	assert.Equal(t, "org-1", scope.OrgID())

	member, err := scope.EnsureLoaded(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, member)

	assert.True(t, scope.IsMember())
	assert.False(t, scope.IsAdmin())
	assert.True(t, scope.Has(PermissionViewMembers))
	assert.True(t, scope.HasAny(PermissionViewMembers, PermissionManageOrgSettings))
	assert.False(t, scope.HasAll(PermissionViewMembers, PermissionManageOrgSettings))
	assert.Contains(t, scope.All(), PermissionCheckInDuty)
}
