package permissions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu           sync.Mutex
	role         Role
	userID       string
	granted      []string
	resolveErr   error
	grantedErr   error
	delay        time.Duration
	resolveCalls int
	grantedCalls int
}

func (f *fakeBackend) ResolveMembership(ctx context.Context, orgID string) (Membership, error) {
	f.mu.Lock()
	f.resolveCalls++
	role, userID, err, delay := f.role, f.userID, f.resolveErr, f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return Membership{}, err
	}
	return Membership{Role: role, UserID: userID}, nil
}

func (f *fakeBackend) GrantedPermissions(ctx context.Context, orgID, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grantedCalls++
	if f.grantedErr != nil {
		return nil, f.grantedErr
	}
	return append([]string(nil), f.granted...), nil
}

func (f *fakeBackend) calls() (resolve, granted int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveCalls, f.grantedCalls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache(backend Backend, clock *fakeClock) *Cache {
	return NewCache(backend, &Config{
		Validity: 5 * time.Minute,
		Now:      clock.Now,
	})
}

func TestEnsureLoadedFetchesOnce(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members"}}
	cache := newTestCache(backend, newFakeClock())

	member, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.True(t, member)

	resolve, granted := backend.calls()
	assert.Equal(t, 1, resolve, "second call should hit the cache")
	assert.Equal(t, 1, granted)
}

func TestEnsureLoadedRequiresOrgID(t *testing.T) {
	cache := newTestCache(&fakeBackend{role: RoleMember}, newFakeClock())

	for _, orgID := range []string{"", "   "} {
		_, err := cache.EnsureLoaded(context.Background(), orgID, false)
		assert.ErrorIs(t, err, ErrOrgIDRequired)
	}
}

func TestEnsureLoadedNormalizesOrgID(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), " org-1 ", false)
	require.NoError(t, err)
	_, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	resolve, _ := backend.calls()
	assert.Equal(t, 1, resolve, "padded and trimmed ids should share an entry")
}

func TestEnsureLoadedStaleness(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	clock := newFakeClock()
	cache := newTestCache(backend, clock)

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.False(t, cache.IsStale("org-1"))

	// Just inside the validity window: still fresh.
	clock.Advance(5*time.Minute - time.Second)
	_, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	resolve, _ := backend.calls()
	assert.Equal(t, 1, resolve)

	// At the boundary the entry is stale and must reload.
	clock.Advance(time.Second)
	assert.True(t, cache.IsStale("org-1"))
	_, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	resolve, _ = backend.calls()
	assert.Equal(t, 2, resolve)
}

func TestEnsureLoadedForceBypassesFreshEntry(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	_, err = cache.EnsureLoaded(context.Background(), "org-1", true)
	require.NoError(t, err)

	resolve, _ := backend.calls()
	assert.Equal(t, 2, resolve)
}

func TestEnsureLoadedConcurrentSharesOneFetch(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", delay: 50 * time.Millisecond}
	cache := newTestCache(backend, newFakeClock())

	const waiters = 20
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	members := make([]bool, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			members[i], errs[i] = cache.EnsureLoaded(context.Background(), "org-1", false)
		}(i)
	}
	wg.Wait()

	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.True(t, members[i])
	}
	resolve, _ := backend.calls()
	assert.Equal(t, 1, resolve, "concurrent callers must share one backend fetch")
}

func TestEnsureLoadedNotMember(t *testing.T) {
	backend := &fakeBackend{role: RoleNone}
	cache := newTestCache(backend, newFakeClock())

	member, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err, "non-membership is an outcome, not an error")
	assert.False(t, member)

	// The negative result is cached too.
	member, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.False(t, member)
	resolve, granted := backend.calls()
	assert.Equal(t, 1, resolve)
	assert.Equal(t, 0, granted, "granted permissions are never fetched for non-members")

	assert.False(t, cache.IsMember("org-1"))
	assert.False(t, cache.IsAdmin("org-1"))
	assert.False(t, cache.HasPermission("org-1", PermissionViewMembers))
	assert.False(t, cache.HasPermission("org-1", PermissionCheckInDuty), "implicit permissions require membership")
}

func TestEnsureLoadedAdminSkipsGrantedFetch(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleOwner} {
		t.Run(role.String(), func(t *testing.T) {
			backend := &fakeBackend{role: role, userID: "u1"}
			cache := newTestCache(backend, newFakeClock())

			member, err := cache.EnsureLoaded(context.Background(), "org-1", false)
			require.NoError(t, err)
			assert.True(t, member)

			_, granted := backend.calls()
			assert.Equal(t, 0, granted, "full-access roles skip the granted-permission fetch")
			assert.True(t, cache.IsAdmin("org-1"))
			assert.True(t, cache.HasPermission("org-1", PermissionManageOrgSettings))
			assert.Equal(t, []Permission{"*"}, cache.AllPermissions("org-1"))
		})
	}
}

func TestEnsureLoadedResolveErrorKeepsPreviousEntry(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members"}}
	clock := newFakeClock()
	cache := newTestCache(backend, clock)

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	backend.mu.Lock()
	backend.resolveErr = errors.New("backend down")
	backend.mu.Unlock()

	_, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.Error(t, err)

	// The stale entry survives the failed reload.
	entry := cache.Entry("org-1")
	require.NotNil(t, entry)
	assert.Equal(t, RoleMember, entry.Role)
}

func TestEnsureLoadedGrantedErrorDegradesToEmptySet(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", grantedErr: errors.New("boom")}
	cache := newTestCache(backend, newFakeClock())

	member, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.True(t, member)

	assert.True(t, cache.IsMember("org-1"))
	assert.False(t, cache.HasPermission("org-1", PermissionViewMembers))
	assert.True(t, cache.HasPermission("org-1", PermissionCheckInDuty), "implicit permissions survive a degraded load")
}

func TestEnsureLoadedWaitTimeout(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", delay: 200 * time.Millisecond}
	cache := NewCache(backend, &Config{
		WaitTimeout: 20 * time.Millisecond,
	})

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	assert.ErrorIs(t, err, ErrLoadTimeout)

	// The underlying load keeps going and lands in the cache.
	assert.Eventually(t, func() bool {
		return cache.Entry("org-1") != nil
	}, time.Second, 10*time.Millisecond)
}

func TestEnsureLoadedCallerCancellation(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", delay: 200 * time.Millisecond}
	cache := newTestCache(backend, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := cache.EnsureLoaded(ctx, "org-1", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHasPermissionSemantics(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members", "create_reviews"}}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	tests := []struct {
		name string
		perm Permission
		want bool
	}{
		{"granted permission", PermissionViewMembers, true},
		{"ungranted permission", PermissionManageOrgSettings, false},
		{"implicit member permission", PermissionCheckInDuty, true},
		{"empty permission always passes", Permission(""), true},
		{"unknown permission name", Permission("no_such_permission"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cache.HasPermission("org-1", tt.perm))
		})
	}

	assert.False(t, cache.HasPermission("org-2", PermissionViewMembers), "uncached org fails closed")
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members"}}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	both := []Permission{PermissionViewMembers, PermissionManageOrgSettings}

	assert.True(t, cache.HasAnyPermission("org-1", both))
	assert.False(t, cache.HasAllPermissions("org-1", both))
	assert.True(t, cache.HasAllPermissions("org-1", []Permission{PermissionViewMembers}))

	// Empty lists pass regardless of cache state.
	assert.True(t, cache.HasAnyPermission("org-1", nil))
	assert.True(t, cache.HasAllPermissions("org-1", nil))
	assert.True(t, cache.HasAnyPermission("uncached", nil))

	// Uncached orgs fail closed for non-empty lists.
	assert.False(t, cache.HasAnyPermission("uncached", both))
	assert.False(t, cache.HasAllPermissions("uncached", both))
}

func TestAllPermissionsMergesImplicit(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members"}}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	all := cache.AllPermissions("org-1")
	assert.Contains(t, all, PermissionViewMembers)
	assert.Contains(t, all, PermissionCheckInDuty)
	assert.Len(t, all, len(implicitMemberPermissions)+1)
	assert.IsIncreasing(t, all)

	assert.Nil(t, cache.AllPermissions("uncached"))
}

func TestInvalidate(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	require.NotNil(t, cache.Entry("org-1"))

	cache.Invalidate("org-1")
	assert.Nil(t, cache.Entry("org-1"))
	assert.True(t, cache.IsStale("org-1"))

	_, err = cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)
	resolve, _ := backend.calls()
	assert.Equal(t, 2, resolve)
}

func TestInvalidateAll(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	cache := newTestCache(backend, newFakeClock())

	for i := 0; i < 3; i++ {
		_, err := cache.EnsureLoaded(context.Background(), fmt.Sprintf("org-%d", i), false)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.CacheStats().Entries)

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.CacheStats().Entries)
}

func TestEntryReturnsSnapshot(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1", granted: []string{"view_members"}}
	cache := newTestCache(backend, newFakeClock())

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	entry := cache.Entry("org-1")
	require.NotNil(t, entry)
	entry.Granted[PermissionManageOrgSettings] = struct{}{}

	assert.False(t, cache.HasPermission("org-1", PermissionManageOrgSettings), "mutating a snapshot must not affect the cache")
}

func TestPrefetch(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	cache := newTestCache(backend, newFakeClock())

	cache.Prefetch(context.Background(), []string{"org-1", "org-2", "org-3"})

	stats := cache.CacheStats()
	assert.Equal(t, 3, stats.Entries)
	assert.Empty(t, stats.InFlight)
}

func TestCacheStatsCountsStaleEntries(t *testing.T) {
	backend := &fakeBackend{role: RoleMember, userID: "u1"}
	clock := newFakeClock()
	cache := newTestCache(backend, clock)

	_, err := cache.EnsureLoaded(context.Background(), "org-1", false)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = cache.EnsureLoaded(context.Background(), "org-2", false)
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	stats := cache.CacheStats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 1, stats.StaleCount)
}
