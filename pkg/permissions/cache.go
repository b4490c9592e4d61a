package permissions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rosterly/rosterly/pkg/observability"
)

const (
	// DefaultValidity is how long a cache entry is trusted after a load
	DefaultValidity = 5 * time.Minute
	// DefaultWaitTimeout bounds how long a caller waits on a peer's in-flight load
	DefaultWaitTimeout = 5 * time.Second
)

// Membership is the backend's answer to "who is the caller in this org."
type Membership struct {
	Role   Role
	UserID string
}

// Backend resolves memberships and granted permissions from the server.
// pkg/api provides the production implementation.
type Backend interface {
	// ResolveMembership returns the caller's role and internal user id within
	// the organization. A RoleNone result means no membership.
	ResolveMembership(ctx context.Context, orgID string) (Membership, error)

	// GrantedPermissions returns the explicit permission grants for a
	// non-admin member. Never called for full-access roles.
	GrantedPermissions(ctx context.Context, orgID, userID string) ([]string, error)
}

// Entry is one organization's cached permission state.
type Entry struct {
	Role     Role
	UserID   string
	Granted  map[Permission]struct{}
	LoadedAt time.Time
}

// Config controls cache behavior. Zero fields fall back to defaults.
type Config struct {
	// Validity is the staleness window measured from Entry.LoadedAt
	Validity time.Duration
	// WaitTimeout bounds waiting on an in-flight peer load
	WaitTimeout time.Duration
	// Now is the clock used for staleness checks, injectable for tests
	Now func() time.Time

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Cache is the per-organization permission cache. All methods are safe for
// concurrent use; loads are serialized per organization key.
type Cache struct {
	backend     Backend
	validity    time.Duration
	waitTimeout time.Duration
	now         func() time.Time
	logger      *observability.Logger
	metrics     *observability.Metrics

	mu      sync.RWMutex
	entries map[string]*Entry
	loading map[string]struct{}

	group singleflight.Group
}

// NewCache creates a permission cache over the given backend.
func NewCache(backend Backend, config *Config) *Cache {
	if config == nil {
		config = &Config{}
	}
	c := &Cache{
		backend:     backend,
		validity:    config.Validity,
		waitTimeout: config.WaitTimeout,
		now:         config.Now,
		logger:      config.Logger,
		metrics:     config.Metrics,
		entries:     make(map[string]*Entry),
		loading:     make(map[string]struct{}),
	}
	if c.validity <= 0 {
		c.validity = DefaultValidity
	}
	if c.waitTimeout <= 0 {
		c.waitTimeout = DefaultWaitTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return c
}

// EnsureLoaded guarantees a usable cache entry for the organization, fetching
// from the backend if the entry is absent or stale. It returns true when the
// identity is a member of the organization and false when it is not; the
// latter is a legitimate outcome, not an error.
//
// Concurrent calls for the same organization share a single fetch. A caller
// that waits longer than the configured wait timeout receives ErrLoadTimeout
// without cancelling the underlying fetch.
func (c *Cache) EnsureLoaded(ctx context.Context, orgID string, force bool) (bool, error) {
	orgID = normalizeOrgID(orgID)
	if orgID == "" {
		return false, ErrOrgIDRequired
	}

	if !force {
		if e := c.freshEntry(orgID); e != nil {
			c.recordHit()
			c.logger.WithOrg(orgID).Debug("permission cache hit")
			return e.Role.Member(), nil
		}
	}
	c.recordMiss()

	// The load must outlive this caller so that peers joining the same
	// flight still get a result if we time out or are cancelled.
	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(orgID, func() (interface{}, error) {
		c.setLoading(orgID, true)
		defer c.setLoading(orgID, false)
		return c.load(loadCtx, orgID)
	})

	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-timer.C:
		c.recordWaitTimeout()
		c.logger.WithOrg(orgID).Warn("timed out waiting for permission load")
		return false, ErrLoadTimeout
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// load performs the two-step fetch and replaces the entry wholesale. On a
// role-resolution failure the previous entry, stale or not, is left in place.
func (c *Cache) load(ctx context.Context, orgID string) (bool, error) {
	m, err := c.backend.ResolveMembership(ctx, orgID)
	if err != nil {
		c.recordLoad("error")
		c.logger.WithOrg(orgID).WithError(err).Error("failed to resolve membership")
		return false, err
	}

	entry := &Entry{
		Role:     m.Role,
		UserID:   m.UserID,
		Granted:  make(map[Permission]struct{}),
		LoadedAt: c.now(),
	}

	if !m.Role.Member() {
		c.storeEntry(orgID, entry)
		c.recordLoad("not_member")
		c.logger.WithOrg(orgID).Warn("identity is not a member of organization")
		return false, nil
	}

	if !m.Role.HasFullAccess() {
		granted, err := c.backend.GrantedPermissions(ctx, orgID, m.UserID)
		if err != nil {
			// Role is known, so degrade to an empty grant set instead of
			// failing the whole load.
			c.logger.WithOrg(orgID).WithError(err).Warn("failed to load granted permissions, continuing with empty set")
		} else {
			for _, g := range granted {
				entry.Granted[Permission(g)] = struct{}{}
			}
		}
	}

	c.storeEntry(orgID, entry)
	c.recordLoad("ok")
	c.logger.WithOrg(orgID).WithField("role", m.Role.String()).Debug("permission cache loaded")
	return true, nil
}

// IsStale reports whether the organization needs a reload before its cached
// state can be trusted.
func (c *Cache) IsStale(orgID string) bool {
	return c.freshEntry(normalizeOrgID(orgID)) == nil
}

// IsAdmin reports whether the cached role has full access. False when no
// entry is cached.
func (c *Cache) IsAdmin(orgID string) bool {
	e := c.entry(normalizeOrgID(orgID))
	return e != nil && e.Role.HasFullAccess()
}

// IsMember reports whether the cached role represents a membership. False
// when no entry is cached.
func (c *Cache) IsMember(orgID string) bool {
	e := c.entry(normalizeOrgID(orgID))
	return e != nil && e.Role.Member()
}

// HasPermission reports whether the identity holds the permission in the
// organization. An empty permission always passes; a missing cache entry
// always fails.
func (c *Cache) HasPermission(orgID string, p Permission) bool {
	if p == "" {
		return true
	}
	e := c.entry(normalizeOrgID(orgID))
	if e == nil {
		return false
	}
	return hasPermission(e, p)
}

// HasAnyPermission reports whether the identity holds at least one of the
// permissions. An empty list always passes.
func (c *Cache) HasAnyPermission(orgID string, perms []Permission) bool {
	if len(perms) == 0 {
		return true
	}
	e := c.entry(normalizeOrgID(orgID))
	if e == nil {
		return false
	}
	if e.Role.HasFullAccess() {
		return true
	}
	for _, p := range perms {
		if hasPermission(e, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the identity holds every permission in
// the list. An empty list always passes.
func (c *Cache) HasAllPermissions(orgID string, perms []Permission) bool {
	if len(perms) == 0 {
		return true
	}
	e := c.entry(normalizeOrgID(orgID))
	if e == nil {
		return false
	}
	if e.Role.HasFullAccess() {
		return true
	}
	for _, p := range perms {
		if !hasPermission(e, p) {
			return false
		}
	}
	return true
}

// AllPermissions returns the effective permission set for the organization:
// granted plus implicit permissions, or ["*"] for full-access roles.
func (c *Cache) AllPermissions(orgID string) []Permission {
	e := c.entry(normalizeOrgID(orgID))
	if e == nil {
		return nil
	}
	if e.Role.HasFullAccess() {
		return []Permission{"*"}
	}
	set := make(map[Permission]struct{}, len(e.Granted)+len(implicitMemberPermissions))
	for p := range e.Granted {
		set[p] = struct{}{}
	}
	if e.Role.Member() {
		for p := range implicitMemberPermissions {
			set[p] = struct{}{}
		}
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entry returns a snapshot of the cached entry, or nil when none exists.
func (c *Cache) Entry(orgID string) *Entry {
	e := c.entry(normalizeOrgID(orgID))
	if e == nil {
		return nil
	}
	granted := make(map[Permission]struct{}, len(e.Granted))
	for p := range e.Granted {
		granted[p] = struct{}{}
	}
	return &Entry{
		Role:     e.Role,
		UserID:   e.UserID,
		Granted:  granted,
		LoadedAt: e.LoadedAt,
	}
}

// Invalidate drops the cache entry for one organization. The next access
// forces a reload.
func (c *Cache) Invalidate(orgID string) {
	orgID = normalizeOrgID(orgID)
	if orgID == "" {
		return
	}
	c.mu.Lock()
	delete(c.entries, orgID)
	c.mu.Unlock()
	c.recordInvalidation("org")
	c.logger.WithOrg(orgID).Debug("permission cache invalidated")
}

// InvalidateAll drops every cached entry and forgets in-flight loads.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	for orgID := range c.loading {
		c.group.Forget(orgID)
	}
	c.mu.Unlock()
	c.recordInvalidation("all")
	c.logger.Debug("permission cache cleared")
}

// Prefetch warms the cache for multiple organizations. Failures are logged
// and ignored.
func (c *Cache) Prefetch(ctx context.Context, orgIDs []string) {
	var wg sync.WaitGroup
	for _, orgID := range orgIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := c.EnsureLoaded(ctx, id, false); err != nil {
				c.logger.WithOrg(id).WithError(err).Warn("permission prefetch failed")
			}
		}(orgID)
	}
	wg.Wait()
}

// IsLoading reports whether a load is currently in flight for the org.
func (c *Cache) IsLoading(orgID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.loading[normalizeOrgID(orgID)]
	return ok
}

// Stats is a point-in-time snapshot of cache contents for debugging.
type Stats struct {
	Entries    int
	InFlight   []string
	StaleCount int
}

// CacheStats returns a snapshot of the cache for debugging.
func (c *Cache) CacheStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Entries: len(c.entries)}
	now := c.now()
	for _, e := range c.entries {
		if now.Sub(e.LoadedAt) >= c.validity {
			s.StaleCount++
		}
	}
	for orgID := range c.loading {
		s.InFlight = append(s.InFlight, orgID)
	}
	sort.Strings(s.InFlight)
	return s
}

// hasPermission resolves one permission against an entry, honoring the
// full-access and implicit-member shortcuts.
func hasPermission(e *Entry, p Permission) bool {
	if p == "" {
		return true
	}
	if e.Role.HasFullAccess() {
		return true
	}
	if p.Implicit() && e.Role.Member() {
		return true
	}
	_, ok := e.Granted[p]
	return ok
}

func normalizeOrgID(orgID string) string {
	return strings.TrimSpace(orgID)
}

func (c *Cache) entry(orgID string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[orgID]
}

func (c *Cache) freshEntry(orgID string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[orgID]
	if !ok {
		return nil
	}
	if c.now().Sub(e.LoadedAt) >= c.validity {
		return nil
	}
	return e
}

func (c *Cache) storeEntry(orgID string, e *Entry) {
	c.mu.Lock()
	c.entries[orgID] = e
	c.mu.Unlock()
}

func (c *Cache) setLoading(orgID string, loading bool) {
	c.mu.Lock()
	if loading {
		c.loading[orgID] = struct{}{}
	} else {
		delete(c.loading, orgID)
	}
	c.mu.Unlock()
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.PermissionCacheHitsTotal.Inc()
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.PermissionCacheMissesTotal.Inc()
	}
}

func (c *Cache) recordLoad(outcome string) {
	if c.metrics != nil {
		c.metrics.PermissionLoadsTotal.WithLabelValues(outcome).Inc()
	}
}

func (c *Cache) recordInvalidation(source string) {
	if c.metrics != nil {
		c.metrics.PermissionInvalidationsTotal.WithLabelValues(source).Inc()
	}
}

func (c *Cache) recordWaitTimeout() {
	if c.metrics != nil {
		c.metrics.PermissionLoadWaitTimeoutsTotal.Inc()
	}
}
