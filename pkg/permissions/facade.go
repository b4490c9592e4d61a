package permissions

import "context"

// OrgPermissions is a read-oriented view of the cache bound to a single
// organization, for route guards and view-level visibility checks.
type OrgPermissions struct {
	cache *Cache
	orgID string
}

// For binds the cache to one organization.
func (c *Cache) For(orgID string) OrgPermissions {
	return OrgPermissions{cache: c, orgID: normalizeOrgID(orgID)}
}

// OrgID returns the bound organization id.
func (o OrgPermissions) OrgID() string {
	return o.orgID
}

// EnsureLoaded refreshes the bound organization if needed.
func (o OrgPermissions) EnsureLoaded(ctx context.Context, force bool) (bool, error) {
	return o.cache.EnsureLoaded(ctx, o.orgID, force)
}

// IsAdmin reports whether the cached role has full access.
func (o OrgPermissions) IsAdmin() bool {
	return o.cache.IsAdmin(o.orgID)
}

// IsMember reports whether the identity is a member.
func (o OrgPermissions) IsMember() bool {
	return o.cache.IsMember(o.orgID)
}

// Has reports whether the identity holds the permission.
func (o OrgPermissions) Has(p Permission) bool {
	return o.cache.HasPermission(o.orgID, p)
}

// HasAny reports whether the identity holds at least one of the permissions.
func (o OrgPermissions) HasAny(perms ...Permission) bool {
	return o.cache.HasAnyPermission(o.orgID, perms)
}

// HasAll reports whether the identity holds every one of the permissions.
func (o OrgPermissions) HasAll(perms ...Permission) bool {
	return o.cache.HasAllPermissions(o.orgID, perms)
}

// All returns the effective permission set for the organization.
func (o OrgPermissions) All() []Permission {
	return o.cache.AllPermissions(o.orgID)
}
