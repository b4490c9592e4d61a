// Package permissions implements the client-side permission model for
// Rosterly organizations: the canonical permission registry, organization
// roles, and a per-organization cache of the current identity's role and
// granted permissions.
//
// The backend remains the source of truth for authorization. This package
// caches its decisions for navigation gating and view-level visibility checks,
// refreshing entries lazily after a fixed validity window or on explicit
// invalidation.
package permissions
