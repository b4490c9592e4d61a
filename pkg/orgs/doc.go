// Package orgs provides a read-through directory of organization summaries.
// Summaries are display data only; membership and permission state live in
// pkg/permissions.
package orgs
