// Package api is the outbound HTTP adapter for the Rosterly backend. It
// attaches bearer credentials, performs a single silent token refresh on
// authentication failure, and surfaces server-issued cache-invalidation
// signals to the permission cache.
package api
