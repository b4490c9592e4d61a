// Package session owns the authenticated identity: login, logout, session
// restore from persisted credentials, and the identity's organization
// memberships. No other package mutates the identity.
package session
