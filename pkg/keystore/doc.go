// Package keystore persists small pieces of client state (credentials, the
// current organization) in a local sqlite database.
package keystore
