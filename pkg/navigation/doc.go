// Package navigation implements the client's route table and the navigation
// guard that gates every route change on session state and organization
// permissions. Redirect decisions carry machine-readable reason codes for UX
// messaging and observability.
package navigation
