package permissions

import "errors"

var (
	// ErrOrgIDRequired is returned when a cache operation is called without an
	// organization id. Callers that do not gate on permissions may treat it as
	// non-fatal.
	ErrOrgIDRequired = errors.New("permissions: organization id is required")

	// ErrLoadTimeout is returned when a caller gives up waiting on another
	// caller's in-flight load. The underlying fetch is not cancelled.
	ErrLoadTimeout = errors.New("permissions: timed out waiting for in-flight load")
)
