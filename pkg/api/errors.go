package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api: request failed with status %d: %s", e.Status, e.Message)
}

// ErrNoRefreshToken is returned when a silent refresh is attempted without a
// stored refresh credential.
var ErrNoRefreshToken = errors.New("api: no refresh token available")

// IsUnauthorized reports whether the error is a 401 response.
func IsUnauthorized(err error) bool {
	return isStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports whether the error is a 403 response.
func IsForbidden(err error) bool {
	return isStatus(err, http.StatusForbidden)
}

// IsNotFound reports whether the error is a 404 response.
func IsNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
