package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when the distribution does not exist.
	ErrTenantNotFound = errors.New("distribution not found")

	// ErrTenantNotActive is returned when the distribution exists but is suspended.
	ErrTenantNotActive = errors.New("distribution is not active")
)
