package common

import "errors"

// Error kinds shared by the domain services. Wrap with %w and branch with errors.Is.
// Anything that is none of these is treated as a transient failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
)

// IsDomain reports whether err is one of the recoverable domain kinds.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrValidation)
}
