package registry

import "errors"

// ErrInvalidArgument indicates a launch request missing a required field.
// Rejected synchronously; the task never enters the registry.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNotFound indicates a resume against an unknown execution handle.
var ErrNotFound = errors.New("not found")
