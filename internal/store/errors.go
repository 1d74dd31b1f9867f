package store

import "errors"

// ErrNotFound is returned when a record does not exist, or when the
// visibility filter excludes it for the requesting user.
var ErrNotFound = errors.New("not found")
