package domain

import "errors"

// ErrNotFound is returned by stores when no row matches the query within the
// caller's user scope.
var ErrNotFound = errors.New("not found")
