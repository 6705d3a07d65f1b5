package store

import "github.com/nomoreanxious/calibra/internal/domain"

// ErrNotFound mirrors the domain sentinel so callers on either side of the
// store boundary can errors.Is against the same value.
var ErrNotFound = domain.ErrNotFound
