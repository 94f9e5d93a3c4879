package store

import "errors"

// ErrMalformedImport is returned when an imported document cannot be parsed
// or fails structural validation. The underlying cause is wrapped with it.
var ErrMalformedImport = errors.New("malformed workflow document")
