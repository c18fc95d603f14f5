package schema

import "errors"

var (
	// ErrSchemaMismatch means reconciliation could not bring the live schema
	// in line with the descriptor. Callers must not use storage after it.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidDescriptor is returned by Schema.Validate.
	ErrInvalidDescriptor = errors.New("invalid schema descriptor")

	// ErrUnsupportedDefault is returned by a Dialect that cannot render a
	// default in the requested context.
	ErrUnsupportedDefault = errors.New("unsupported default")
)
