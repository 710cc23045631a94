package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNoData indicates a read found no rows where at least one was expected
	ErrNoData = errors.New("no data")

	// ErrCollision indicates a write violated a uniqueness constraint
	ErrCollision = errors.New("collision")

	// ErrIntegrity indicates more rows were found than the schema allows
	ErrIntegrity = errors.New("integrity violation")

	// ErrConnection indicates the backend is unreachable or rejected the credentials
	ErrConnection = errors.New("connection failed")

	// ErrUnsupportedType indicates a value cannot be sanitised into a JSON-safe tree
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnknownBackend indicates configuration names a backend with no implementation
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrPartial indicates a multi-step operation stopped part-way through
	ErrPartial = errors.New("partially completed")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
