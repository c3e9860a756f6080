package preferences

import "errors"

var (
	// ErrInitialization is returned when the service cannot prepare its
	// directory or load the existing document.
	ErrInitialization = errors.New("preferences initialization failed")

	// ErrUnsupportedSchema is returned for documents written by a newer
	// build with a higher schema_version.
	ErrUnsupportedSchema = errors.New("unsupported schema version")

	// ErrInvalid is returned when a partial update fails validation.
	ErrInvalid = errors.New("invalid preferences")
)
