package jsonstore

import "errors"

var (
	// ErrCorrupt is returned when the store file exists but does not decode
	// to a valid document.
	ErrCorrupt = errors.New("corrupt store")

	// ErrWrite is returned when a document could not be persisted.
	ErrWrite = errors.New("store write failed")
)
