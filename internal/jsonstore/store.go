// Package jsonstore persists a single JSON document to one file.
//
// A Store owns its file: reads are served from an in-memory copy that is
// loaded lazily, updates run as one read-modify-write cycle under the store
// mutex, and every write replaces the file atomically via a temporary file
// and rename. Coordination between separate processes is not attempted.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// Store persists a document of type D at a fixed path.
type Store[D any] struct {
	path       string
	newDefault func() D
	fsys       FS
	validate   func(D) error
	observer   Observer
	perm       fs.FileMode

	mu sync.RWMutex
	// cached holds the encoded current document, nil until first load.
	// The slice is replaced on every write and never modified in place.
	cached []byte
}

// Option configures a Store.
type Option[D any] func(*Store[D])

// WithFS sets the filesystem used by the store (default: the os package).
func WithFS[D any](fsys FS) Option[D] {
	return func(s *Store[D]) {
		s.fsys = fsys
	}
}

// WithValidator sets a structural check applied to every decoded document
// and to every document before it is written.
func WithValidator[D any](fn func(D) error) Option[D] {
	return func(s *Store[D]) {
		s.validate = fn
	}
}

// WithObserver reports the outcome and latency of each operation to o.
func WithObserver[D any](o Observer) Option[D] {
	return func(s *Store[D]) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithFileMode sets the permission bits of the written file (default 0644).
func WithFileMode[D any](perm fs.FileMode) Option[D] {
	return func(s *Store[D]) {
		s.perm = perm
	}
}

// New creates a store bound to path. newDefault constructs the document used
// when the file does not exist yet; it is called at most once per load.
func New[D any](path string, newDefault func() D, opts ...Option[D]) *Store[D] {
	s := &Store[D]{
		path:       path,
		newDefault: newDefault,
		fsys:       OS(),
		observer:   nopObserver{},
		perm:       0644,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the store is bound to.
func (s *Store[D]) Path() string {
	return s.path
}

// Init creates the parent directory of the store file.
func (s *Store[D]) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fsys.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	return nil
}

// Exists reports whether the store file is present on disk.
func (s *Store[D]) Exists() bool {
	_, err := s.fsys.Stat(s.path)
	return err == nil
}

// Read returns the current document.
//
// When the file does not exist the default document is returned (and kept in
// memory) without writing it. A file that cannot be decoded or fails
// validation yields an error wrapping ErrCorrupt.
func (s *Store[D]) Read(ctx context.Context) (doc D, err error) {
	start := time.Now()
	defer func() { s.observer.Observe(OpRead, time.Since(start), err) }()

	if err = ctx.Err(); err != nil {
		return doc, err
	}

	s.mu.RLock()
	raw := s.cached
	s.mu.RUnlock()

	if raw == nil {
		s.mu.Lock()
		raw, err = s.loadLocked()
		s.mu.Unlock()
		if err != nil {
			return doc, err
		}
	}
	return s.decode(raw)
}

// Update applies fn to the current document and persists the result.
//
// Concurrent calls are serialized: each fn observes the document produced by
// the previous successful Update. fn receives a private copy; if it returns an
// error nothing is written. A persist failure wraps ErrWrite and leaves both
// the file and the in-memory document unchanged.
func (s *Store[D]) Update(ctx context.Context, fn func(D) (D, error)) (result D, err error) {
	start := time.Now()
	defer func() { s.observer.Observe(OpUpdate, time.Since(start), err) }()

	if err = ctx.Err(); err != nil {
		return result, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.loadLocked()
	if err != nil {
		return result, err
	}
	current, err := s.decode(raw)
	if err != nil {
		return result, err
	}

	next, err := fn(current)
	if err != nil {
		return result, err
	}
	if err = s.commitLocked(next); err != nil {
		return result, err
	}
	return next, nil
}

// Reset replaces the stored document with a fresh default without reading
// the existing file, so it also succeeds when the file is corrupt.
func (s *Store[D]) Reset(ctx context.Context) (doc D, err error) {
	start := time.Now()
	defer func() { s.observer.Observe(OpReset, time.Since(start), err) }()

	if err = ctx.Err(); err != nil {
		return doc, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.newDefault()
	if err = s.commitLocked(fresh); err != nil {
		return doc, err
	}
	return fresh, nil
}

// Reload drops the in-memory document; the next operation reads the file.
func (s *Store[D]) Reload() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// loadLocked returns the cached document, loading it from disk if needed.
// Caller must hold s.mu for writing.
func (s *Store[D]) loadLocked() ([]byte, error) {
	if s.cached != nil {
		return s.cached, nil
	}

	data, err := s.fsys.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		if err := s.fsys.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		raw, err := encode(s.newDefault())
		if err != nil {
			return nil, err
		}
		s.cached = raw
		return raw, nil
	}

	if _, err := s.decode(data); err != nil {
		return nil, err
	}
	s.cached = data
	return data, nil
}

// commitLocked validates, writes and caches doc. Caller must hold s.mu.
func (s *Store[D]) commitLocked(doc D) error {
	if s.validate != nil {
		if err := s.validate(doc); err != nil {
			return fmt.Errorf("validating document: %w", err)
		}
	}
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	if err := s.fsys.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %w", ErrWrite, s.path, err)
	}
	if err := WriteFileAtomic(s.fsys, s.path, raw, s.perm); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	s.cached = raw
	return nil
}

func (s *Store[D]) decode(raw []byte) (D, error) {
	var doc D
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return doc, fmt.Errorf("%s: %w: document is null", s.path, ErrCorrupt)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		var zero D
		return zero, fmt.Errorf("%s: %w: %w", s.path, ErrCorrupt, err)
	}
	if s.validate != nil {
		if err := s.validate(doc); err != nil {
			var zero D
			return zero, fmt.Errorf("%s: %w: %w", s.path, ErrCorrupt, err)
		}
	}
	return doc, nil
}

func encode[D any](doc D) ([]byte, error) {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return append(raw, '\n'), nil
}
