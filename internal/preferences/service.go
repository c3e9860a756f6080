// Package preferences stores user preferences in <base>/.cui/preferences.json.
//
// The Service is built on a jsonstore.Store holding a Document. Reads are
// best effort: any failure is logged and the defaults are returned. Updates
// and initialization are not: their failures are returned to the caller,
// who needs to know whether a change was persisted.
package preferences

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cui-prefs/internal/jsonstore"
	"cui-prefs/internal/logger"
)

// Options configures a Service. The zero value is usable.
type Options struct {
	// BaseDir is the directory holding .cui. Empty means the home directory.
	BaseDir string

	Logger   *logger.Logger
	Observer jsonstore.Observer

	// Now returns the current time (default time.Now).
	Now func() time.Time

	// Defaults returns the preferences of a new document
	// (default DefaultPreferences).
	Defaults func() Preferences
}

// Result is the outcome of a best-effort read.
type Result struct {
	Preferences Preferences
	// Fallback is true when the stored document could not be read and
	// Preferences holds the defaults instead.
	Fallback bool
	// Err is the read error behind a fallback.
	Err error
}

// Service reads and merge-updates the preferences document.
// It is safe for concurrent use; construct one per process and share it.
type Service struct {
	log      *logger.Logger
	observer jsonstore.Observer
	now      func() time.Time
	defaults func() Preferences

	mu          sync.Mutex // guards paths, store and initialized
	paths       Paths
	store       *jsonstore.Store[Document]
	initialized bool
}

// New creates a Service. It resolves paths but touches no files.
func New(opts Options) (*Service, error) {
	s := &Service{
		log:      opts.Logger,
		observer: opts.Observer,
		now:      opts.Now,
		defaults: opts.Defaults,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.WithComponent("preferences")
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaults == nil {
		s.defaults = DefaultPreferences
	}

	if err := s.Repoint(opts.BaseDir); err != nil {
		return nil, err
	}
	return s, nil
}

// Repoint re-resolves paths under baseDir and binds the service to the
// store there. The service must be initialized again afterwards.
func (s *Service) Repoint(baseDir string) error {
	paths, err := ResolvePaths(baseDir)
	if err != nil {
		return err
	}

	store := jsonstore.New(paths.DBPath, s.newDocument,
		jsonstore.WithValidator(ValidateDocument),
		jsonstore.WithObserver[Document](s.observer),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = paths
	s.store = store
	s.initialized = false
	return nil
}

// Paths returns the resolved file locations.
func (s *Service) Paths() Paths {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths
}

// Initialized reports whether Initialize has succeeded.
func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Initialize creates the .cui directory and loads the stored document.
// Calls after the first success are no-ops; a failed call may be retried.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.store.Init(ctx); err != nil {
		s.log.Errorw("Failed to initialize preferences", "error", err, "path", s.paths.DBPath)
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if _, err := s.store.Read(ctx); err != nil {
		s.log.Errorw("Failed to initialize preferences", "error", err, "path", s.paths.DBPath)
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	s.initialized = true
	s.log.Debugw("Preferences initialized", "path", s.paths.DBPath)
	return nil
}

// Get returns the stored preferences. It never fails: when the document
// cannot be read the error is logged and a fresh copy of the defaults is
// returned with Fallback set.
func (s *Service) Get(ctx context.Context) Result {
	store := s.current()
	doc, err := store.Read(ctx)
	if err != nil {
		s.log.Errorw("Failed to get preferences", "error", err, "path", store.Path())
		return Result{Preferences: s.defaults().Clone(), Fallback: true, Err: err}
	}
	return Result{Preferences: doc.Preferences}
}

// GetPreferences returns the stored preferences, or the defaults if they
// cannot be read.
func (s *Service) GetPreferences(ctx context.Context) Preferences {
	return s.Get(ctx).Preferences
}

// Document returns the full stored document. Unlike Get, read errors are
// returned.
func (s *Service) Document(ctx context.Context) (Document, error) {
	return s.current().Read(ctx)
}

// Update merges partial over the stored preferences, refreshes
// metadata.last_updated and persists the result, which it returns.
func (s *Service) Update(ctx context.Context, partial Preferences) (Preferences, error) {
	partial, err := normalize(partial)
	if err != nil {
		return nil, err
	}
	if err := ValidatePartial(partial); err != nil {
		return nil, err
	}

	doc, err := s.current().Update(ctx, func(d Document) (Document, error) {
		d.Preferences = Merge(d.Preferences, partial)
		d.Metadata.LastUpdated = s.stamp(d.Metadata.LastUpdated)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return doc.Preferences, nil
}

// Reset replaces the stored document with a new default one, discarding
// whatever the file held, and returns the default preferences.
func (s *Service) Reset(ctx context.Context) (Preferences, error) {
	doc, err := s.current().Reset(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Infow("Preferences reset to defaults", "path", s.Paths().DBPath)
	return doc.Preferences, nil
}

func (s *Service) current() *jsonstore.Store[Document] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

func (s *Service) newDocument() Document {
	return NewDocument(s.defaults(), s.now())
}

// stamp returns the current time, never earlier than prev.
func (s *Service) stamp(prev time.Time) time.Time {
	now := s.now().UTC()
	if now.Before(prev) {
		return prev
	}
	return now
}
