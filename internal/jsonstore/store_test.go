package jsonstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type testDoc struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]any `json:"tags"`
}

func newTestDoc() testDoc {
	return testDoc{Name: "default", Tags: map[string]any{}}
}

func requireName(d testDoc) error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func newTestStore(t *testing.T, opts ...Option[testDoc]) *Store[testDoc] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "dir", "doc.json")
	return New(path, newTestDoc, opts...)
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRead_MissingFileReturnsDefault(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Name != "default" {
		t.Errorf("Name = %q, want %q", doc.Name, "default")
	}
	if s.Exists() {
		t.Error("Read should not write the default document")
	}
	if _, err := os.Stat(filepath.Dir(s.Path())); err != nil {
		t.Errorf("parent directory should exist after Read: %v", err)
	}
}

func TestUpdate_PersistsAndReturnsResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.Update(ctx, func(d testDoc) (testDoc, error) {
		d.Count = 7
		d.Tags["color"] = "blue"
		return d, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Count != 7 {
		t.Errorf("Update returned Count = %d, want 7", got.Count)
	}

	// A fresh store on the same path simulates a process restart.
	reopened := New(s.Path(), newTestDoc)
	doc, err := reopened.Read(ctx)
	if err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if doc.Count != 7 || doc.Tags["color"] != "blue" {
		t.Errorf("reopened doc = %+v, want Count=7 color=blue", doc)
	}
}

func TestUpdate_SequentialUpdatesSeePreviousResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Update(ctx, func(d testDoc) (testDoc, error) {
			d.Count++
			return d, nil
		}); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
	}

	doc, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Count != 3 {
		t.Errorf("Count = %d, want 3", doc.Count)
	}
}

func TestUpdate_MutatorErrorWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.Update(ctx, func(d testDoc) (testDoc, error) {
		d.Count = 99
		return d, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update error = %v, want %v", err, boom)
	}
	if s.Exists() {
		t.Error("file should not be written when the mutator fails")
	}

	doc, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Count != 0 {
		t.Errorf("Count = %d, want 0 (mutation must not leak into the cache)", doc.Count)
	}
}

func TestUpdate_ValidatorRejectsResult(t *testing.T) {
	s := newTestStore(t, WithValidator(requireName))

	_, err := s.Update(context.Background(), func(d testDoc) (testDoc, error) {
		d.Name = ""
		return d, nil
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.Is(err, ErrCorrupt) {
		t.Errorf("rejected update should not be reported as corrupt: %v", err)
	}
	if s.Exists() {
		t.Error("invalid document must not be written")
	}
}

func TestRead_CorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is { not json"},
		{"empty file", ""},
		{"truncated", `{"name": "x", "count": `},
		{"null document", "null\n"},
		{"wrong shape", `["a", "b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			writeRaw(t, s.Path(), tt.content)

			_, err := s.Read(context.Background())
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Read error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestRead_ValidatorFailureIsCorrupt(t *testing.T) {
	s := newTestStore(t, WithValidator(requireName))
	writeRaw(t, s.Path(), `{"name": "", "count": 1}`)

	_, err := s.Read(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Read error = %v, want ErrCorrupt", err)
	}
}

func TestUpdate_CorruptFileIsLeftAlone(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s.Path(), "garbage")

	called := false
	_, err := s.Update(context.Background(), func(d testDoc) (testDoc, error) {
		called = true
		return d, nil
	})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Update error = %v, want ErrCorrupt", err)
	}
	if called {
		t.Error("mutator must not run against a corrupt document")
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "garbage" {
		t.Errorf("file content = %q, want it untouched", data)
	}
}

func TestRead_ReturnsIndependentCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first.Tags["leak"] = true
	first.Count = 42

	second, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := second.Tags["leak"]; ok {
		t.Error("mutating a returned document must not affect the store")
	}
	if second.Count != 0 {
		t.Errorf("Count = %d, want 0", second.Count)
	}
}

func TestReset_OverwritesCorruptFile(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s.Path(), "{{{{")

	doc, err := s.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if doc.Name != "default" {
		t.Errorf("Name = %q, want %q", doc.Name, "default")
	}

	reopened := New(s.Path(), newTestDoc)
	if _, err := reopened.Read(context.Background()); err != nil {
		t.Errorf("Read after Reset: %v", err)
	}
}

func TestReload_PicksUpFileChanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Read(ctx); err != nil {
		t.Fatal(err)
	}
	writeRaw(t, s.Path(), `{"name": "edited", "count": 3}`)

	doc, _ := s.Read(ctx)
	if doc.Name != "default" {
		t.Errorf("before Reload Name = %q, want cached %q", doc.Name, "default")
	}

	s.Reload()
	doc, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read after Reload: %v", err)
	}
	if doc.Name != "edited" || doc.Count != 3 {
		t.Errorf("after Reload doc = %+v, want name=edited count=3", doc)
	}
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Read error = %v, want context.Canceled", err)
	}
	if _, err := s.Update(ctx, func(d testDoc) (testDoc, error) { return d, nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Update error = %v, want context.Canceled", err)
	}
	if s.Exists() {
		t.Error("canceled Update must not write")
	}
}

func TestUpdate_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Update(ctx, func(d testDoc) (testDoc, error) {
			d.Count = i
			return d, nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "doc.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory entries = %v, want [doc.json]", names)
	}
}

type recordingObserver struct {
	mu   sync.Mutex
	ops  []Op
	errs []error
}

func (r *recordingObserver) Observe(op Op, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestStore(t, WithObserver[testDoc](obs))
	ctx := context.Background()

	s.Read(ctx)
	s.Update(ctx, func(d testDoc) (testDoc, error) { return d, nil })
	s.Reset(ctx)

	want := []Op{OpRead, OpUpdate, OpReset}
	if len(obs.ops) != len(want) {
		t.Fatalf("observed %v, want %v", obs.ops, want)
	}
	for i := range want {
		if obs.ops[i] != want[i] {
			t.Errorf("op[%d] = %q, want %q", i, obs.ops[i], want[i])
		}
		if obs.errs[i] != nil {
			t.Errorf("op[%d] err = %v, want nil", i, obs.errs[i])
		}
	}
}
