// Package store is the durable, schema-validated course collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/platform/keylock"
)

// Store persists courses in a Backend. Every operation initializes the
// backend on first use; writes are validated against the course schema and
// serialized per course id.
type Store struct {
	backend Backend
	init    singleflight.Group
	ready   atomic.Bool
	locks   *keylock.Locker
}

// New creates a store over the given backend. Nothing is opened until the
// first Initialize or operation.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		locks:   keylock.New(),
	}
}

// Initialize opens the backend once. Concurrent callers share the same
// in-flight setup and observe the same outcome; after a failure the next call
// starts over. Setup is not cancelled when the caller's context is.
func (s *Store) Initialize(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	_, err, _ := s.init.Do("initialize", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		if err := s.backend.Open(context.WithoutCancel(ctx)); err != nil {
			if cerr := s.backend.Close(); cerr != nil {
				slog.Warn("closing backend after failed setup", "error", cerr)
			}
			slog.Error("course store initialization failed", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		s.ready.Store(true)
		slog.Info("course store ready")
		return nil, nil
	})
	return err
}

// Ready reports whether the backend has been initialized.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Insert adds a new course. It fails with ErrDuplicateKey if the id exists and
// with ErrSchemaViolation if the document is malformed.
func (s *Store) Insert(ctx context.Context, c course.Course) error {
	doc, err := encode(c)
	if err != nil {
		return err
	}
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	unlock := s.locks.Lock(c.ID)
	defer unlock()

	if err := s.backend.Insert(ctx, c.ID, doc); err != nil {
		return fmt.Errorf("insert course %s: %w", c.ID, err)
	}
	return nil
}

// FindByID returns the course and true, or false when no record exists.
func (s *Store) FindByID(ctx context.Context, id string) (course.Course, bool, error) {
	if err := s.Initialize(ctx); err != nil {
		return course.Course{}, false, err
	}

	doc, err := s.backend.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return course.Course{}, false, nil
	}
	if err != nil {
		return course.Course{}, false, err
	}

	c, err := decode(doc)
	if err != nil {
		return course.Course{}, false, fmt.Errorf("decode course %s: %w", id, err)
	}
	return c, true, nil
}

// FindAll returns every stored course. Documents that no longer decode are
// logged and skipped.
func (s *Store) FindAll(ctx context.Context) ([]course.Course, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	docs, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	courses := make([]course.Course, 0, len(docs))
	for _, doc := range docs {
		c, err := decode(doc)
		if err != nil {
			slog.Warn("skipping undecodable course document", "error", err)
			continue
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// UpsertOrPatch inserts the course if its id is new, otherwise overwrites the
// stored document with it. Calls for the same id are serialized.
func (s *Store) UpsertOrPatch(ctx context.Context, c course.Course) (course.Course, error) {
	c = c.Clone()
	doc, err := encode(c)
	if err != nil {
		return course.Course{}, err
	}
	if err := s.Initialize(ctx); err != nil {
		return course.Course{}, err
	}

	unlock := s.locks.Lock(c.ID)
	defer unlock()

	_, err = s.backend.Get(ctx, c.ID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		err = s.backend.Insert(ctx, c.ID, doc)
	case err == nil:
		err = s.backend.Put(ctx, c.ID, doc)
	}
	if err != nil {
		return course.Course{}, fmt.Errorf("upsert course %s: %w", c.ID, err)
	}
	return c, nil
}

// HealthCheck fails until the store is initialized, then pings backends that
// support it.
func (s *Store) HealthCheck(ctx context.Context) error {
	if !s.ready.Load() {
		return fmt.Errorf("%w: not initialized", ErrStoreUnavailable)
	}
	if hc, ok := s.backend.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Close releases the backend. A later operation initializes it again.
func (s *Store) Close() error {
	s.ready.Store(false)
	return s.backend.Close()
}

func encode(c course.Course) ([]byte, error) {
	doc, err := json.Marshal(c.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode course: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, fmt.Errorf("course %q: %w", c.ID, err)
	}
	return doc, nil
}

func decode(doc []byte) (course.Course, error) {
	var c course.Course
	if err := json.Unmarshal(doc, &c); err != nil {
		return course.Course{}, err
	}
	return c.Clone(), nil
}
