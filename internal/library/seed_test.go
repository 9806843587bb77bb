package library_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/courses"
	"github.com/p-n-ai/pai-study/internal/library"
	"github.com/p-n-ai/pai-study/internal/store"
)

func newTarget(t *testing.T) *courses.Cache {
	t.Helper()
	cache := courses.New(courses.Config{Store: store.New(store.NewMemoryBackend())})
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return cache
}

func TestSeed(t *testing.T) {
	loader, err := library.NewLoader(setupLibrary(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	cache := newTarget(t)
	ctx := context.Background()

	added, err := library.Seed(ctx, cache, loader.Entries())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if added != 2 {
		t.Errorf("Seed() added = %d, want 2", added)
	}

	lk := cache.GetByID(ctx, "algebra-f1")
	if lk.Source != courses.SourceDurable {
		t.Errorf("Source = %v, want durable", lk.Source)
	}
	if len(lk.Course.QuestionSets) != 2 {
		t.Errorf("QuestionSets = %d, want 2", len(lk.Course.QuestionSets))
	}

	// Seeding again adds nothing.
	added, err = library.Seed(ctx, cache, loader.Entries())
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if added != 0 {
		t.Errorf("second Seed() added = %d, want 0", added)
	}
	if got := len(cache.Courses()); got != 2 {
		t.Errorf("Courses() = %d, want 2", got)
	}
}

func TestSeed_SkipsExistingName(t *testing.T) {
	loader, err := library.NewLoader(setupLibrary(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	cache := newTarget(t)
	ctx := context.Background()

	if _, err := cache.Create(ctx, "Biology", "#000"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cache.Wait()

	added, err := library.Seed(ctx, cache, loader.Entries())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if added != 1 {
		t.Errorf("Seed() added = %d, want 1", added)
	}
	if got := len(cache.Courses()); got != 2 {
		t.Errorf("Courses() = %d, want 2", got)
	}
}

func TestSeed_ReportsRejectedEntries(t *testing.T) {
	dir := setupLibrary(t)
	writeFile(t, filepath.Join(dir, "bad-id.yaml"), "id: "+strings.Repeat("x", 40)+"\nname: Chemistry\ncolor: \"#f0f\"\n")

	loader, err := library.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	cache := newTarget(t)

	added, err := library.Seed(context.Background(), cache, loader.Entries())
	if !errors.Is(err, store.ErrSchemaViolation) {
		t.Errorf("Seed() error = %v, want ErrSchemaViolation", err)
	}
	if added != 2 {
		t.Errorf("Seed() added = %d, want 2", added)
	}
}

func TestSeed_SkipsExistingID(t *testing.T) {
	loader, err := library.NewLoader(setupLibrary(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	cache := newTarget(t)
	ctx := context.Background()

	// Same id as the algebra entry, different name.
	taken := course.NewCourse("Geometry", "#abc")
	taken.ID = "algebra-f1"
	if _, err := cache.Update(ctx, taken); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	added, err := library.Seed(ctx, cache, loader.Entries())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if added != 1 {
		t.Errorf("Seed() added = %d, want 1", added)
	}

	lk := cache.GetByID(ctx, "algebra-f1")
	if lk.Course.Name != "Geometry" || len(lk.Course.QuestionSets) != 0 {
		t.Errorf("course algebra-f1 = %+v, want untouched Geometry", lk.Course)
	}
}
