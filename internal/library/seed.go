package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/store"
)

// Target is the course collection seeded from the library. Add must reject a
// course whose name or id is already taken, checking and writing atomically.
type Target interface {
	Add(ctx context.Context, c course.Course) (course.Course, error)
}

// Seed adds every entry whose name and id are both free and returns how many
// were added. A failed write does not stop the remaining entries; all
// failures are returned together.
func Seed(ctx context.Context, target Target, entries []Entry) (int, error) {
	var added int
	var errs []error
	for _, e := range entries {
		c := e.Course()
		_, err := target.Add(ctx, c)
		switch {
		case errors.Is(err, course.ErrDuplicateName), errors.Is(err, store.ErrDuplicateKey):
			slog.Debug("library course already present", "name", e.Name, "course_id", c.ID)
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("seed %s: %w", e.path, err))
			continue
		}
		added++
	}

	if added > 0 {
		slog.Info("library courses seeded", "added", added)
	}
	return added, errors.Join(errs...)
}
