package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/courses"
	"github.com/p-n-ai/pai-study/internal/platform/keylock"
)

var (
	// ErrNoQuestions is returned by IngestDocument when the generated text
	// holds no usable questions.
	ErrNoQuestions = errors.New("no questions to add")
	// ErrNoGenerator is returned by IngestDocument when no completion backend
	// is configured.
	ErrNoGenerator = errors.New("no question generator configured")
)

// Catalog is the course collection the ingester reads and writes.
type Catalog interface {
	GetByID(ctx context.Context, id string) courses.Lookup
	Update(ctx context.Context, c course.Course) (course.Course, error)
}

// Ingester merges parsed questions into courses. Ingests for the same course
// are applied one at a time.
type Ingester struct {
	catalog   Catalog
	generator *Generator
	locks     *keylock.Locker
}

// NewIngester creates an ingester. generator may be nil, in which case
// IngestDocument is unavailable.
func NewIngester(catalog Catalog, generator *Generator) *Ingester {
	return &Ingester{
		catalog:   catalog,
		generator: generator,
		locks:     keylock.New(),
	}
}

// Ingest parses raw and adds the result to the course as a new set named
// "Question Set N+1". Text without questions still creates an empty set.
// On failure the course is unchanged.
func (i *Ingester) Ingest(ctx context.Context, courseID, raw string) (course.QuestionSet, error) {
	return i.addSet(ctx, courseID, Parse(raw))
}

// AppendToNamedSet appends questions to the set with exactly this name,
// creating it first if the course has none.
func (i *Ingester) AppendToNamedSet(ctx context.Context, courseID, setName string, questions []course.Question) (course.QuestionSet, error) {
	if setName == "" {
		return course.QuestionSet{}, fmt.Errorf("%w: question set name is required", course.ErrValidation)
	}

	unlock := i.locks.Lock(courseID)
	defer unlock()

	c, err := i.load(ctx, courseID)
	if err != nil {
		return course.QuestionSet{}, err
	}

	var set course.QuestionSet
	if idx := c.SetByName(setName); idx >= 0 {
		for _, q := range questions {
			c.QuestionSets[idx].Questions = append(c.QuestionSets[idx].Questions, q.Clone())
		}
		set = c.QuestionSets[idx].Clone()
	} else {
		set = c.AddQuestionSet(setName, questions)
	}

	if _, err := i.catalog.Update(ctx, c); err != nil {
		return course.QuestionSet{}, fmt.Errorf("append to question set %q: %w", setName, err)
	}

	slog.Info("questions appended", "course_id", courseID, "set", setName, "added", len(questions))
	return set, nil
}

// IngestDocument asks the generator for questions about document and ingests
// them as a new set. Generated questions that fail Question.Validate are
// dropped.
func (i *Ingester) IngestDocument(ctx context.Context, courseID, document string) (course.QuestionSet, error) {
	if i.generator == nil {
		return course.QuestionSet{}, ErrNoGenerator
	}

	raw, err := i.generator.Generate(ctx, document)
	if err != nil {
		return course.QuestionSet{}, err
	}

	parsed := Parse(raw)
	questions := make([]course.Question, 0, len(parsed))
	for _, q := range parsed {
		if err := q.Validate(); err != nil {
			slog.Warn("dropping generated question", "course_id", courseID, "question", q.Text, "error", err)
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return course.QuestionSet{}, ErrNoQuestions
	}
	return i.addSet(ctx, courseID, questions)
}

func (i *Ingester) addSet(ctx context.Context, courseID string, questions []course.Question) (course.QuestionSet, error) {
	unlock := i.locks.Lock(courseID)
	defer unlock()

	c, err := i.load(ctx, courseID)
	if err != nil {
		return course.QuestionSet{}, err
	}

	set := c.AddQuestionSet(c.NextSetName(), questions)
	if _, err := i.catalog.Update(ctx, c); err != nil {
		return course.QuestionSet{}, fmt.Errorf("ingest into course %s: %w", courseID, err)
	}

	slog.Info("question set ingested",
		"course_id", courseID,
		"set", set.Name,
		"questions", len(set.Questions),
	)
	return set, nil
}

// load returns a private copy of the course.
func (i *Ingester) load(ctx context.Context, courseID string) (course.Course, error) {
	lk := i.catalog.GetByID(ctx, courseID)
	if !lk.Found() {
		return course.Course{}, fmt.Errorf("%w: %s", course.ErrCourseNotFound, courseID)
	}
	return lk.Course.Clone(), nil
}
