// Package course defines the study records: courses, question sets and
// multiple-choice questions.
package course

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// MaxIDLength bounds every record id; sized for a canonical UUID string.
const MaxIDLength = 36

var (
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateName  = errors.New("duplicate name")
	ErrCourseNotFound = errors.New("course not found")
)

// Question is a multiple-choice question with one correct answer.
type Question struct {
	Text          string   `json:"question"`
	CorrectAnswer string   `json:"correctAnswer"`
	WrongAnswers  []string `json:"wrongAnswers"`
}

// QuestionSet is a named, ordered group of questions produced by one ingestion.
type QuestionSet struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Course is a named, colored container of question sets.
type Course struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Color        string        `json:"color"`
	Description  string        `json:"description"`
	QuestionSets []QuestionSet `json:"questionSets"`
}

// NewCourse returns a course with a fresh id, no description and no sets.
func NewCourse(name, color string) Course {
	return Course{
		ID:           uuid.NewString(),
		Name:         name,
		Color:        color,
		QuestionSets: []QuestionSet{},
	}
}

// Validate reports whether the question is complete: a non-empty correct
// answer that does not reappear among the wrong answers.
func (q Question) Validate() error {
	if q.CorrectAnswer == "" {
		return fmt.Errorf("%w: correct answer is empty", ErrValidation)
	}
	if slices.Contains(q.WrongAnswers, q.CorrectAnswer) {
		return fmt.Errorf("%w: correct answer %q listed as wrong", ErrValidation, q.CorrectAnswer)
	}
	return nil
}

// Clone returns a deep copy. Nil slices come back empty so the copy always
// satisfies the persisted schema.
func (q Question) Clone() Question {
	q.WrongAnswers = cloneStrings(q.WrongAnswers)
	return q
}

// Clone returns a deep copy of the set.
func (s QuestionSet) Clone() QuestionSet {
	s.Questions = cloneQuestions(s.Questions)
	return s
}

// Clone returns a deep copy of the course. Records read back from a store are
// treated as read-only; callers mutate a clone and submit it as an update.
func (c Course) Clone() Course {
	sets := make([]QuestionSet, len(c.QuestionSets))
	for i, s := range c.QuestionSets {
		sets[i] = s.Clone()
	}
	c.QuestionSets = sets
	return c
}

// AddQuestionSet appends a new set with a fresh id and returns it.
func (c *Course) AddQuestionSet(name string, questions []Question) QuestionSet {
	set := QuestionSet{
		ID:        uuid.NewString(),
		Name:      name,
		Questions: cloneQuestions(questions),
	}
	c.QuestionSets = append(c.QuestionSets, set)
	return set.Clone()
}

// SetByName returns the index of the set with exactly this name, or -1.
func (c Course) SetByName(name string) int {
	return slices.IndexFunc(c.QuestionSets, func(s QuestionSet) bool { return s.Name == name })
}

// NextSetName is the default name for the next ingested set, numbered by the
// sets already on this course.
func (c Course) NextSetName() string {
	return fmt.Sprintf("Question Set %d", len(c.QuestionSets)+1)
}

// CloneAll deep-copies a collection of courses.
func CloneAll(courses []Course) []Course {
	out := make([]Course, len(courses))
	for i, c := range courses {
		out[i] = c.Clone()
	}
	return out
}

func cloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
