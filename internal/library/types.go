package library

import (
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-study/internal/course"
)

// Entry is a course definition loaded from YAML.
type Entry struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Color        string     `yaml:"color"`
	Description  string     `yaml:"description"`
	QuestionSets []SetEntry `yaml:"question_sets"`

	path string
}

// SetEntry is a named question set within an Entry.
type SetEntry struct {
	Name      string          `yaml:"name"`
	Questions []QuestionEntry `yaml:"questions"`
}

// QuestionEntry is a single multiple-choice question.
type QuestionEntry struct {
	Question      string   `yaml:"question"`
	CorrectAnswer string   `yaml:"correct_answer"`
	WrongAnswers  []string `yaml:"wrong_answers"`
}

// Path returns the file the entry was loaded from.
func (e Entry) Path() string {
	return e.path
}

// Course converts the entry to a course record. Entries without an id get a
// fresh one; sets always get fresh ids and unnamed sets are numbered.
func (e Entry) Course() course.Course {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := course.Course{
		ID:           id,
		Name:         e.Name,
		Color:        e.Color,
		Description:  e.Description,
		QuestionSets: []course.QuestionSet{},
	}
	for _, s := range e.QuestionSets {
		name := s.Name
		if name == "" {
			name = c.NextSetName()
		}
		qs := make([]course.Question, 0, len(s.Questions))
		for _, q := range s.Questions {
			qs = append(qs, course.Question{
				Text:          q.Question,
				CorrectAnswer: q.CorrectAnswer,
				WrongAnswers:  q.WrongAnswers,
			})
		}
		c.AddQuestionSet(name, qs)
	}
	return c
}
