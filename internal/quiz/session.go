// Package quiz replays a question set as a scored multiple-choice quiz.
package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/p-n-ai/pai-study/internal/course"
)

var (
	ErrOutOfRange      = errors.New("index out of range")
	ErrAlreadyAnswered = errors.New("question already answered")
)

// State is the per-question progress within one attempt.
type State int

const (
	Unanswered State = iota
	Correct
	Incorrect
)

func (s State) String() string {
	switch s {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

// Answered reports whether the question has been answered.
func (s State) Answered() bool {
	return s != Unanswered
}

// Item is one question as presented: its options in shuffled order.
type Item struct {
	Question string
	Options  []string
	State    State
	Chosen   int // -1 until answered

	correct string
}

// Summary is the aggregate outcome of an attempt.
type Summary struct {
	Score    int     `json:"score"`
	Total    int     `json:"total"`
	Answered int     `json:"answered"`
	Percent  float64 `json:"percent"`
}

// Session is a single quiz attempt. It is not safe for concurrent use.
type Session struct {
	rng   *rand.Rand
	items []Item
	score int
}

// NewSession creates a session. A nil rng uses a randomly seeded source.
func NewSession(rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Session{rng: rng}
}

// Start builds a fresh attempt over the set. Each question's options are its
// wrong answers plus the correct answer, uniformly shuffled. Questions are
// taken as given: one whose correct answer also appears among its wrong
// answers (see course.Question.Validate) shows that option twice.
func (s *Session) Start(set course.QuestionSet) {
	s.items = make([]Item, len(set.Questions))
	for i, q := range set.Questions {
		options := make([]string, 0, len(q.WrongAnswers)+1)
		options = append(options, q.WrongAnswers...)
		options = append(options, q.CorrectAnswer)
		s.shuffle(options)

		s.items[i] = Item{
			Question: q.Text,
			Options:  options,
			Chosen:   -1,
			correct:  q.CorrectAnswer,
		}
	}
	s.score = 0
}

// shuffle is a Fisher-Yates shuffle.
func (s *Session) shuffle(options []string) {
	for i := len(options) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		options[i], options[j] = options[j], options[i]
	}
}

// Answer records the chosen option for a question and reports whether it was
// correct. The first answer to a question is final until Reset.
func (s *Session) Answer(question, option int) (bool, error) {
	if question < 0 || question >= len(s.items) {
		return false, fmt.Errorf("%w: question %d of %d", ErrOutOfRange, question, len(s.items))
	}
	item := &s.items[question]
	if option < 0 || option >= len(item.Options) {
		return false, fmt.Errorf("%w: option %d of %d", ErrOutOfRange, option, len(item.Options))
	}
	if item.State.Answered() {
		return false, fmt.Errorf("%w: question %d", ErrAlreadyAnswered, question)
	}

	item.Chosen = option
	if item.Options[option] == item.correct {
		item.State = Correct
		s.score++
		return true, nil
	}
	item.State = Incorrect
	return false, nil
}

// IsComplete reports whether every question has been answered. An empty
// quiz is complete.
func (s *Session) IsComplete() bool {
	return !slices.ContainsFunc(s.items, func(it Item) bool { return !it.State.Answered() })
}

// Reset clears all answers and the score, keeping the option order.
func (s *Session) Reset() {
	for i := range s.items {
		s.items[i].State = Unanswered
		s.items[i].Chosen = -1
	}
	s.score = 0
}

// Score returns the number of correct answers so far.
func (s *Session) Score() int {
	return s.score
}

// Len returns the number of questions.
func (s *Session) Len() int {
	return len(s.items)
}

// Item returns a copy of the i-th presented question.
func (s *Session) Item(i int) (Item, error) {
	if i < 0 || i >= len(s.items) {
		return Item{}, fmt.Errorf("%w: question %d of %d", ErrOutOfRange, i, len(s.items))
	}
	return cloneItem(s.items[i]), nil
}

// Items returns copies of all presented questions in order.
func (s *Session) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = cloneItem(it)
	}
	return out
}

// Summary returns the aggregate outcome so far.
func (s *Session) Summary() Summary {
	sum := Summary{Score: s.score, Total: len(s.items)}
	for _, it := range s.items {
		if it.State.Answered() {
			sum.Answered++
		}
	}
	if sum.Total > 0 {
		sum.Percent = float64(sum.Score) * 100 / float64(sum.Total)
	}
	return sum
}

func cloneItem(it Item) Item {
	it.Options = slices.Clone(it.Options)
	return it
}
