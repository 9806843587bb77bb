//go:build cucumber

package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/cucumber/godog"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/quiz"
)

// TestQuizScenarios runs the quiz feature scenarios.
func TestQuizScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "quiz",
		ScenarioInitializer: initializeQuizScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{"features"},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

func initializeQuizScenario(ctx *godog.ScenarioContext) {
	state := &quizScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a question set with questions:$`, state.givenQuestionSet)
	ctx.Step(`^I start the quiz$`, state.whenIStartTheQuiz)
	ctx.Step(`^I answer question (\d+) with "([^"]*)"$`, state.whenIAnswer)
	ctx.Step(`^I reset the quiz$`, state.whenIReset)
	ctx.Step(`^the score is (\d+)$`, state.thenScoreIs)
	ctx.Step(`^the quiz is complete$`, state.thenComplete)
	ctx.Step(`^the quiz is not complete$`, state.thenNotComplete)
	ctx.Step(`^the last answer is rejected as already answered$`, state.thenAlreadyAnswered)
	ctx.Step(`^the options are in the same order as before$`, state.thenSameOrder)
}

// quizScenarioState holds one scenario's quiz attempt.
type quizScenarioState struct {
	set     course.QuestionSet
	session *quiz.Session
	started []quiz.Item
	lastErr error
}

func (s *quizScenarioState) reset() {
	s.set = course.QuestionSet{}
	s.session = quiz.NewSession(rand.New(rand.NewPCG(7, 11)))
	s.started = nil
	s.lastErr = nil
}

func (s *quizScenarioState) givenQuestionSet(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 5 {
			return fmt.Errorf("expected 5 columns, got %d", len(row.Cells))
		}
		s.set.Questions = append(s.set.Questions, course.Question{
			Text:          row.Cells[0].Value,
			CorrectAnswer: row.Cells[1].Value,
			WrongAnswers:  []string{row.Cells[2].Value, row.Cells[3].Value, row.Cells[4].Value},
		})
	}
	return nil
}

func (s *quizScenarioState) whenIStartTheQuiz() error {
	s.session.Start(s.set)
	s.started = s.session.Items()
	return nil
}

func (s *quizScenarioState) whenIAnswer(number int, text string) error {
	item, err := s.session.Item(number - 1)
	if err != nil {
		return err
	}
	idx := slices.Index(item.Options, text)
	if idx < 0 {
		return fmt.Errorf("option %q not offered for question %d", text, number)
	}
	_, s.lastErr = s.session.Answer(number-1, idx)
	return nil
}

func (s *quizScenarioState) whenIReset() error {
	s.session.Reset()
	return nil
}

func (s *quizScenarioState) thenScoreIs(want int) error {
	if got := s.session.Score(); got != want {
		return fmt.Errorf("score = %d, want %d", got, want)
	}
	return nil
}

func (s *quizScenarioState) thenComplete() error {
	if !s.session.IsComplete() {
		return fmt.Errorf("quiz is not complete")
	}
	return nil
}

func (s *quizScenarioState) thenNotComplete() error {
	if s.session.IsComplete() {
		return fmt.Errorf("quiz is complete")
	}
	return nil
}

func (s *quizScenarioState) thenAlreadyAnswered() error {
	if !errors.Is(s.lastErr, quiz.ErrAlreadyAnswered) {
		return fmt.Errorf("last error = %v, want already answered", s.lastErr)
	}
	return nil
}

func (s *quizScenarioState) thenSameOrder() error {
	now := s.session.Items()
	for i := range s.started {
		if !slices.Equal(s.started[i].Options, now[i].Options) {
			return fmt.Errorf("question %d options = %v, want %v", i+1, now[i].Options, s.started[i].Options)
		}
	}
	return nil
}
