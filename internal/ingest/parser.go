// Package ingest turns marker-formatted text into question sets and merges
// them into courses.
package ingest

import (
	"strings"

	"github.com/p-n-ai/pai-study/internal/course"
)

const (
	markerQuestion = "Q:"
	markerAnswer   = "A:"
)

var wrongMarkers = []string{"W1:", "W2:", "W3:"}

// Parse reads questions from newline-delimited text in one forward pass.
//
//	Q: question text
//	A: correct answer
//	W1: wrong answer
//	W2: wrong answer
//	W3: wrong answer
//
// Markers are case-sensitive and must start the line. A and W lines before
// the first Q are ignored, as is any other line. Field text is the rest of
// the line with surrounding whitespace trimmed and is otherwise kept byte for
// byte. Questions are emitted as found; completeness is not checked.
func Parse(text string) []course.Question {
	questions := []course.Question{}
	var current *course.Question

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimRight(line, "\r")

		switch {
		case strings.HasPrefix(line, markerQuestion):
			if current != nil {
				questions = append(questions, *current)
			}
			current = &course.Question{
				Text:         strings.TrimSpace(line[len(markerQuestion):]),
				WrongAnswers: []string{},
			}
		case strings.HasPrefix(line, markerAnswer):
			if current != nil {
				current.CorrectAnswer = strings.TrimSpace(line[len(markerAnswer):])
			}
		case isWrongAnswer(line):
			if current != nil {
				_, rest, _ := strings.Cut(line, ":")
				current.WrongAnswers = append(current.WrongAnswers, strings.TrimSpace(rest))
			}
		}
	}

	if current != nil {
		questions = append(questions, *current)
	}
	return questions
}

func isWrongAnswer(line string) bool {
	for _, m := range wrongMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}
