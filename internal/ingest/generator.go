package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-study/internal/ai"
)

// QuestionPrompt asks for ten questions in the format Parse reads.
const QuestionPrompt = "Can you generate 10 MCQ based questions on this document? " +
	"Please format each question exactly as follows:\n\n" +
	"Q: [question text]\nA: [correct answer text]\n" +
	"W1: [wrong answer 1 text]\nW2: [wrong answer 2 text]\nW3: [wrong answer 3 text]"

// ErrGeneration wraps failures of the completion backend.
var ErrGeneration = errors.New("question generation failed")

// Generator asks a completion backend to write questions about a document.
type Generator struct {
	completer ai.Completer
	model     string
}

// NewGenerator creates a generator. An empty model leaves the choice to the
// provider.
func NewGenerator(completer ai.Completer, model string) *Generator {
	return &Generator{completer: completer, model: model}
}

// Generate returns the raw marker-formatted completion for the document.
func (g *Generator) Generate(ctx context.Context, document string) (string, error) {
	resp, err := g.completer.Complete(ctx, ai.CompletionRequest{
		Model: g.model,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: QuestionPrompt},
			{Role: ai.RoleUser, Content: document},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return resp.Content, nil
}
