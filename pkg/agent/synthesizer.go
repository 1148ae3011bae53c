package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// AnswerSynthesizer produces the final cited answer once the controller
// decides to stop.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, results []ResearchResult, sources []Source) (FinalAnswer, error)
}

// Synthesizer is the LLM-backed AnswerSynthesizer.
type Synthesizer struct {
	Model     llms.Model
	ModelName string
	Logger    *slog.Logger
}

// NewSynthesizer builds a Synthesizer for the given model.
func NewSynthesizer(model llms.Model, modelName string) *Synthesizer {
	return &Synthesizer{Model: model, ModelName: modelName, Logger: slog.Default()}
}

// Synthesize writes the final answer from the successful findings. The
// cited ids are the sources the findings actually used, in first-use order;
// they are always a subset of the run's gathered sources. A model error
// maps to ErrSynthesisFailed so the controller can degrade instead of
// aborting.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results []ResearchResult, sources []Source) (FinalAnswer, error) {
	byID := make(map[string]Source, len(sources))
	for _, src := range sources {
		byID[src.ID] = src
	}

	citedIDs := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))

	var input strings.Builder
	fmt.Fprintf(&input, "Research question: %s\n\nFindings:\n", question)
	hasFindings := false
	for _, res := range results {
		if res.Failed() {
			continue
		}
		hasFindings = true
		fmt.Fprintf(&input, "Query: %s\n%s\n\n", res.Query.Text, res.Summary)
		for _, id := range res.SourceIDs {
			if !seen[id] {
				seen[id] = true
				citedIDs = append(citedIDs, id)
			}
		}
	}
	if !hasFindings {
		input.WriteString("(no findings were gathered)\n")
	}

	input.WriteString("Sources:\n")
	for _, id := range citedIDs {
		src := byID[id]
		fmt.Fprintf(&input, "[%s] %s — %s\n", src.ID, src.Title, src.URL)
	}

	text, err := generateText(ctx, s.Model, s.ModelName, answerSystemPrompt, input.String())
	if err != nil {
		return FinalAnswer{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	s.logger().Info("Final answer synthesized", "length", len(text), "citations", len(citedIDs))
	return FinalAnswer{Text: text, CitedSourceIDs: citedIDs}, nil
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
