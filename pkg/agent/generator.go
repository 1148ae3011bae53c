package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// QueryGenerator turns a question, plus the knowledge gaps of earlier
// rounds, into a batch of deduplicated search queries. Pure with respect to
// run state.
type QueryGenerator interface {
	Generate(ctx context.Context, question string, gaps []string, previous []string, count int) ([]Query, error)
}

// Generator is the LLM-backed QueryGenerator.
type Generator struct {
	Model     llms.Model
	ModelName string
	Logger    *slog.Logger
}

// NewGenerator builds a Generator for the given model.
func NewGenerator(model llms.Model, modelName string) *Generator {
	return &Generator{Model: model, ModelName: modelName, Logger: slog.Default()}
}

// Generate asks the model for count queries. On the first round gaps is
// empty and the queries cover the question broadly; on later rounds the
// gaps drive targeted follow-ups. Queries whose text matches an entry in
// previous are discarded. Fails when no usable query remains.
func (g *Generator) Generate(ctx context.Context, question string, gaps []string, previous []string, count int) ([]Query, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: query count must be >= 1", ErrGenerationFailed)
	}

	var input strings.Builder
	fmt.Fprintf(&input, "Research question: %s\n", question)
	fmt.Fprintf(&input, "Number of queries to generate: %d\n", count)
	if len(gaps) > 0 {
		input.WriteString("\nKnowledge gaps to close:\n")
		for _, gap := range gaps {
			fmt.Fprintf(&input, "- %s\n", gap)
		}
	}
	if len(previous) > 0 {
		input.WriteString("\nAlready researched (do not repeat):\n")
		for _, q := range previous {
			fmt.Fprintf(&input, "- %s\n", q)
		}
	}

	var parsed struct {
		Queries []rawQuery `json:"queries"`
	}

	_, err := generateJSON(ctx, g.Model, g.ModelName, g.logger(),
		queryWriterSystemPrompt+"\n\n# Response Format:\n\n"+queryWriterSchema,
		input.String(),
		func(content string) error {
			parsed.Queries = nil
			if err := json.Unmarshal([]byte(content), &parsed); err != nil {
				return fmt.Errorf("json parse error: %w (content: %s)", err, content)
			}
			if len(parsed.Queries) == 0 {
				return fmt.Errorf("empty queries list")
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	queries := dedupeQueries(parsed.Queries, previous, count)
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: model produced no new queries", ErrGenerationFailed)
	}

	g.logger().Info("Generated queries", "count", len(queries))
	return queries, nil
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// rawQuery is the wire shape of one generated query.
type rawQuery struct {
	Query     string `json:"query"`
	Rationale string `json:"rationale"`
}

// dedupeQueries drops blanks, duplicates within the batch, and anything
// already researched, keeping at most count entries in model order.
func dedupeQueries(items []rawQuery, previous []string, count int) []Query {
	seen := make(map[string]bool, len(items)+len(previous))
	for _, p := range previous {
		seen[normalizeQueryText(p)] = true
	}

	queries := make([]Query, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Query)
		key := normalizeQueryText(text)
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, Query{Text: text, Rationale: strings.TrimSpace(item.Rationale)})
		if len(queries) >= count {
			break
		}
	}
	return queries
}

func normalizeQueryText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
