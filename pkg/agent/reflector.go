package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ReflectionEvaluator judges whether accumulated findings answer the
// question, and names the remaining knowledge gaps when they do not. It
// never sees the loop count; bounding is the controller's job.
type ReflectionEvaluator interface {
	Reflect(ctx context.Context, question string, results []ResearchResult) (Reflection, error)
}

// Reflector is the LLM-backed ReflectionEvaluator.
type Reflector struct {
	Model     llms.Model
	ModelName string
	Logger    *slog.Logger
}

// NewReflector builds a Reflector for the given model.
func NewReflector(model llms.Model, modelName string) *Reflector {
	return &Reflector{Model: model, ModelName: modelName, Logger: slog.Default()}
}

// Reflect evaluates the full result history. Failed queries appear as
// explicit failure lines so the model can steer follow-ups around them; a
// round where every query failed reads as "no new information" and yields
// an insufficient verdict with a retry-shaped gap.
func (r *Reflector) Reflect(ctx context.Context, question string, results []ResearchResult) (Reflection, error) {
	var input strings.Builder
	fmt.Fprintf(&input, "Research question: %s\n\nFindings:\n", question)
	if len(results) == 0 {
		input.WriteString("(none)\n")
	}
	for i, res := range results {
		if res.Failed() {
			fmt.Fprintf(&input, "%d. Query %q failed: %s\n\n", i+1, res.Query.Text, res.Err)
			continue
		}
		fmt.Fprintf(&input, "%d. Query: %s\n%s\n\n", i+1, res.Query.Text, res.Summary)
	}

	var parsed struct {
		IsSufficient    bool     `json:"is_sufficient"`
		KnowledgeGap    string   `json:"knowledge_gap"`
		FollowUpQueries []string `json:"follow_up_queries"`
	}

	_, err := generateJSON(ctx, r.Model, r.ModelName, r.logger(),
		reflectionSystemPrompt+"\n\n# Response Format:\n\n"+reflectionSchema,
		input.String(),
		func(content string) error {
			parsed.IsSufficient = false
			parsed.KnowledgeGap = ""
			parsed.FollowUpQueries = nil
			if err := json.Unmarshal([]byte(content), &parsed); err != nil {
				return fmt.Errorf("json parse error: %w (content: %s)", err, content)
			}
			return nil
		})
	if err != nil {
		return Reflection{}, err
	}

	gaps := make([]string, 0, len(parsed.FollowUpQueries)+1)
	for _, q := range parsed.FollowUpQueries {
		if q = strings.TrimSpace(q); q != "" {
			gaps = append(gaps, q)
		}
	}
	if len(gaps) == 0 && strings.TrimSpace(parsed.KnowledgeGap) != "" {
		gaps = append(gaps, strings.TrimSpace(parsed.KnowledgeGap))
	}

	r.logger().Info("Reflection complete", "sufficient", parsed.IsSufficient, "gaps", len(gaps))
	return Reflection{IsSufficient: parsed.IsSufficient, KnowledgeGaps: gaps}, nil
}

func (r *Reflector) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
