package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/research-agent/pkg/search"
)

// WebResearcher executes one query against a search backend and returns
// structured findings. Discovered sources are registered through the shared
// run registry, which keeps source ids stable across queries and rounds.
type WebResearcher interface {
	Research(ctx context.Context, query Query, registry *SourceRegistry) (ResearchResult, error)
}

// Researcher is the search-plus-summarize WebResearcher.
type Researcher struct {
	Provider   search.Provider
	Model      llms.Model
	ModelName  string
	MaxSources int
	Logger     *slog.Logger
}

// NewResearcher builds a Researcher over the given search backend.
func NewResearcher(provider search.Provider, model llms.Model, modelName string, maxSources int) *Researcher {
	if maxSources <= 0 {
		maxSources = defaultMaxSourcesPerQuery
	}
	return &Researcher{
		Provider:   provider,
		Model:      model,
		ModelName:  modelName,
		MaxSources: maxSources,
		Logger:     slog.Default(),
	}
}

// Research runs the query, registers its sources, and summarizes the hits.
// A backend error maps to ErrResearchFailed and zero hits to
// ErrEmptyResults; the caller records either as an empty result rather than
// aborting the round.
func (r *Researcher) Research(ctx context.Context, query Query, registry *SourceRegistry) (ResearchResult, error) {
	hits, err := r.Provider.Search(ctx, query.Text)
	if err != nil {
		return ResearchResult{}, fmt.Errorf("%w: %v", ErrResearchFailed, err)
	}
	if len(hits) == 0 {
		return ResearchResult{}, fmt.Errorf("%w for query %q", ErrEmptyResults, query.Text)
	}
	if len(hits) > r.MaxSources {
		hits = hits[:r.MaxSources]
	}

	sourceIDs := make([]string, 0, len(hits))
	var findings strings.Builder
	for _, hit := range hits {
		src := registry.Register(hit.URL, hit.Title)
		sourceIDs = append(sourceIDs, src.ID)
		fmt.Fprintf(&findings, "[%s] %s\nURL: %s\n%s\n\n", src.ID, hit.Title, hit.URL, hit.Snippet)
	}

	summary, err := generateText(ctx, r.Model, r.ModelName,
		summarizerSystemPrompt,
		fmt.Sprintf("Query: %s\n\nSearch results:\n%s", query.Text, findings.String()))
	if err != nil {
		// The sources are already gathered; fall back to the raw snippets
		// instead of failing the query.
		r.logger().Warn("Summarization failed, using raw snippets", "query", query.Text, "error", err)
		summary = findings.String()
	}

	r.logger().Info("Research complete", "query", query.Text, "sources", len(sourceIDs))
	return ResearchResult{Query: query, Summary: summary, SourceIDs: sourceIDs}, nil
}

func (r *Researcher) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
