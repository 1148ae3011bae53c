package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mikeboe/research-agent/pkg/search"
)

type funcProvider func(ctx context.Context, query string) ([]search.Result, error)

func (f funcProvider) Search(ctx context.Context, query string) ([]search.Result, error) {
	return f(ctx, query)
}

func staticProvider(results ...search.Result) funcProvider {
	return func(_ context.Context, _ string) ([]search.Result, error) {
		return results, nil
	}
}

func TestResearcherRegistersSourcesAndSummarizes(t *testing.T) {
	provider := staticProvider(
		search.Result{Title: "Doc A", URL: "https://a.com", Snippet: "about a"},
		search.Result{Title: "Doc B", URL: "https://b.com", Snippet: "about b"},
	)
	llm := &scriptedLLM{responses: []string{"summary of a and b"}}
	r := NewResearcher(provider, llm, "test-model", 5)

	registry := NewSourceRegistry()
	result, err := r.Research(context.Background(), Query{Text: "topic"}, registry)
	if err != nil {
		t.Fatalf("Research: %v", err)
	}

	if result.Summary != "summary of a and b" {
		t.Errorf("summary = %q", result.Summary)
	}
	if len(result.SourceIDs) != 2 {
		t.Fatalf("source ids = %v, want 2", result.SourceIDs)
	}
	if registry.Len() != 2 {
		t.Errorf("registry len = %d, want 2", registry.Len())
	}
	known := map[string]bool{}
	for _, src := range registry.All() {
		known[src.ID] = true
	}
	for _, id := range result.SourceIDs {
		if !known[id] {
			t.Errorf("result cites %s which the registry does not hold", id)
		}
	}
}

func TestResearcherBackendError(t *testing.T) {
	provider := funcProvider(func(_ context.Context, _ string) ([]search.Result, error) {
		return nil, errors.New("backend down")
	})
	r := NewResearcher(provider, &scriptedLLM{}, "", 5)

	_, err := r.Research(context.Background(), Query{Text: "q"}, NewSourceRegistry())
	if !errors.Is(err, ErrResearchFailed) {
		t.Fatalf("err = %v, want ErrResearchFailed", err)
	}
}

func TestResearcherEmptyResults(t *testing.T) {
	r := NewResearcher(staticProvider(), &scriptedLLM{}, "", 5)

	registry := NewSourceRegistry()
	_, err := r.Research(context.Background(), Query{Text: "q"}, registry)
	if !errors.Is(err, ErrEmptyResults) {
		t.Fatalf("err = %v, want ErrEmptyResults", err)
	}
	if registry.Len() != 0 {
		t.Errorf("registry len = %d, want 0", registry.Len())
	}
}

func TestResearcherCapsSourcesPerQuery(t *testing.T) {
	provider := staticProvider(
		search.Result{Title: "1", URL: "https://a.com/1"},
		search.Result{Title: "2", URL: "https://a.com/2"},
		search.Result{Title: "3", URL: "https://a.com/3"},
	)
	llm := &scriptedLLM{responses: []string{"summary"}}
	r := NewResearcher(provider, llm, "", 2)

	result, err := r.Research(context.Background(), Query{Text: "q"}, NewSourceRegistry())
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if len(result.SourceIDs) != 2 {
		t.Errorf("source ids = %v, want capped at 2", result.SourceIDs)
	}
}

func TestResearcherFallsBackToSnippetsOnSummaryError(t *testing.T) {
	provider := staticProvider(
		search.Result{Title: "Doc", URL: "https://a.com", Snippet: "the raw snippet"},
	)
	llm := &scriptedLLM{responses: []string{""}}
	r := NewResearcher(provider, llm, "", 5)

	result, err := r.Research(context.Background(), Query{Text: "q"}, NewSourceRegistry())
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if !strings.Contains(result.Summary, "the raw snippet") {
		t.Errorf("summary = %q, want raw snippet fallback", result.Summary)
	}
	if len(result.SourceIDs) != 1 {
		t.Errorf("source ids = %v, want the gathered source kept", result.SourceIDs)
	}
}
