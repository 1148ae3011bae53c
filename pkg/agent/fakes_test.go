package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// scriptedLLM returns canned responses in order. An empty script entry
// produces an error, which lets tests exercise retry and failure paths.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	idx       int
}

func (s *scriptedLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.responses) {
		return nil, errors.New("no scripted response available")
	}
	resp := s.responses[s.idx]
	s.idx++
	if resp == "" {
		return nil, errors.New("scripted model error")
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp}},
	}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	resp, err := s.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// scriptedGenerator yields one query batch per round.
type scriptedGenerator struct {
	mu      sync.Mutex
	batches [][]Query
	errs    []error
	calls   int
	gaps    [][]string
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, gaps []string, _ []string, _ int) ([]Query, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call := g.calls
	g.calls++
	g.gaps = append(g.gaps, append([]string(nil), gaps...))
	if call < len(g.errs) && g.errs[call] != nil {
		return nil, g.errs[call]
	}
	if call >= len(g.batches) {
		return nil, fmt.Errorf("%w: no scripted batch for round %d", ErrGenerationFailed, call+1)
	}
	return g.batches[call], nil
}

// funcResearcher delegates to a function; tests count calls through it.
type funcResearcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, query Query, registry *SourceRegistry) (ResearchResult, error)
}

func (r *funcResearcher) Research(ctx context.Context, query Query, registry *SourceRegistry) (ResearchResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.fn(ctx, query, registry)
}

func (r *funcResearcher) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// snippetResearcher is the happy-path fake: one source per query, summary
// derived from the query text.
func snippetResearcher() *funcResearcher {
	return &funcResearcher{fn: func(_ context.Context, query Query, registry *SourceRegistry) (ResearchResult, error) {
		src := registry.Register("https://example.com/"+normalizeQueryText(query.Text), "About "+query.Text)
		return ResearchResult{
			Query:     query,
			Summary:   "findings for " + query.Text,
			SourceIDs: []string{src.ID},
		}, nil
	}}
}

// scriptedReflector yields one verdict per round.
type scriptedReflector struct {
	mu       sync.Mutex
	verdicts []Reflection
	errs     []error
	calls    int
	seen     [][]ResearchResult
}

func (r *scriptedReflector) Reflect(_ context.Context, _ string, results []ResearchResult) (Reflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.calls
	r.calls++
	r.seen = append(r.seen, append([]ResearchResult(nil), results...))
	if call < len(r.errs) && r.errs[call] != nil {
		return Reflection{}, r.errs[call]
	}
	if call >= len(r.verdicts) {
		return Reflection{IsSufficient: true}, nil
	}
	return r.verdicts[call], nil
}

// fakeSynthesizer records its inputs and cites the union of result sources.
type fakeSynthesizer struct {
	mu       sync.Mutex
	err      error
	calls    int
	question string
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, question string, results []ResearchResult, _ []Source) (FinalAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.question = question
	if s.err != nil {
		return FinalAnswer{}, s.err
	}
	var cited []string
	seen := map[string]bool{}
	for _, res := range results {
		for _, id := range res.SourceIDs {
			if !seen[id] {
				seen[id] = true
				cited = append(cited, id)
			}
		}
	}
	return FinalAnswer{Text: "synthesized answer", CitedSourceIDs: cited}, nil
}
