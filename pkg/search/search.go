// Package search provides web search backends for the research agent.
// Every backend implements Provider and returns normalized results; the
// agent core does not care which service produced them.
package search

import "context"

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider executes one query against a search backend.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}
