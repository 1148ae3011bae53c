package agent

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SourceRegistry deduplicates sources by URL for the lifetime of one run.
// Concurrent research tasks register through the same registry; registration
// is idempotent, so a URL seen by two queries keeps its first id. Entries
// are never removed.
type SourceRegistry struct {
	mu    sync.Mutex
	byURL map[string]Source
	order []string
}

// NewSourceRegistry creates an empty run-scoped registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{byURL: make(map[string]Source)}
}

// Register returns the source for url, minting a new id only for previously
// unseen URLs. A later, non-empty title fills in an earlier blank one.
func (r *SourceRegistry) Register(url, title string) Source {
	key := normalizeURL(url)

	r.mu.Lock()
	defer r.mu.Unlock()

	if src, ok := r.byURL[key]; ok {
		if src.Title == "" && title != "" {
			src.Title = title
			r.byURL[key] = src
		}
		return r.byURL[key]
	}

	src := Source{ID: uuid.NewString(), URL: url, Title: title}
	r.byURL[key] = src
	r.order = append(r.order, key)
	return src
}

// All returns a snapshot of every registered source in first-seen order.
func (r *SourceRegistry) All() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources := make([]Source, 0, len(r.order))
	for _, key := range r.order {
		sources = append(sources, r.byURL[key])
	}
	return sources
}

// Len reports how many distinct URLs have been registered.
func (r *SourceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func normalizeURL(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	return strings.TrimSuffix(s, "/")
}
