package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/research-agent/pkg/agent"
	"github.com/mikeboe/research-agent/pkg/vectorstore"
)

// Embedder turns text into vectors. Satisfied by embeddings.GoogleEmbedder.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Splitter chunks text before embedding. Satisfied by splitter.TextSplitter.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// Store is the vector store surface the archive needs.
type Store interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) error
	SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, runFilter string) ([]vectorstore.SimilaritySearchResult, error)
	GetContentByRun(ctx context.Context, runID string) ([]vectorstore.Document, error)
}

// Indexer archives completed run findings into the vector store so later
// chat sessions can search across past research.
type Indexer struct {
	Embedder Embedder
	Splitter Splitter
	Store    Store
	Logger   *slog.Logger
}

func NewIndexer(embedder Embedder, splitter Splitter, store Store) *Indexer {
	return &Indexer{
		Embedder: embedder,
		Splitter: splitter,
		Store:    store,
		Logger:   slog.Default(),
	}
}

// IndexRun chunks and embeds every successful finding of a finished run.
// Failed queries have no content to archive and are skipped.
func (ix *Indexer) IndexRun(ctx context.Context, runID string, state agent.OverallState) error {
	var docs []vectorstore.Document

	for _, res := range state.ResearchResults {
		if res.Failed() || strings.TrimSpace(res.Summary) == "" {
			continue
		}

		chunks, err := ix.Splitter.SplitText(res.Summary)
		if err != nil {
			return fmt.Errorf("failed to split findings for query %q: %w", res.Query.Text, err)
		}

		vectors, err := ix.Embedder.EmbedTexts(ctx, chunks)
		if err != nil {
			return fmt.Errorf("failed to embed findings for query %q: %w", res.Query.Text, err)
		}

		for i, chunk := range chunks {
			docs = append(docs, vectorstore.Document{
				Content: chunk,
				Metadata: map[string]interface{}{
					"run_id":   runID,
					"question": state.Question,
					"query":    res.Query.Text,
				},
				Embedding: vectors[i],
			})
		}
	}

	if len(docs) == 0 {
		ix.logger().Info("No findings to archive", "run_id", runID)
		return nil
	}

	if err := ix.Store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to archive findings: %w", err)
	}

	ix.logger().Info("Findings archived", "run_id", runID, "chunks", len(docs))
	return nil
}

// Finding is one archived chunk returned by a search.
type Finding struct {
	Content  string  `json:"content"`
	RunID    string  `json:"run_id"`
	Question string  `json:"question"`
	Query    string  `json:"query"`
	Score    float64 `json:"score"`
}

// Search embeds the query and returns the closest archived findings. An
// empty runID searches across all runs.
func (ix *Indexer) Search(ctx context.Context, query string, topK int, runID string) ([]Finding, error) {
	if topK <= 0 {
		topK = 5
	}

	queryEmbedding, err := ix.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search query: %w", err)
	}

	results, err := ix.Store.SimilaritySearch(ctx, queryEmbedding, topK, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}

	findings := make([]Finding, 0, len(results))
	for _, r := range results {
		f := Finding{Content: r.Document.Content, Score: r.Score}
		if v, ok := r.Document.Metadata["run_id"].(string); ok {
			f.RunID = v
		}
		if v, ok := r.Document.Metadata["question"].(string); ok {
			f.Question = v
		}
		if v, ok := r.Document.Metadata["query"].(string); ok {
			f.Query = v
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// RunFindings returns every archived chunk for one run, without ranking.
func (ix *Indexer) RunFindings(ctx context.Context, runID string) ([]Finding, error) {
	docs, err := ix.Store.GetContentByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run findings: %w", err)
	}

	findings := make([]Finding, 0, len(docs))
	for _, doc := range docs {
		f := Finding{Content: doc.Content, RunID: runID}
		if v, ok := doc.Metadata["question"].(string); ok {
			f.Question = v
		}
		if v, ok := doc.Metadata["query"].(string); ok {
			f.Query = v
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func (ix *Indexer) logger() *slog.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return slog.Default()
}
