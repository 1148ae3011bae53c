package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/mikeboe/research-agent/pkg/agent"
	"github.com/mikeboe/research-agent/pkg/vectorstore"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{float32(len(text))}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, err := f.EmbedText(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

type sentenceSplitter struct{}

func (sentenceSplitter) SplitText(text string) ([]string, error) {
	var chunks []string
	for _, part := range strings.Split(text, ".") {
		if part = strings.TrimSpace(part); part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks, nil
}

type memStore struct {
	docs []vectorstore.Document
}

func (m *memStore) AddDocuments(_ context.Context, docs []vectorstore.Document) error {
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *memStore) SimilaritySearch(_ context.Context, _ []float32, topK int, runFilter string) ([]vectorstore.SimilaritySearchResult, error) {
	var results []vectorstore.SimilaritySearchResult
	for _, doc := range m.docs {
		if runFilter != "" && doc.Metadata["run_id"] != runFilter {
			continue
		}
		results = append(results, vectorstore.SimilaritySearchResult{Document: doc, Score: 0.9})
		if len(results) >= topK {
			break
		}
	}
	return results, nil
}

func (m *memStore) GetContentByRun(_ context.Context, runID string) ([]vectorstore.Document, error) {
	var docs []vectorstore.Document
	for _, doc := range m.docs {
		if doc.Metadata["run_id"] == runID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func TestIndexRunArchivesSuccessfulFindings(t *testing.T) {
	store := &memStore{}
	ix := NewIndexer(&fakeEmbedder{}, sentenceSplitter{}, store)

	state := agent.OverallState{
		Question: "what is raft",
		ResearchResults: []agent.ResearchResult{
			{Query: agent.Query{Text: "raft consensus"}, Summary: "Leader election. Log replication."},
			{Query: agent.Query{Text: "raft safety"}, Err: "backend down"},
		},
	}

	if err := ix.IndexRun(context.Background(), "run-1", state); err != nil {
		t.Fatalf("IndexRun: %v", err)
	}

	if len(store.docs) != 2 {
		t.Fatalf("docs = %d, want 2 chunks from the successful finding", len(store.docs))
	}
	for _, doc := range store.docs {
		if doc.Metadata["run_id"] != "run-1" {
			t.Errorf("run_id = %v", doc.Metadata["run_id"])
		}
		if doc.Metadata["query"] != "raft consensus" {
			t.Errorf("query = %v", doc.Metadata["query"])
		}
		if len(doc.Embedding) == 0 {
			t.Error("document missing embedding")
		}
	}
}

func TestIndexRunEmptyStateIsNoop(t *testing.T) {
	store := &memStore{}
	ix := NewIndexer(&fakeEmbedder{}, sentenceSplitter{}, store)

	if err := ix.IndexRun(context.Background(), "run-1", agent.OverallState{}); err != nil {
		t.Fatalf("IndexRun: %v", err)
	}
	if len(store.docs) != 0 {
		t.Errorf("docs = %d, want 0", len(store.docs))
	}
}

func TestSearchFiltersByRun(t *testing.T) {
	store := &memStore{docs: []vectorstore.Document{
		{Content: "chunk a", Metadata: map[string]interface{}{"run_id": "run-1", "question": "q1", "query": "a"}},
		{Content: "chunk b", Metadata: map[string]interface{}{"run_id": "run-2", "question": "q2", "query": "b"}},
	}}
	ix := NewIndexer(&fakeEmbedder{}, sentenceSplitter{}, store)

	findings, err := ix.Search(context.Background(), "anything", 5, "run-2")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if findings[0].RunID != "run-2" || findings[0].Content != "chunk b" {
		t.Errorf("finding = %+v", findings[0])
	}
}
