package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestGeneratorParsesQueries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"queries": [
			{"query": "go scheduler design", "rationale": "core mechanism"},
			{"query": "go scheduler preemption", "rationale": "edge behavior"}
		]}`,
	}}
	gen := NewGenerator(llm, "test-model")

	queries, err := gen.Generate(context.Background(), "how does the go scheduler work", nil, nil, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []Query{
		{Text: "go scheduler design", Rationale: "core mechanism"},
		{Text: "go scheduler preemption", Rationale: "edge behavior"},
	}
	if !reflect.DeepEqual(queries, want) {
		t.Errorf("queries = %+v, want %+v", queries, want)
	}
}

func TestGeneratorRetriesMalformedOutput(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`not json at all`,
		`{"queries": [{"query": "q1", "rationale": "r1"}]}`,
	}}
	gen := NewGenerator(llm, "")

	queries, err := gen.Generate(context.Background(), "question", nil, nil, 1)
	if err != nil {
		t.Fatalf("Generate after retry: %v", err)
	}
	if len(queries) != 1 || queries[0].Text != "q1" {
		t.Errorf("queries = %+v, want single q1", queries)
	}
}

func TestGeneratorFailsAfterRetries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"", "", ""}}
	gen := NewGenerator(llm, "")

	_, err := gen.Generate(context.Background(), "question", nil, nil, 1)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestGeneratorExcludesPreviousQueries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"queries": [
			{"query": "Already Asked", "rationale": "repeat"},
			{"query": "fresh angle", "rationale": "new"}
		]}`,
	}}
	gen := NewGenerator(llm, "")

	queries, err := gen.Generate(context.Background(), "question", nil, []string{"already  asked"}, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(queries) != 1 || queries[0].Text != "fresh angle" {
		t.Errorf("queries = %+v, want only the fresh query", queries)
	}
}

func TestGeneratorFailsWhenNothingNewRemains(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"queries": [{"query": "same old", "rationale": "r"}]}`,
		`{"queries": [{"query": "same old", "rationale": "r"}]}`,
		`{"queries": [{"query": "same old", "rationale": "r"}]}`,
	}}
	gen := NewGenerator(llm, "")

	_, err := gen.Generate(context.Background(), "question", nil, []string{"same old"}, 2)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestDedupeQueries(t *testing.T) {
	tests := []struct {
		name     string
		items    []rawQuery
		previous []string
		count    int
		want     []string
	}{
		{
			name:  "drops blanks and batch duplicates",
			items: []rawQuery{{Query: "a"}, {Query: "  "}, {Query: "A"}, {Query: "b"}},
			count: 5,
			want:  []string{"a", "b"},
		},
		{
			name:  "caps at count",
			items: []rawQuery{{Query: "a"}, {Query: "b"}, {Query: "c"}},
			count: 2,
			want:  []string{"a", "b"},
		},
		{
			name:     "drops previously researched",
			items:    []rawQuery{{Query: "a"}, {Query: "b"}},
			previous: []string{"A"},
			count:    5,
			want:     []string{"b"},
		},
		{
			name:     "whitespace-insensitive matching",
			items:    []rawQuery{{Query: "go  http   server"}},
			previous: []string{"Go HTTP Server"},
			count:    5,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupeQueries(tt.items, tt.previous, tt.count)
			var texts []string
			for _, q := range got {
				texts = append(texts, q.Text)
			}
			if !reflect.DeepEqual(texts, tt.want) {
				t.Errorf("dedupeQueries = %v, want %v", texts, tt.want)
			}
		})
	}
}
