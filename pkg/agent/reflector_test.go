package agent

import (
	"context"
	"reflect"
	"testing"
)

func TestReflectorSufficientVerdict(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"is_sufficient": true, "knowledge_gap": "", "follow_up_queries": []}`,
	}}
	r := NewReflector(llm, "test-model")

	verdict, err := r.Reflect(context.Background(), "question", []ResearchResult{
		{Query: Query{Text: "q1"}, Summary: "complete findings"},
	})
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if !verdict.IsSufficient {
		t.Error("verdict not sufficient")
	}
	if len(verdict.KnowledgeGaps) != 0 {
		t.Errorf("gaps = %v, want none", verdict.KnowledgeGaps)
	}
}

func TestReflectorGapsFromFollowUpQueries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"is_sufficient": false, "knowledge_gap": "overall gap", "follow_up_queries": ["detail one", "  ", "detail two"]}`,
	}}
	r := NewReflector(llm, "")

	verdict, err := r.Reflect(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if verdict.IsSufficient {
		t.Error("verdict unexpectedly sufficient")
	}
	want := []string{"detail one", "detail two"}
	if !reflect.DeepEqual(verdict.KnowledgeGaps, want) {
		t.Errorf("gaps = %v, want %v", verdict.KnowledgeGaps, want)
	}
}

func TestReflectorFallsBackToKnowledgeGap(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"is_sufficient": false, "knowledge_gap": "missing performance numbers", "follow_up_queries": []}`,
	}}
	r := NewReflector(llm, "")

	verdict, err := r.Reflect(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	want := []string{"missing performance numbers"}
	if !reflect.DeepEqual(verdict.KnowledgeGaps, want) {
		t.Errorf("gaps = %v, want %v", verdict.KnowledgeGaps, want)
	}
}

func TestReflectorRetriesThenFails(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"garbage", "more garbage", "still garbage"}}
	r := NewReflector(llm, "")

	_, err := r.Reflect(context.Background(), "question", nil)
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
}
