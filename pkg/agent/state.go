package agent

// Phase names a controller state. Transitions happen only inside Run.
type Phase string

const (
	PhaseInit        Phase = "init"
	PhaseGenerating  Phase = "generating"
	PhaseResearching Phase = "researching"
	PhaseReflecting  Phase = "reflecting"
	PhaseFinalizing  Phase = "finalizing"
	PhaseDone        Phase = "done"
	PhaseCancelled   Phase = "cancelled"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Sufficiency is the reflection verdict. Undetermined until the first
// reflection round completes.
type Sufficiency int

const (
	SufficiencyUndetermined Sufficiency = iota
	SufficiencyInsufficient
	SufficiencySufficient
)

// Query is one generated search query with the model's rationale for it.
type Query struct {
	Text      string `json:"query"`
	Rationale string `json:"rationale"`
}

// Source is a deduplicated citation target. The ID is stable for a URL
// across the whole run.
type Source struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ResearchResult holds the findings of one executed query. A failed query
// keeps its slot with an empty summary and the Err marker set, so the
// reflection round sees that the query produced nothing.
type ResearchResult struct {
	Query     Query    `json:"query"`
	Summary   string   `json:"summary"`
	SourceIDs []string `json:"source_ids"`
	Err       string   `json:"error,omitempty"`
}

// Failed reports whether this result records a research failure.
func (r ResearchResult) Failed() bool { return r.Err != "" }

// Reflection is the evaluator's verdict over the accumulated results.
type Reflection struct {
	IsSufficient  bool     `json:"is_sufficient"`
	KnowledgeGaps []string `json:"knowledge_gaps"`
}

// FinalAnswer is the synthesized answer with its citations, in first-use
// order. Every cited id exists in the run's gathered sources.
type FinalAnswer struct {
	Text           string   `json:"text"`
	CitedSourceIDs []string `json:"cited_source_ids"`
}

// OverallState is the run state owned by the controller. It is mutated only
// inside controller transitions; callers observe copies via OnStateUpdate
// and the final RunResult.
type OverallState struct {
	Question        string           `json:"question"`
	Phase           Phase            `json:"phase"`
	PendingQueries  []Query          `json:"pending_queries"`
	SourcesGathered []Source         `json:"sources_gathered"`
	ResearchResults []ResearchResult `json:"research_results"`
	LoopCount       int              `json:"loop_count"`
	Sufficiency     Sufficiency      `json:"sufficiency"`
	KnowledgeGaps   []string         `json:"knowledge_gaps"`
}

// previousQueryTexts lists every query text already researched, so later
// generation rounds do not re-issue them.
func (s *OverallState) previousQueryTexts() []string {
	texts := make([]string, 0, len(s.ResearchResults))
	for _, r := range s.ResearchResults {
		texts = append(texts, r.Query.Text)
	}
	return texts
}

// RunResult is what a finished (or cancelled) run hands back to the caller.
type RunResult struct {
	Status Status       `json:"status"`
	Answer FinalAnswer  `json:"answer"`
	State  OverallState `json:"state"`
}
