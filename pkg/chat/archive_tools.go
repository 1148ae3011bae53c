package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/mikeboe/research-agent/pkg/archive"
	"github.com/mikeboe/research-agent/pkg/database"
)

// ArchiveToolset exposes the research archive to the chat agent: semantic
// search over archived findings, plus direct lookups of past runs and their
// answers.
type ArchiveToolset struct {
	DB      *database.PostgresDB
	Indexer *archive.Indexer
}

func NewArchiveToolset(db *database.PostgresDB, indexer *archive.Indexer) *ArchiveToolset {
	return &ArchiveToolset{
		DB:      db,
		Indexer: indexer,
	}
}

func (t *ArchiveToolset) Name() string {
	return "archive_tools"
}

func (t *ArchiveToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchFindingsArgs, SearchFindingsResp](
		functiontool.Config{
			Name:        "search_findings",
			Description: "Search archived research findings using semantic search. Optionally restrict to one run.",
		},
		t.searchFindingsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	listRunsTool, err := functiontool.New[ListRunsArgs, ListRunsResp](
		functiontool.Config{
			Name:        "list_runs",
			Description: "List recent research runs with their questions and statuses.",
		},
		t.listRunsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create list_runs tool: %w", err)
	}

	answerTool, err := functiontool.New[GetRunAnswerArgs, GetRunAnswerResp](
		functiontool.Config{
			Name:        "get_run_answer",
			Description: "Fetch the final answer of a specific research run by its id.",
		},
		t.getRunAnswerTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create get_run_answer tool: %w", err)
	}

	return []tool.Tool{searchTool, listRunsTool, answerTool}, nil
}

// --- Tool Implementations ---

type SearchFindingsArgs struct {
	Query string `json:"query" description:"The search query"`
	TopK  int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	RunID string `json:"runId,omitempty" description:"Optional run id filter"`
}

type SearchFindingsResp struct {
	Results string `json:"results"`
}

// Wrapper for ADK tool interface
func (t *ArchiveToolset) searchFindingsTool(ctx tool.Context, args SearchFindingsArgs) (SearchFindingsResp, error) {
	return t.SearchFindings(ctx, args)
}

// Public method using standard context
func (t *ArchiveToolset) SearchFindings(ctx context.Context, args SearchFindingsArgs) (SearchFindingsResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("Search findings", "query", args.Query, "topK", args.TopK, "run_id", args.RunID)

	findings, err := t.Indexer.Search(ctx, args.Query, args.TopK, args.RunID)
	if err != nil {
		return SearchFindingsResp{}, fmt.Errorf("failed to search findings: %w", err)
	}

	var formatted []string
	for _, f := range findings {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[Run]: %s\n[Question]: %s\n[Query]: %s\n[Content]: %s", f.RunID, f.Question, f.Query, f.Content)
		formatted = append(formatted, sb.String())
	}

	return SearchFindingsResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type ListRunsArgs struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of runs to return (default 10)"`
}

type ListRunsResp struct {
	Runs string `json:"runs"`
}

// Wrapper for ADK tool interface
func (t *ArchiveToolset) listRunsTool(ctx tool.Context, args ListRunsArgs) (ListRunsResp, error) {
	return t.ListRuns(ctx, args)
}

// Public method using standard context
func (t *ArchiveToolset) ListRuns(ctx context.Context, args ListRunsArgs) (ListRunsResp, error) {
	if args.Limit == 0 {
		args.Limit = 10
	}

	rows, err := t.DB.Pool.Query(ctx,
		`SELECT id, question, status, created_at FROM research_runs ORDER BY created_at DESC LIMIT $1`,
		args.Limit)
	if err != nil {
		return ListRunsResp{}, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var formatted []string
	for rows.Next() {
		var id, question, status string
		var createdAt time.Time
		if err := rows.Scan(&id, &question, &status, &createdAt); err != nil {
			return ListRunsResp{}, fmt.Errorf("failed to scan run: %w", err)
		}
		formatted = append(formatted, fmt.Sprintf("[%s] %s (%s, %s)", id, question, status, createdAt.Format(time.RFC3339)))
	}
	if err := rows.Err(); err != nil {
		return ListRunsResp{}, fmt.Errorf("error iterating runs: %w", err)
	}

	return ListRunsResp{Runs: strings.Join(formatted, "\n")}, nil
}

type GetRunAnswerArgs struct {
	RunID string `json:"runId" description:"The id of the research run"`
}

type GetRunAnswerResp struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Wrapper for ADK tool interface
func (t *ArchiveToolset) getRunAnswerTool(ctx tool.Context, args GetRunAnswerArgs) (GetRunAnswerResp, error) {
	return t.GetRunAnswer(ctx, args)
}

// Public method using standard context
func (t *ArchiveToolset) GetRunAnswer(ctx context.Context, args GetRunAnswerArgs) (GetRunAnswerResp, error) {
	var question string
	var answer *string
	err := t.DB.Pool.QueryRow(ctx,
		`SELECT question, answer FROM research_runs WHERE id = $1`,
		args.RunID).Scan(&question, &answer)
	if err != nil {
		return GetRunAnswerResp{}, fmt.Errorf("failed to fetch run %s: %w", args.RunID, err)
	}

	resp := GetRunAnswerResp{Question: question}
	if answer != nil {
		resp.Answer = *answer
	}
	return resp, nil
}
