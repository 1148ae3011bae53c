package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/research-agent/pkg/agent"
	"github.com/mikeboe/research-agent/pkg/archive"
	"github.com/mikeboe/research-agent/pkg/config"
	"github.com/mikeboe/research-agent/pkg/database"
	"github.com/mikeboe/research-agent/pkg/search"
)

// Service owns run persistence and the background workers that execute
// research runs. Each run gets its own cancellable context so the cancel
// endpoint can stop it mid-flight.
type Service struct {
	DB       *database.PostgresDB
	Cfg      *config.Config
	Provider search.Provider
	// FastModel drives query generation and per-query summarization;
	// ReasonModel drives reflection and final synthesis.
	FastModel   llms.Model
	ReasonModel llms.Model
	// Indexer archives findings of completed runs. Optional.
	Indexer *archive.Indexer

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func NewService(db *database.PostgresDB, cfg *config.Config, provider search.Provider, fastModel, reasonModel llms.Model, indexer *archive.Indexer) *Service {
	return &Service{
		DB:          db,
		Cfg:         cfg,
		Provider:    provider,
		FastModel:   fastModel,
		ReasonModel: reasonModel,
		Indexer:     indexer,
		cancels:     make(map[uuid.UUID]context.CancelFunc),
	}
}

type Run struct {
	ID        uuid.UUID       `json:"id"`
	Question  string          `json:"question"`
	Status    string          `json:"status"`
	Answer    *string         `json:"answer,omitempty"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateRunRequest struct {
	Question string `json:"question"`
}

func (s *Service) CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error) {
	configJSON, _ := json.Marshal(map[string]interface{}{
		"initial_query_count": s.Cfg.InitialQueryCount,
		"max_research_loops":  s.Cfg.MaxResearchLoops,
	})

	runID := uuid.New()
	query := `
		INSERT INTO research_runs (id, question, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, question, status, created_at, updated_at
	`

	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, runID, req.Question, configJSON).Scan(
		&run.ID, &run.Question, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	// Start background worker
	go s.runWorker(run.ID, req.Question)

	return run, nil
}

// CancelRun stops a running worker. Returns false when no worker is active
// for the id.
func (s *Service) CancelRun(id uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, question, status, answer, sources, state, created_at, updated_at, config
		FROM research_runs
		WHERE id = $1
	`
	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Question, &run.Status, &run.Answer, &run.Sources, &run.State, &run.CreatedAt, &run.UpdatedAt, &run.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
		SELECT id, question, status, answer, created_at, updated_at, config
		FROM research_runs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Question, &run.Status, &run.Answer, &run.CreatedAt, &run.UpdatedAt, &run.Config); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetRunLogs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) runWorker(runID uuid.UUID, question string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[runID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, runID)
		s.mu.Unlock()
	}()

	// Update status to running
	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'running', updated_at = NOW() WHERE id = $1", runID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))

	ctrl, err := s.buildController(dbLogger, runID)
	if err != nil {
		s.failRun(runID, fmt.Sprintf("Failed to init run: %v", err))
		return
	}

	result, err := ctrl.Run(ctx, question)
	if err != nil {
		if result != nil && result.Status == agent.StatusCancelled {
			s.saveState(runID, result.State)
			_, _ = s.DB.Pool.Exec(context.Background(),
				"UPDATE research_runs SET status = 'cancelled', updated_at = NOW() WHERE id = $1", runID)
			return
		}
		s.failRun(runID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	sourcesJSON, err := json.Marshal(result.State.SourcesGathered)
	if err != nil {
		dbLogger.Error("Failed to marshal sources", "error", err)
		sourcesJSON = []byte("[]")
	}

	_, err = s.DB.Pool.Exec(context.Background(),
		"UPDATE research_runs SET status = 'completed', answer = $2, sources = $3, updated_at = NOW() WHERE id = $1",
		runID, result.Answer.Text, sourcesJSON)
	if err != nil {
		dbLogger.Error("Failed to save final answer to DB", "error", err)
	}
	s.saveState(runID, result.State)

	if s.Indexer != nil {
		if err := s.Indexer.IndexRun(context.Background(), runID.String(), result.State); err != nil {
			dbLogger.Error("Failed to archive findings", "error", err)
		}
	}
}

func (s *Service) buildController(logger *slog.Logger, runID uuid.UUID) (*agent.Controller, error) {
	cfg := agent.Configuration{
		QueryGeneratorModel: s.Cfg.QueryGeneratorModel,
		ReasoningModel:      s.Cfg.ReasoningModel,
		InitialQueryCount:   s.Cfg.InitialQueryCount,
		MaxResearchLoops:    s.Cfg.MaxResearchLoops,
		QueryTimeout:        s.Cfg.QueryTimeout,
		MaxSourcesPerQuery:  s.Cfg.MaxSourcesPerQuery,
	}

	generator := agent.NewGenerator(s.FastModel, s.Cfg.QueryGeneratorModel)
	generator.Logger = logger
	researcher := agent.NewResearcher(s.Provider, s.FastModel, s.Cfg.QueryGeneratorModel, s.Cfg.MaxSourcesPerQuery)
	researcher.Logger = logger
	reflector := agent.NewReflector(s.ReasonModel, s.Cfg.ReasoningModel)
	reflector.Logger = logger
	synthesizer := agent.NewSynthesizer(s.ReasonModel, s.Cfg.ReasoningModel)
	synthesizer.Logger = logger

	ctrl, err := agent.NewController(cfg, generator, researcher, reflector, synthesizer)
	if err != nil {
		return nil, err
	}
	ctrl.Logger = logger
	ctrl.OnStateUpdate = func(state agent.OverallState) {
		s.saveState(runID, state)
	}
	return ctrl, nil
}

func (s *Service) saveState(runID uuid.UUID, state agent.OverallState) {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		slog.Error("Failed to marshal state", "run_id", runID, "error", err)
		return
	}

	// Background context so cancelled runs still persist their last state.
	_, err = s.DB.Pool.Exec(context.Background(),
		"UPDATE research_runs SET state = $2, updated_at = NOW() WHERE id = $1",
		runID, stateJSON)
	if err != nil {
		slog.Error("Failed to save state to DB", "run_id", runID, "error", err)
	}
}

func (s *Service) failRun(runID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(context.Background(), "UPDATE research_runs SET status = 'failed', updated_at = NOW() WHERE id = $1", runID)
}
