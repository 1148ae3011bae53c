package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Controller owns the run state machine:
//
//	Init → Generating → Researching → Reflecting → {Generating, Finalizing} → Done
//
// It is the only code that mutates OverallState. Research fans out one
// goroutine per pending query and joins on the whole round before
// reflecting; the loop bound is enforced here regardless of the evaluator's
// opinion.
type Controller struct {
	cfg         Configuration
	generator   QueryGenerator
	researcher  WebResearcher
	reflector   ReflectionEvaluator
	synthesizer AnswerSynthesizer

	Logger *slog.Logger
	// OnStateUpdate observes state snapshots at phase boundaries. Used by
	// the server to persist run progress.
	OnStateUpdate func(OverallState)
}

// NewController validates the configuration and wires the run components.
// An invalid configuration is rejected here, before any state exists.
func NewController(cfg Configuration, generator QueryGenerator, researcher WebResearcher, reflector ReflectionEvaluator, synthesizer AnswerSynthesizer) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if generator == nil || researcher == nil || reflector == nil || synthesizer == nil {
		return nil, fmt.Errorf("%w: all run components must be set", ErrInvalidConfig)
	}
	return &Controller{
		cfg:         cfg.withDefaults(),
		generator:   generator,
		researcher:  researcher,
		reflector:   reflector,
		synthesizer: synthesizer,
		Logger:      slog.Default(),
	}, nil
}

// Run executes one research run for the question. Every run terminates in
// exactly one of: a RunResult with StatusDone, a RunResult with
// StatusCancelled alongside the context's error, or a nil result with a
// fatal error (first-round generation failure).
func (c *Controller) Run(ctx context.Context, question string) (*RunResult, error) {
	state := OverallState{Question: question, Phase: PhaseInit}
	registry := NewSourceRegistry()
	c.logger().Info("Starting research run", "question", question, "max_loops", c.cfg.MaxResearchLoops)
	c.emit(state)

	// A zero-loop run answers from the question alone.
	if c.cfg.MaxResearchLoops == 0 {
		return c.finalize(ctx, state)
	}

	for {
		if err := ctx.Err(); err != nil {
			return c.cancelled(state, err)
		}

		// Generating
		state.Phase = PhaseGenerating
		c.emit(state)
		queries, err := c.generator.Generate(ctx, question, state.KnowledgeGaps, state.previousQueryTexts(), c.cfg.InitialQueryCount)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.cancelled(state, ctxErr)
			}
			if state.LoopCount == 0 {
				// No question coverage at all is unrecoverable.
				return nil, fmt.Errorf("first research round: %w", err)
			}
			c.logger().Warn("Query generation failed mid-run, finalizing with current knowledge", "error", err)
			return c.finalize(ctx, state)
		}
		state.PendingQueries = queries

		// Researching
		state.Phase = PhaseResearching
		c.emit(state)
		results := c.researchRound(ctx, state.PendingQueries, registry)
		if err := ctx.Err(); err != nil {
			// In-flight tasks have been abandoned; do not advance to
			// Reflecting with a half-finished round.
			return c.cancelled(state, err)
		}
		state.ResearchResults = append(state.ResearchResults, results...)
		state.SourcesGathered = registry.All()
		state.PendingQueries = nil

		// Reflecting
		state.Phase = PhaseReflecting
		c.emit(state)
		reflection, err := c.reflector.Reflect(ctx, question, state.ResearchResults)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.cancelled(state, ctxErr)
			}
			// An evaluator that cannot be consulted must not spin the loop.
			c.logger().Warn("Reflection failed, treating knowledge as sufficient", "error", err)
			reflection = Reflection{IsSufficient: true}
		}
		if !reflection.IsSufficient && len(reflection.KnowledgeGaps) == 0 {
			// Insufficiency without an actionable gap cannot drive another
			// round; fall back to sufficient.
			c.logger().Warn("Evaluator reported insufficient with no gaps, finalizing")
			reflection.IsSufficient = true
		}

		if reflection.IsSufficient {
			state.Sufficiency = SufficiencySufficient
		} else {
			state.Sufficiency = SufficiencyInsufficient
		}
		state.KnowledgeGaps = reflection.KnowledgeGaps
		state.LoopCount++
		c.logger().Info("Round complete", "loop", state.LoopCount, "sufficient", reflection.IsSufficient, "sources", len(state.SourcesGathered))

		if reflection.IsSufficient || state.LoopCount >= c.cfg.MaxResearchLoops {
			return c.finalize(ctx, state)
		}
	}
}

// researchRound dispatches one goroutine per query and joins on all of them
// before returning. Each task gets its own timeout so a hung backend call
// becomes a per-query failure; results keep the round's query order. The
// shared registry serializes source registration internally.
func (c *Controller) researchRound(ctx context.Context, queries []Query, registry *SourceRegistry) []ResearchResult {
	results := make([]ResearchResult, len(queries))
	var wg sync.WaitGroup

	for i, query := range queries {
		wg.Add(1)
		go func(i int, query Query) {
			defer wg.Done()

			qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
			defer cancel()

			result, err := c.researcher.Research(qctx, query, registry)
			if err != nil {
				c.logger().Error("Research task failed", "query", query.Text, "error", err)
				results[i] = ResearchResult{Query: query, Err: err.Error()}
				return
			}
			results[i] = result
		}(i, query)
	}

	wg.Wait()
	return results
}

// finalize synthesizes the answer from whatever has been gathered. A
// synthesis failure degrades to a fixed explanatory answer carrying every
// gathered source; it never aborts the run.
func (c *Controller) finalize(ctx context.Context, state OverallState) (*RunResult, error) {
	state.Phase = PhaseFinalizing
	c.emit(state)

	answer, err := c.synthesizer.Synthesize(ctx, state.Question, state.ResearchResults, state.SourcesGathered)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return c.cancelled(state, ctxErr)
		}
		c.logger().Error("Synthesis failed, returning degraded answer", "error", err)
		ids := make([]string, 0, len(state.SourcesGathered))
		for _, src := range state.SourcesGathered {
			ids = append(ids, src.ID)
		}
		answer = FinalAnswer{Text: degradedAnswerText, CitedSourceIDs: ids}
	}

	state.Phase = PhaseDone
	c.emit(state)
	c.logger().Info("Run complete", "loops", state.LoopCount, "sources", len(state.SourcesGathered))
	return &RunResult{Status: StatusDone, Answer: answer, State: state}, nil
}

func (c *Controller) cancelled(state OverallState, err error) (*RunResult, error) {
	state.Phase = PhaseCancelled
	c.emit(state)
	c.logger().Info("Run cancelled", "loops", state.LoopCount)
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		err = context.Canceled
	}
	return &RunResult{Status: StatusCancelled, State: state}, err
}

func (c *Controller) emit(state OverallState) {
	if c.OnStateUpdate != nil {
		c.OnStateUpdate(state)
	}
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
