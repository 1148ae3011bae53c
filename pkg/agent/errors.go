package agent

import "errors"

// Failure kinds for one research run. Wrapped with fmt.Errorf("...: %w", ...)
// and checked with errors.Is by the controller and by callers.
var (
	// ErrInvalidConfig rejects a run before any state is built.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrGenerationFailed means the query generator produced no usable
	// queries. Fatal on the first round, finalize-with-current-knowledge on
	// later rounds.
	ErrGenerationFailed = errors.New("query generation failed")

	// ErrResearchFailed marks a backend or network error for one query.
	// Recovered locally: the round continues with an empty result.
	ErrResearchFailed = errors.New("web research failed")

	// ErrEmptyResults marks a query that completed but found no sources.
	ErrEmptyResults = errors.New("no sources found")

	// ErrSynthesisFailed means the final answer model call failed; the run
	// degrades to a fixed explanatory answer instead of aborting.
	ErrSynthesisFailed = errors.New("answer synthesis failed")
)
