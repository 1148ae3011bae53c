package agent

import (
	"fmt"
	"time"
)

const (
	defaultQueryTimeout       = 60 * time.Second
	defaultMaxSourcesPerQuery = 5
)

// Configuration holds the immutable parameters of one research run. The
// caller constructs it once at the boundary and passes it by value; the core
// never reads environment variables.
type Configuration struct {
	// QueryGeneratorModel answers query-generation calls.
	QueryGeneratorModel string
	// ReasoningModel answers reflection and synthesis calls.
	ReasoningModel string
	// InitialQueryCount is the number of queries per generation round.
	InitialQueryCount int
	// MaxResearchLoops is a hard ceiling on research rounds. Zero means
	// answer from the question alone without researching.
	MaxResearchLoops int
	// QueryTimeout bounds a single web research task. A hung backend call
	// becomes a per-query research failure instead of stalling the round.
	QueryTimeout time.Duration
	// MaxSourcesPerQuery caps how many discovered sources one query may
	// register.
	MaxSourcesPerQuery int
}

// Validate rejects impossible run parameters.
func (c Configuration) Validate() error {
	if c.InitialQueryCount < 1 {
		return fmt.Errorf("%w: initial query count must be >= 1, got %d", ErrInvalidConfig, c.InitialQueryCount)
	}
	if c.MaxResearchLoops < 0 {
		return fmt.Errorf("%w: max research loops must be >= 0, got %d", ErrInvalidConfig, c.MaxResearchLoops)
	}
	return nil
}

func (c Configuration) withDefaults() Configuration {
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.MaxSourcesPerQuery <= 0 {
		c.MaxSourcesPerQuery = defaultMaxSourcesPerQuery
	}
	return c
}
