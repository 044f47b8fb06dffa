package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// LoopFactory builds an independent loop for one ensemble member.
type LoopFactory func(seed int64) (*Loop, error)

// Ensemble runs the same scene from several seeds concurrently.
type Ensemble struct {
	factory   LoopFactory
	numRuns   int
	seedStart int64
	limit     int
}

func NewEnsemble(factory LoopFactory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart, limit: runtime.NumCPU()}
}

// SetLimit caps the number of members running at once.
func (e *Ensemble) SetLimit(n int) {
	if n > 0 {
		e.limit = n
	}
}

// Run returns one result per seed, in seed order. The first failing member
// cancels the rest.
func (e *Ensemble) Run(ctx context.Context, cfg RunConfig) ([]*Result, error) {
	if err := validateRunConfig(cfg); err != nil {
		return nil, err
	}
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i := 0; i < e.numRuns; i++ {
		seed := e.seedStart + int64(i)
		idx := i
		g.Go(func() error {
			loop, err := e.factory(seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			res, err := loop.Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
