package quality

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/credit-quality/internal/types"
)

// DefaultConcurrency bounds ProcessBatch when no limit is given.
const DefaultConcurrency = 4

// Input is one document of a batch.
type Input struct {
	Raw     string
	Options Options
}

// ProcessBatch processes inputs concurrently, at most concurrency at a time, and returns
// the reports in input order. It stops at the first cancellation error.
func (e *Engine) ProcessBatch(ctx context.Context, inputs []Input, concurrency int) ([]*types.QualityReport, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	reports := make([]*types.QualityReport, len(inputs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			report, err := e.Process(gCtx, input.Raw, input.Options)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
