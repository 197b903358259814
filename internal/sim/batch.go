package sim

import (
	"context"

	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/events"
	"github.com/san-kum/oscnet/internal/network"
	"golang.org/x/sync/errgroup"
)

// Request is one self-contained simulation.
type Request struct {
	Model   *network.Model
	Initial dynamo.State
	Events  *events.Set
	Times   []float64
}

// Batch runs independent requests concurrently, at most limit at a time
// (limit <= 0 means unbounded). Segments within one request stay sequential.
// The first failure cancels the remaining requests.
func (s *Scheduler) Batch(ctx context.Context, reqs []Request, limit int) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Simulate(gctx, req.Model, req.Initial, req.Events, req.Times)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
