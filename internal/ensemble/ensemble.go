// Package ensemble runs one propagator per seed over a shared contact table
// and averages the resulting size series.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// Member is the outcome of one seed.
type Member struct {
	Seed   uint64           `json:"seed"`
	Result *epidemic.Result `json:"result"`
}

// MeanPoint is the per-compartment mean over all members at one boundary.
type MeanPoint struct {
	Moment float64    `json:"moment"`
	Counts [4]float64 `json:"counts"`
}

// Ensemble holds every member in seed order and their mean series.
type Ensemble struct {
	Members []Member    `json:"members"`
	Mean    []MeanPoint `json:"mean"`
}

type options struct {
	workers int
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithWorkers bounds the number of concurrent propagators. Values below 1
// select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger handed to each propagator, tagged with its
// seed.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run simulates every seed concurrently. The table is shared read-only;
// each member owns its propagator and random source. The first failure
// cancels the remaining members and is returned.
func Run(ctx context.Context, table contact.Table, pop epidemic.Population, params epidemic.Params, seeds []uint64, opts ...Option) (*Ensemble, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("ensemble: no seeds")
	}

	members := make([]Member, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, seed := range seeds {
		g.Go(func() error {
			p, err := epidemic.New(params,
				epidemic.WithSeed(seed),
				epidemic.WithLogger(o.logger.With("seed", seed)))
			if err != nil {
				return err
			}
			res, err := p.Run(ctx, table, pop)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			members[i] = Member{Seed: seed, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.logger.Info("ensemble finished", "runs", len(seeds), "workers", o.workers)
	return &Ensemble{Members: members, Mean: mean(members)}, nil
}

// mean averages counts index by index. All members ran over the same table
// and so share their snapshot moments.
func mean(members []Member) []MeanPoint {
	first := members[0].Result.Snapshots
	out := make([]MeanPoint, len(first))
	for k, snap := range first {
		out[k].Moment = snap.Moment
	}
	for _, m := range members {
		for k, snap := range m.Result.Snapshots {
			c := snap.Counts()
			for j := range c {
				out[k].Counts[j] += float64(c[j])
			}
		}
	}
	n := float64(len(members))
	for k := range out {
		for j := range out[k].Counts {
			out[k].Counts[j] /= n
		}
	}
	return out
}

// Seeds returns the member seeds in order.
func (e *Ensemble) Seeds() []uint64 {
	out := make([]uint64, len(e.Members))
	for i, m := range e.Members {
		out[i] = m.Seed
	}
	return out
}
