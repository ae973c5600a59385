package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cleared-dev/recon/internal/model"
)

// Pair is an unscored source/POS combination.
type Pair struct {
	Source model.Record
	POS    model.Record
}

// CandidatePairs returns every source x POS pair, source-major, in input order.
func CandidatePairs(source, pos []model.Record) []Pair {
	out := make([]Pair, 0, len(source)*len(pos))
	for _, s := range source {
		for _, p := range pos {
			out = append(out, Pair{Source: s, POS: p})
		}
	}
	return out
}

// ScorePairs scores pairs on a pool of workers. Output keeps input order;
// pairs the scorer returns ErrNoScore for are dropped. Any other scorer error
// stops the pool and is returned. onScored, if set, is called once per pair
// from worker goroutines.
func ScorePairs(ctx context.Context, scorer Scorer, pairs []Pair, workers int, onScored func()) ([]model.MatchCandidate, error) {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan int, len(pairs))
	for i := range pairs {
		work <- i
	}
	close(work)

	results := make([]model.MatchCandidate, len(pairs))
	scored := make([]bool, len(pairs))

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					return
				}
				p := pairs[i]
				sc, err := scorer.Score(ctx, p.Source, p.POS)
				switch {
				case errors.Is(err, ErrNoScore):
					slog.Debug("pair not scored", "source_id", p.Source.ID, "pos_id", p.POS.ID)
				case err != nil:
					once.Do(func() {
						firstErr = fmt.Errorf("scoring %s, %s: %w", p.Source.ID, p.POS.ID, err)
						cancel()
					})
					return
				default:
					results[i] = model.MatchCandidate{
						Source:      p.Source,
						POS:         p.POS,
						Probability: sc.Probability,
						Features:    sc.Features,
					}
					scored[i] = true
				}
				if onScored != nil {
					onScored()
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.MatchCandidate, 0, len(pairs))
	for i, ok := range scored {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, nil
}
