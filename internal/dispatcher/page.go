package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
)

// RenderPage renders independent blocks on a bounded worker pool. Outcomes
// keep the order of reqs and a failing block never affects its siblings.
func (s *Service) RenderPage(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))
	if len(reqs) == 0 {
		return outcomes
	}

	jobs := make(chan int, len(reqs))
	var wg sync.WaitGroup
	workerCount := min(s.cfg.MaxWorkers, len(reqs))

	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = s.renderOne(ctx, idx, reqs[idx])
			}
		}()
	}

	for idx := range reqs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			s.logger.Error("block render failed",
				logger.F("index", outcome.Index),
				logger.F("type", outcome.Result.Type),
				logger.F("error", outcome.Err),
			)
		}
	}
	if failed > 0 {
		s.logger.Warn("page rendered with failures", logger.F("blocks", len(reqs)), logger.F("failed", failed))
	}
	return outcomes
}

func (s *Service) renderOne(ctx context.Context, idx int, req Request) (outcome Outcome) {
	outcome.Index = idx
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	// Render recovers renderer panics; this guards the instance accessors.
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = &block.RenderError{Type: outcome.Result.Type, InstanceID: outcome.Result.InstanceID, Err: fmt.Errorf("%v", r), Panicked: true}
		}
	}()
	outcome.Result, outcome.Err = s.Render(ctx, req.Instance, req.Overrides)
	return outcome
}
