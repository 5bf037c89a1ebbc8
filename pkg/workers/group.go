package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

type Worker interface {
	Name() string
	Start(ctx context.Context) error
}

// Group runs workers side by side. The first failure cancels the rest; Start
// returns once every worker has exited, with all failures combined.
type Group []Worker

func (g Group) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	groupCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures *multierror.Error
	)
	for _, w := range g {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			if err := run(groupCtx, w); err != nil {
				mu.Lock()
				failures = multierror.Append(failures, err)
				mu.Unlock()
				stop()
			}
		}(w)
	}

	<-groupCtx.Done()
	slog.Info("Stopping workers", "count", len(g))
	wg.Wait()

	return failures.ErrorOrNil()
}

// run starts one worker and reports how it exited.
func run(ctx context.Context, w Worker) error {
	err := w.Start(ctx)
	switch {
	case err != nil:
		slog.Error("Worker failed, stopping the group", "name", w.Name(), logger.Err(err))
		return fmt.Errorf("%s: %w", w.Name(), err)
	case ctx.Err() == nil:
		slog.Warn("Worker exited before shutdown", "name", w.Name())
	}
	return nil
}
