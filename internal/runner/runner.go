package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runner runs long-lived tasks that share a cancellation context.
// The first task to fail cancels the others.
type Runner struct {
	g   *errgroup.Group
	ctx context.Context
}

func New(ctx context.Context) *Runner {
	g, gctx := errgroup.WithContext(ctx)

	return &Runner{
		g:   g,
		ctx: gctx,
	}
}

// Context is cancelled when the parent is cancelled or a task fails
func (r *Runner) Context() context.Context {
	return r.ctx
}

func (r *Runner) Go(f func(ctx context.Context) error) {
	r.g.Go(func() error {
		return f(r.ctx)
	})
}

func (r *Runner) Wait() error {
	return r.g.Wait()
}
