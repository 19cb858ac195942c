package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/vantage/pkg/utils/apperr"
)

var inflight sync.WaitGroup

// Dispatch executes a handler function asynchronously with proper context and panic recovery
// This allows Slack handlers to respond immediately while processing continues in background
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	inflight.Add(1)
	go func() {
		defer inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				ctxlog.From(newCtx).Error("Panic in async handler",
					"recover", r,
					"stack", string(stack),
				)
			}
		}()

		if err := handler(newCtx); err != nil {
			apperr.Handle(newCtx, err)
		}
	}()
}

// Wait blocks until every dispatched handler has returned or ctx is done.
// It reports whether all handlers finished.
func Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// newBackgroundContext creates a context detached from the request's cancellation that keeps its logger
func newBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.WithoutCancel(ctx), ctxlog.From(ctx))
}
