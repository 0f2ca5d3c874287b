package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/atomic"
)

// Handler processes one event. Returned errors and panics are logged by the
// router and never reach the caller of Dispatch.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	name    string
	handler Handler
}

// Stats counts router activity since start.
type Stats struct {
	Dispatched int64
	Unrouted   int64
	Failed     int64
	Panicked   int64
}

// Router fans events out to subscribed handlers. Each handler runs in its own
// task; a failure in one never affects another or the dispatcher.
type Router struct {
	mu   sync.RWMutex
	subs map[string][]subscription

	tasks conc.WaitGroup

	dispatched atomic.Int64
	unrouted   atomic.Int64
	failed     atomic.Int64
	panicked   atomic.Int64
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{subs: make(map[string][]subscription)}
}

// Register subscribes handler to every listed event type. name identifies the
// handler in logs.
func (r *Router) Register(eventTypes []string, name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, typ := range eventTypes {
		r.subs[typ] = append(r.subs[typ], subscription{name: name, handler: handler})
	}
	logging.GetLogger().Debug(context.Background(), "Registered %s for %v", name, eventTypes)
}

// Dispatch schedules every handler subscribed to ev.Type and returns how many
// were scheduled. It does not wait for them. Handlers run on a context that
// keeps ctx's values but not its cancellation, so a finished HTTP request does
// not abort work it triggered. Events are delivered at most once; nothing is
// retried here.
func (r *Router) Dispatch(ctx context.Context, ev Event) int {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}

	r.mu.RLock()
	subs := append([]subscription(nil), r.subs[ev.Type]...)
	r.mu.RUnlock()

	logger := logging.GetLogger()
	if len(subs) == 0 {
		r.unrouted.Inc()
		logger.Debug(ctx, "No handlers for event %s (%s)", ev.Type, ev.ID)
		return 0
	}

	taskCtx := context.WithoutCancel(ctx)
	for _, sub := range subs {
		sub := sub
		r.dispatched.Inc()
		r.tasks.Go(func() {
			r.run(taskCtx, sub, ev)
		})
	}
	return len(subs)
}

// run executes one handler under supervision.
func (r *Router) run(ctx context.Context, sub subscription, ev Event) {
	logger := logging.GetLogger()
	start := time.Now()
	logger.Debug(ctx, "[%s] %s handling %s", ev.ID, sub.name, ev.Type)

	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = sub.handler(ctx, ev)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		r.panicked.Inc()
		r.failed.Inc()
		logger.Error(ctx, "[%s] %s panicked on %s: %v", ev.ID, sub.name, ev.Type, recovered.AsError())
		return
	}
	if err != nil {
		r.failed.Inc()
		logger.Error(ctx, "[%s] %s failed on %s: %v", ev.ID, sub.name, ev.Type, err)
		return
	}
	logger.Debug(ctx, "[%s] %s finished %s in %s", ev.ID, sub.name, ev.Type, time.Since(start))
}

// Wait blocks until every scheduled handler has returned.
func (r *Router) Wait() {
	r.tasks.Wait()
}

// Shutdown waits for in-flight handlers or gives up when ctx ends.
func (r *Router) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event handlers: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() Stats {
	return Stats{
		Dispatched: r.dispatched.Load(),
		Unrouted:   r.unrouted.Load(),
		Failed:     r.failed.Load(),
		Panicked:   r.panicked.Load(),
	}
}
