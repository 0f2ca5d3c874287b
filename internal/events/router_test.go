package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) handler(name string) Handler {
	return func(ctx context.Context, ev Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seen = append(r.seen, name+":"+ev.Type)
		return nil
	}
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestRouter_DispatchesToSubscribers(t *testing.T) {
	router := NewRouter()
	rec := &recorder{}
	router.Register(PullRequestLifecycle, "workflow", rec.handler("workflow"))
	router.Register(CommentCreation, "comments", rec.handler("comments"))

	n := router.Dispatch(context.Background(), Event{ID: "1", Type: PullRequestSynchronize})
	router.Wait()

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"workflow:" + PullRequestSynchronize}, rec.calls())
}

func TestRouter_UnroutedEvent(t *testing.T) {
	router := NewRouter()

	n := router.Dispatch(context.Background(), Event{ID: "1", Type: "push"})
	router.Wait()

	assert.Zero(t, n)
	assert.Equal(t, int64(1), router.Stats().Unrouted)
}

func TestRouter_IsolatesFailures(t *testing.T) {
	router := NewRouter()
	rec := &recorder{}

	router.Register([]string{IssueCommentCreated}, "erroring", func(ctx context.Context, ev Event) error {
		return errors.New("boom")
	})
	router.Register([]string{IssueCommentCreated}, "panicking", func(ctx context.Context, ev Event) error {
		panic("kaboom")
	})
	router.Register([]string{IssueCommentCreated}, "healthy", rec.handler("healthy"))

	var n int
	require.NotPanics(t, func() {
		n = router.Dispatch(context.Background(), Event{ID: "2", Type: IssueCommentCreated})
		router.Wait()
	})

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"healthy:" + IssueCommentCreated}, rec.calls())

	stats := router.Stats()
	assert.Equal(t, int64(3), stats.Dispatched)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Panicked)
}

func TestRouter_HandlersOutliveCallerContext(t *testing.T) {
	router := NewRouter()
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	router.Register([]string{PullRequestOpened}, "slow", func(ctx context.Context, ev Event) error {
		close(started)
		<-release
		handlerErr = ctx.Err()
		return nil
	})

	router.Dispatch(ctx, Event{ID: "3", Type: PullRequestOpened})
	<-started
	cancel()
	close(release)
	router.Wait()

	assert.NoError(t, handlerErr)
}

func TestRouter_HandlersRunConcurrently(t *testing.T) {
	router := NewRouter()
	var wg sync.WaitGroup
	wg.Add(2)
	blocker := func(ctx context.Context, ev Event) error {
		wg.Done()
		// Both handlers must be running at once for this to return.
		wg.Wait()
		return nil
	}
	router.Register([]string{PullRequestOpened}, "a", blocker)
	router.Register([]string{PullRequestOpened}, "b", blocker)

	router.Dispatch(context.Background(), Event{ID: "4", Type: PullRequestOpened})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, router.Shutdown(ctx))
}
