// Package feed turns asynchronous fetches into observable state.
//
// A Feed is keyed on a comparable query. Every call to Set starts a new
// request tagged with the query and a sequence number; a result is applied
// only if its tag is still current when it arrives, so a slow response for
// an old query can never overwrite the state of a newer one.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/walletview/internal/metrics"
)

type Status string

const (
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

var ErrInvalidPage = errors.New("page must be >= 1")

// State is a snapshot of a feed. Data is non-nil only when complete.
type State[T any] struct {
	Data   []T
	Status Status
	Err    error
	// Seq identifies the request that produced this state.
	Seq uint64
}

// Settled reports whether the state is final for its request.
func (s State[T]) Settled() bool {
	return s.Status != StatusLoading
}

// SourceFetchError wraps a fetch failure with the feed that produced it.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// Query is the parameter set a feed is keyed on. A zero query means
// "nothing to fetch" and resolves to an empty complete state.
type Query interface {
	comparable
	IsZero() bool
}

// FetchFunc loads the data for one query.
type FetchFunc[Q Query, T any] func(ctx context.Context, q Q) ([]T, error)

// Feed holds the state of the latest request for a query.
type Feed[Q Query, T any] struct {
	name  string
	fetch FetchFunc[Q, T]

	mu      sync.Mutex
	seq     uint64
	query   Q
	started bool
	state   State[T]
	settled chan struct{}
	closed  bool

	pubMu sync.Mutex
	subs  []func(State[T])
}

// New creates a feed in the loading state with no request issued yet.
func New[Q Query, T any](name string, fetch FetchFunc[Q, T]) *Feed[Q, T] {
	return &Feed[Q, T]{
		name:    name,
		fetch:   fetch,
		state:   State[T]{Status: StatusLoading},
		settled: make(chan struct{}),
	}
}

func (f *Feed[Q, T]) Name() string {
	return f.name
}

// Subscribe registers fn to be called after every state change with the
// current state. fn must not call Set on the same feed.
func (f *Feed[Q, T]) Subscribe(fn func(State[T])) {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()
	f.subs = append(f.subs, fn)
}

// State returns the current state.
func (f *Feed[Q, T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Query returns the current query and whether one was ever set.
func (f *Feed[Q, T]) Query() (Q, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query, f.started
}

// Set issues a request for q, superseding any request in flight.
// The fetch runs in its own goroutine under ctx.
func (f *Feed[Q, T]) Set(ctx context.Context, q Q) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.query = q
	f.started = true
	f.closeSettled()
	f.settled = make(chan struct{})
	f.closed = false

	if q.IsZero() {
		f.state = State[T]{Data: []T{}, Status: StatusComplete, Seq: seq}
		f.mu.Unlock()
		f.publish()
		f.settle(seq)
		return
	}

	f.state = State[T]{Status: StatusLoading, Seq: seq}
	f.mu.Unlock()
	f.publish()

	go f.run(ctx, seq, q)
}

// SetIfChanged calls Set only when q differs from the current query.
func (f *Feed[Q, T]) SetIfChanged(ctx context.Context, q Q) bool {
	if cur, ok := f.Query(); ok && cur == q {
		return false
	}
	f.Set(ctx, q)
	return true
}

// Refresh re-issues the current query.
func (f *Feed[Q, T]) Refresh(ctx context.Context) {
	q, ok := f.Query()
	if !ok {
		return
	}
	f.Set(ctx, q)
}

func (f *Feed[Q, T]) run(ctx context.Context, seq uint64, q Q) {
	start := time.Now()
	data, err := f.fetch(ctx, q)
	metrics.FeedFetchLatency.WithLabelValues(f.name).Observe(time.Since(start).Seconds())

	f.mu.Lock()
	if seq != f.seq || q != f.query {
		f.mu.Unlock()
		metrics.FeedFetchesTotal.WithLabelValues(f.name, "stale").Inc()
		slog.Debug("Discarding stale feed result", "feed", f.name, "seq", seq)
		return
	}

	if err != nil {
		f.state = State[T]{Status: StatusError, Err: &SourceFetchError{Source: f.name, Err: err}, Seq: seq}
		metrics.FeedFetchesTotal.WithLabelValues(f.name, "error").Inc()
	} else {
		if data == nil {
			data = []T{}
		}
		f.state = State[T]{Data: data, Status: StatusComplete, Seq: seq}
		metrics.FeedFetchesTotal.WithLabelValues(f.name, "complete").Inc()
	}
	f.mu.Unlock()

	if err != nil {
		slog.Warn("Feed fetch failed", "feed", f.name, "error", err)
	}
	f.publish()
	f.settle(seq)
}

// settle wakes Await callers once subscribers have seen the result of seq.
func (f *Feed[Q, T]) settle(seq uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq == f.seq {
		f.closeSettled()
	}
}

// Await blocks until the current request settles and its subscribers have
// been notified, or ctx is done.
func (f *Feed[Q, T]) Await(ctx context.Context) (State[T], error) {
	for {
		f.mu.Lock()
		st, ch := f.state, f.settled
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ch:
		}

		f.mu.Lock()
		st, current := f.state, f.settled == ch
		f.mu.Unlock()
		if current {
			return st, nil
		}
	}
}

// closeSettled must be called with mu held.
func (f *Feed[Q, T]) closeSettled() {
	if !f.closed {
		close(f.settled)
		f.closed = true
	}
}

// publish delivers the latest state so subscribers never observe an older
// state after a newer one.
func (f *Feed[Q, T]) publish() {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()

	st := f.State()
	for _, fn := range f.subs {
		fn(st)
	}
}
