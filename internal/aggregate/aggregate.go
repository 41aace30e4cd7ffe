// Package aggregate combines several asset feeds into one list.
package aggregate

import (
	"sort"
	"sync"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/feed"
	"github.com/vietddude/walletview/internal/notify"
)

// NamedState is one source's contribution to a combination.
type NamedState struct {
	Name  string
	State feed.State[domain.AssetBalance]
}

// SourceError is an error reported by one source.
type SourceError struct {
	Source string
	Err    error
	Seq    uint64
}

// View is the combined asset list.
type View struct {
	Status feed.Status           `json:"status"`
	Data   []domain.AssetBalance `json:"data"`
	Errors []SourceError         `json:"-"`
}

// Combine merges source states. Any loading source makes the view loading;
// otherwise any errored source makes it an error; otherwise the data of all
// sources is concatenated in source-tag order. Data is empty unless the
// view is complete.
func Combine(states ...NamedState) View {
	view := View{Status: feed.StatusComplete, Data: []domain.AssetBalance{}}

	for _, s := range states {
		if s.State.Status == feed.StatusLoading {
			return View{Status: feed.StatusLoading, Data: []domain.AssetBalance{}}
		}
	}

	for _, s := range states {
		if s.State.Status == feed.StatusError {
			view.Status = feed.StatusError
			view.Errors = append(view.Errors, SourceError{Source: s.Name, Err: s.State.Err, Seq: s.State.Seq})
		}
	}
	if view.Status == feed.StatusError {
		return view
	}

	for _, s := range states {
		view.Data = append(view.Data, s.State.Data...)
	}
	sort.SliceStable(view.Data, func(i, j int) bool {
		return view.Data[i].Source.Rank() < view.Data[j].Source.Rank()
	})
	return view
}

// Source supplies the current state of one feed.
type Source struct {
	Name  string
	State func() feed.State[domain.AssetBalance]
}

// Aggregator keeps a combined view current and reports each source error
// to the sink once per failed request.
type Aggregator struct {
	sink notify.Sink

	mu       sync.Mutex
	sources  []Source
	view     View
	reported map[string]uint64

	pubMu sync.Mutex
	subs  []func(View)
}

func New(sink notify.Sink) *Aggregator {
	return &Aggregator{
		sink:     sink,
		view:     View{Status: feed.StatusLoading, Data: []domain.AssetBalance{}},
		reported: make(map[string]uint64),
	}
}

// Add registers a source. Call Refresh after sources change.
func (a *Aggregator) Add(src Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = append(a.sources, src)
}

// Attach registers a feed of balances and refreshes on each of its changes.
func Attach[Q feed.Query](a *Aggregator, f *feed.Feed[Q, domain.AssetBalance]) {
	a.Add(Source{Name: f.Name(), State: f.State})
	f.Subscribe(func(feed.State[domain.AssetBalance]) { a.Refresh() })
}

// Subscribe registers fn to receive every recomputed view.
func (a *Aggregator) Subscribe(fn func(View)) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	a.subs = append(a.subs, fn)
}

// View returns the latest combined view.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Refresh recomputes the view from the current source states.
func (a *Aggregator) Refresh() View {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()

	a.mu.Lock()
	states := make([]NamedState, len(a.sources))
	for i, src := range a.sources {
		states[i] = NamedState{Name: src.Name, State: src.State()}
	}
	view := Combine(states...)
	a.view = view

	var pending []SourceError
	for _, s := range states {
		if s.State.Status != feed.StatusError {
			continue
		}
		if seq, ok := a.reported[s.Name]; ok && seq == s.State.Seq {
			continue
		}
		a.reported[s.Name] = s.State.Seq
		pending = append(pending, SourceError{Source: s.Name, Err: s.State.Err, Seq: s.State.Seq})
	}
	a.mu.Unlock()

	if a.sink != nil {
		for _, e := range pending {
			a.sink.Notify(e.Err.Error(), notify.SeverityError)
		}
	}
	for _, fn := range a.subs {
		fn(view)
	}
	return view
}
