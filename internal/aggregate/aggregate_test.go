package aggregate

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/feed"
	"github.com/vietddude/walletview/internal/notify"
)

func bal(symbol string, amount int64, source domain.SourceTag) domain.AssetBalance {
	return domain.NewAssetBalance(symbol, big.NewInt(amount), 8, source)
}

func stateOf(status feed.Status, data ...domain.AssetBalance) feed.State[domain.AssetBalance] {
	st := feed.State[domain.AssetBalance]{Status: status}
	switch status {
	case feed.StatusComplete:
		st.Data = append([]domain.AssetBalance{}, data...)
	case feed.StatusError:
		st.Err = errors.New("fetch failed")
	}
	return st
}

func TestCombine_AllStatusCombinations(t *testing.T) {
	statuses := []feed.Status{feed.StatusLoading, feed.StatusError, feed.StatusComplete}

	for _, a := range statuses {
		for _, b := range statuses {
			for _, c := range statuses {
				view := Combine(
					NamedState{"native", stateOf(a, bal("CKB", 1, domain.SourceNative))},
					NamedState{"xudt", stateOf(b, bal("TOK", 2, domain.SourceToken))},
					NamedState{"layer1", stateOf(c, bal("BTC", 3, domain.SourceLayer1Native))},
				)

				want := feed.StatusComplete
				switch {
				case a == feed.StatusLoading || b == feed.StatusLoading || c == feed.StatusLoading:
					want = feed.StatusLoading
				case a == feed.StatusError || b == feed.StatusError || c == feed.StatusError:
					want = feed.StatusError
				}

				if view.Status != want {
					t.Errorf("Combine(%s,%s,%s).Status = %s, want %s", a, b, c, view.Status, want)
				}
				if want != feed.StatusComplete && len(view.Data) != 0 {
					t.Errorf("Combine(%s,%s,%s) leaked data %v", a, b, c, view.Data)
				}
				if want == feed.StatusComplete && len(view.Data) != 3 {
					t.Errorf("Combine(complete) data = %v", view.Data)
				}
				if view.Data == nil {
					t.Errorf("Combine(%s,%s,%s) data is nil", a, b, c)
				}
			}
		}
	}
}

func TestCombine_Ordering(t *testing.T) {
	view := Combine(
		NamedState{"layer1", stateOf(feed.StatusComplete,
			bal("RGB1", 7, domain.SourceLayer1Token),
			bal("BTC", 1, domain.SourceLayer1Native),
		)},
		NamedState{"xudt", stateOf(feed.StatusComplete,
			bal("TOKA", 50, domain.SourceToken),
			bal("TOKB", 60, domain.SourceToken),
		)},
		NamedState{"native", stateOf(feed.StatusComplete, bal("CKB", 100, domain.SourceNative))},
	)

	want := []string{"CKB", "BTC", "TOKA", "TOKB", "RGB1"}
	if len(view.Data) != len(want) {
		t.Fatalf("data = %v", view.Data)
	}
	for i, sym := range want {
		if view.Data[i].Symbol != sym {
			t.Errorf("data[%d] = %s, want %s", i, view.Data[i].Symbol, sym)
		}
	}
}

func TestCombine_NativeAndTokenScenario(t *testing.T) {
	view := Combine(
		NamedState{"native", stateOf(feed.StatusComplete, bal("CKB", 100, domain.SourceNative))},
		NamedState{"xudt", stateOf(feed.StatusComplete, bal("TOKA", 50, domain.SourceToken))},
		NamedState{"layer1", stateOf(feed.StatusComplete)},
	)
	if view.Status != feed.StatusComplete || len(view.Data) != 2 ||
		view.Data[0].Symbol != "CKB" || view.Data[1].Symbol != "TOKA" {
		t.Errorf("view = %+v", view)
	}

	view = Combine(
		NamedState{"native", stateOf(feed.StatusComplete, bal("CKB", 100, domain.SourceNative))},
		NamedState{"xudt", stateOf(feed.StatusLoading)},
		NamedState{"layer1", stateOf(feed.StatusComplete)},
	)
	if view.Status != feed.StatusLoading || len(view.Data) != 0 {
		t.Errorf("view = %+v", view)
	}
}

func TestCombine_ErrorListsEverySource(t *testing.T) {
	view := Combine(
		NamedState{"native", stateOf(feed.StatusError)},
		NamedState{"xudt", stateOf(feed.StatusComplete)},
		NamedState{"layer1", stateOf(feed.StatusError)},
	)
	if len(view.Errors) != 2 || view.Errors[0].Source != "native" || view.Errors[1].Source != "layer1" {
		t.Errorf("errors = %+v", view.Errors)
	}
}

type fakeSource struct {
	state feed.State[domain.AssetBalance]
}

func (f *fakeSource) get() feed.State[domain.AssetBalance] { return f.state }

func TestAggregator_ReportsEachErrorOnce(t *testing.T) {
	rec := &notify.Recorder{}
	agg := New(rec)

	native := &fakeSource{state: stateOf(feed.StatusComplete, bal("CKB", 1, domain.SourceNative))}
	tokens := &fakeSource{state: stateOf(feed.StatusError)}
	tokens.state.Seq = 1
	layer1 := &fakeSource{state: stateOf(feed.StatusError)}
	layer1.state.Seq = 1

	agg.Add(Source{Name: "native", State: native.get})
	agg.Add(Source{Name: "xudt", State: tokens.get})
	agg.Add(Source{Name: "layer1", State: layer1.get})

	agg.Refresh()
	agg.Refresh()
	if n := len(rec.Entries()); n != 2 {
		t.Fatalf("notifications = %d, want 2 (one per failing source)", n)
	}
	for _, e := range rec.Entries() {
		if e.Severity != notify.SeverityError {
			t.Errorf("severity = %s", e.Severity)
		}
	}

	// A new failed request for the same source is a new occurrence, even
	// with an identical message.
	tokens.state = stateOf(feed.StatusError)
	tokens.state.Seq = 2
	agg.Refresh()
	if n := len(rec.Entries()); n != 3 {
		t.Errorf("notifications = %d, want 3", n)
	}

	if agg.View().Status != feed.StatusError {
		t.Errorf("view status = %s", agg.View().Status)
	}
}

func TestAggregator_AttachFollowsFeed(t *testing.T) {
	agg := New(nil)
	f := feed.New("native", func(ctx context.Context, q testQuery) ([]domain.AssetBalance, error) {
		return []domain.AssetBalance{bal("CKB", 5, domain.SourceNative)}, nil
	})
	Attach(agg, f)

	views := make(chan View, 4)
	agg.Subscribe(func(v View) { views <- v })

	f.Set(context.Background(), testQuery{"ckb1"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-views:
			if v.Status == feed.StatusComplete {
				if len(v.Data) != 1 || v.Data[0].Symbol != "CKB" {
					t.Errorf("view = %+v", v)
				}
				return
			}
		case <-deadline:
			t.Fatal("aggregator never completed")
		}
	}
}

type testQuery struct{ Addr string }

func (q testQuery) IsZero() bool { return q.Addr == "" }
