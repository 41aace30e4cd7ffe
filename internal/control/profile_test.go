package control_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/walletview/internal/control"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/feed"
	"github.com/vietddude/walletview/internal/infra/ckb/ckbtest"
	"github.com/vietddude/walletview/internal/notify"
	"github.com/vietddude/walletview/internal/session"
	"github.com/vietddude/walletview/internal/sources"
)

const btcAddress = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

type fakeSession struct {
	mu   sync.Mutex
	snap session.Snapshot
	subs []func(session.Snapshot)
}

func (s *fakeSession) Snapshot() session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSession) Subscribe(fn func(session.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *fakeSession) set(snap session.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	subs := append([]func(session.Snapshot){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

type recordedQueries struct {
	mu      sync.Mutex
	balance []sources.BalanceQuery
	layer1  []sources.Layer1Query
	history []sources.AddressQuery
}

func (r *recordedQueries) lastBalance() sources.BalanceQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.balance) == 0 {
		return sources.BalanceQuery{}
	}
	return r.balance[len(r.balance)-1]
}

func (r *recordedQueries) layer1Calls() []sources.Layer1Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sources.Layer1Query(nil), r.layer1...)
}

func balance(symbol string, amount int64, source domain.SourceTag) domain.AssetBalance {
	return domain.NewAssetBalance(symbol, big.NewInt(amount), 8, source)
}

// stubFetchers returns fixed data and records every query.
func stubFetchers(rec *recordedQueries) control.Fetchers {
	return control.Fetchers{
		Native: func(_ context.Context, q sources.BalanceQuery) ([]domain.AssetBalance, error) {
			rec.mu.Lock()
			rec.balance = append(rec.balance, q)
			rec.mu.Unlock()
			return []domain.AssetBalance{balance("CKB", 100, domain.SourceNative)}, nil
		},
		Xudt: func(context.Context, sources.BalanceQuery) ([]domain.AssetBalance, error) {
			return []domain.AssetBalance{balance("TOKA", 50, domain.SourceToken)}, nil
		},
		Layer1: func(_ context.Context, q sources.Layer1Query) ([]domain.AssetBalance, error) {
			rec.mu.Lock()
			rec.layer1 = append(rec.layer1, q)
			rec.mu.Unlock()
			return []domain.AssetBalance{balance("BTC", 7, domain.SourceLayer1Native)}, nil
		},
		Layer1DOBs: func(context.Context, sources.Layer1Query) ([]domain.DigitalObject, error) {
			return []domain.DigitalObject{{ID: "l1", Source: domain.SourceLayer1DOB}}, nil
		},
		Spores: func(_ context.Context, _ sources.BalanceQuery, page, _ int) ([]domain.DigitalObject, error) {
			return []domain.DigitalObject{{ID: "spore-" + string(rune('0'+page)), Source: domain.SourceDOB}}, nil
		},
		History: func(_ context.Context, q sources.AddressQuery, _, _ int) ([]domain.TransactionHistory, error) {
			rec.mu.Lock()
			rec.history = append(rec.history, q)
			rec.mu.Unlock()
			return []domain.TransactionHistory{{ID: string(q.Address)}}, nil
		},
	}
}

func newProfile(t *testing.T, sess *fakeSession, fetchers control.Fetchers, sink notify.Sink) *control.Profile {
	t.Helper()
	p, err := control.NewProfile(control.ProfileConfig{Session: sess, Fetchers: fetchers, Sink: sink})
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}
	p.Start(context.Background())
	return p
}

func await(t *testing.T, p *control.Profile) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Await(ctx); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
}

func TestProfile_NotStarted(t *testing.T) {
	p, err := control.NewProfile(control.ProfileConfig{
		Session:  &fakeSession{},
		Fetchers: stubFetchers(&recordedQueries{}),
	})
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}
	if err := p.Load(domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))); !errors.Is(err, control.ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if err := p.SetHistoryPage(2); !errors.Is(err, control.ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestProfile_MissingFetcher(t *testing.T) {
	fetchers := stubFetchers(&recordedQueries{})
	fetchers.History = nil
	if _, err := control.NewProfile(control.ProfileConfig{Session: &fakeSession{}, Fetchers: fetchers}); err == nil {
		t.Fatal("expected error for missing fetcher")
	}
}

func TestProfile_NoAddressIsEmptyAndComplete(t *testing.T) {
	rec := &recordedQueries{}
	p := newProfile(t, &fakeSession{snap: session.Snapshot{Network: domain.NetworkMainnet}}, stubFetchers(rec), nil)
	await(t, p)

	view := p.Assets()
	if view.Status != feed.StatusComplete || len(view.Data) != 0 {
		t.Errorf("expected empty complete view, got %+v", view)
	}
	if h := p.History(); h.Status != feed.StatusComplete || len(h.Data) != 0 {
		t.Errorf("expected empty complete history, got %+v", h)
	}
	if len(rec.history) != 0 || len(rec.balance) != 0 {
		t.Error("no fetch should be issued without an address")
	}
}

func TestProfile_CombinedAssets(t *testing.T) {
	addr := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))
	p := newProfile(t, &fakeSession{snap: session.Snapshot{Network: domain.NetworkMainnet, Generation: 1}}, stubFetchers(&recordedQueries{}), nil)

	if err := p.Load(addr); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)

	view := p.Assets()
	if view.Status != feed.StatusComplete {
		t.Fatalf("expected complete, got %s", view.Status)
	}
	if len(view.Data) != 2 || view.Data[0].Symbol != "CKB" || view.Data[1].Symbol != "TOKA" {
		t.Errorf("unexpected combined data: %v", view.Data)
	}
}

func TestProfile_InvalidAddress(t *testing.T) {
	p := newProfile(t, &fakeSession{}, stubFetchers(&recordedQueries{}), nil)
	if err := p.Load("not-an-address"); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestProfile_OwnerUsesAddressList(t *testing.T) {
	addr := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))
	other := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 2))
	sess := &fakeSession{snap: session.Snapshot{
		State:      session.StateConnected,
		Network:    domain.NetworkMainnet,
		Generation: 3,
		Addresses:  &session.Addresses{Recommended: addr, List: []domain.Address{other, addr}},
	}}
	rec := &recordedQueries{}
	p := newProfile(t, sess, stubFetchers(rec), nil)

	if err := p.Load(addr); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)

	want := sources.NewBalanceQuery(domain.AddressSet{other, addr}, domain.NetworkMainnet, 3)
	if got := rec.lastBalance(); got != want {
		t.Errorf("expected query %+v, got %+v", want, got)
	}

	// A viewer with an unrelated wallet only queries the profile address.
	if err := p.Load(domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 9))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)
	if set := p.AddressSet(); len(set) != 1 {
		t.Errorf("expected singleton set, got %v", set)
	}
}

func TestProfile_Layer1Gate(t *testing.T) {
	addr := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))
	sess := &fakeSession{snap: session.Snapshot{
		State:     session.StateConnected,
		Network:   domain.NetworkMainnet,
		Addresses: &session.Addresses{Internal: btcAddress, Recommended: addr, List: []domain.Address{addr}},
	}}
	rec := &recordedQueries{}
	p := newProfile(t, sess, stubFetchers(rec), nil)

	if err := p.Load(addr); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)

	calls := rec.layer1Calls()
	if len(calls) != 1 || calls[0].Address != btcAddress {
		t.Fatalf("expected one layer-1 fetch for %s, got %v", btcAddress, calls)
	}
	view := p.Assets()
	if len(view.Data) != 3 || view.Data[1].Symbol != "BTC" {
		t.Errorf("expected BTC after CKB, got %v", view.Data)
	}
	dobs := p.DOBs()
	if dobs.Status != feed.StatusComplete || len(dobs.Data) != 2 || dobs.Data[0].ID != "l1" {
		t.Errorf("expected layer-1 DOB first, got %+v", dobs)
	}

	// Viewing someone else's profile turns the layer-1 feed off.
	if err := p.Load(domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 2))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)
	if got := len(rec.layer1Calls()); got != 1 {
		t.Errorf("expected no further layer-1 fetch, got %d calls", got)
	}
	if view := p.Assets(); len(view.Data) != 2 {
		t.Errorf("expected layer-1 balance dropped, got %v", view.Data)
	}
}

func TestProfile_HistoryDiscardedOnNetworkSwitch(t *testing.T) {
	addr := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))
	sess := &fakeSession{snap: session.Snapshot{Network: domain.NetworkMainnet, Generation: 1}}

	gate := make(chan struct{})
	var oldDone atomic.Bool
	fetchers := stubFetchers(&recordedQueries{})
	fetchers.History = func(_ context.Context, q sources.AddressQuery, _, _ int) ([]domain.TransactionHistory, error) {
		if q.Generation == 1 {
			<-gate
			defer oldDone.Store(true)
			return []domain.TransactionHistory{{ID: "mainnet"}}, nil
		}
		return []domain.TransactionHistory{{ID: "fresh"}}, nil
	}
	p := newProfile(t, sess, fetchers, nil)
	if err := p.Load(addr); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sess.set(session.Snapshot{Network: domain.NetworkTestnet, Generation: 2})
	await(t, p)
	close(gate)

	deadline := time.Now().Add(time.Second)
	for !oldDone.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	h := p.History()
	if len(h.Data) != 1 || h.Data[0].ID != "fresh" {
		t.Errorf("stale history applied: %+v", h)
	}
}

func TestProfile_HistoryAddressAndPages(t *testing.T) {
	addr := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))
	other := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 2))
	sess := &fakeSession{snap: session.Snapshot{
		State:     session.StateConnected,
		Network:   domain.NetworkMainnet,
		Addresses: &session.Addresses{Recommended: addr, List: []domain.Address{addr, other}},
	}}
	p := newProfile(t, sess, stubFetchers(&recordedQueries{}), nil)
	if err := p.Load(addr); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)

	if err := p.SelectHistoryAddress(domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 7))); !errors.Is(err, control.ErrUnknownAddress) {
		t.Errorf("expected ErrUnknownAddress, got %v", err)
	}
	if err := p.SelectHistoryAddress(other); err != nil {
		t.Fatalf("SelectHistoryAddress failed: %v", err)
	}
	await(t, p)
	if h := p.History(); len(h.Data) != 1 || h.Data[0].ID != string(other) {
		t.Errorf("expected history of %s, got %+v", other, h)
	}

	if err := p.SetHistoryPage(0); !errors.Is(err, feed.ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}
	if err := p.SetDOBPage(3); err != nil {
		t.Fatalf("SetDOBPage failed: %v", err)
	}
	await(t, p)
	if p.DOBPage() != 3 {
		t.Errorf("expected DOB page 3, got %d", p.DOBPage())
	}
	if dobs := p.DOBs(); len(dobs.Data) != 1 || dobs.Data[0].ID != "spore-3" {
		t.Errorf("unexpected DOB page: %+v", dobs)
	}
}

func TestProfile_ErrorsReportedOnce(t *testing.T) {
	addr := domain.Address(ckbtest.SecpAddress(domain.NetworkMainnet, 1))
	fetchers := stubFetchers(&recordedQueries{})
	fetchers.Xudt = func(context.Context, sources.BalanceQuery) ([]domain.AssetBalance, error) {
		return nil, errors.New("indexer down")
	}
	fetchers.History = func(context.Context, sources.AddressQuery, int, int) ([]domain.TransactionHistory, error) {
		return nil, errors.New("explorer down")
	}
	rec := &notify.Recorder{}
	p := newProfile(t, &fakeSession{snap: session.Snapshot{Network: domain.NetworkMainnet}}, fetchers, rec)

	if err := p.Load(addr); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	await(t, p)

	if view := p.Assets(); view.Status != feed.StatusError || len(view.Data) != 0 {
		t.Errorf("expected error view without data, got %+v", view)
	}
	// Re-reading the profile does not report again.
	_ = p.Assets()
	_ = p.History()

	entries := rec.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 notifications, got %v", entries)
	}
	for _, e := range entries {
		if e.Severity != notify.SeverityError {
			t.Errorf("unexpected severity %s", e.Severity)
		}
	}
}
