package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/walletview/internal/aggregate"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/feed"
	"github.com/vietddude/walletview/internal/infra/ckb"
	"github.com/vietddude/walletview/internal/notify"
	"github.com/vietddude/walletview/internal/session"
	"github.com/vietddude/walletview/internal/sources"
)

var (
	ErrNotStarted     = errors.New("profile not started")
	ErrUnknownAddress = errors.New("address is not part of the profile")
)

// Feed names double as source names in notifications.
const (
	FeedNative     = "native"
	FeedXudt       = "xudt"
	FeedLayer1     = "layer1"
	FeedLayer1DOBs = "layer1-dobs"
	FeedSpores     = "spores"
	FeedHistory    = "history"
)

// Session is what a profile needs from the session manager.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot))
}

// Fetchers are the per-source loaders behind the profile feeds.
type Fetchers struct {
	Native     feed.FetchFunc[sources.BalanceQuery, domain.AssetBalance]
	Xudt       feed.FetchFunc[sources.BalanceQuery, domain.AssetBalance]
	Layer1     feed.FetchFunc[sources.Layer1Query, domain.AssetBalance]
	Layer1DOBs feed.FetchFunc[sources.Layer1Query, domain.DigitalObject]
	Spores     feed.PageFetchFunc[sources.BalanceQuery, domain.DigitalObject]
	History    feed.PageFetchFunc[sources.AddressQuery, domain.TransactionHistory]
}

// ProfileConfig configures a Profile.
type ProfileConfig struct {
	Session         Session
	Fetchers        Fetchers
	Sink            notify.Sink
	HistoryPageSize int
	DOBPageSize     int
}

// Profile is the view of one account: its combined balances, its digital
// objects and its transaction history. Queries are recomputed from the
// profile address and the session every time either changes.
type Profile struct {
	sess Session
	log  *slog.Logger

	native     *feed.Feed[sources.BalanceQuery, domain.AssetBalance]
	xudt       *feed.Feed[sources.BalanceQuery, domain.AssetBalance]
	layer1     *feed.Feed[sources.Layer1Query, domain.AssetBalance]
	layer1DOBs *feed.Feed[sources.Layer1Query, domain.DigitalObject]
	spores     *feed.Paginated[sources.BalanceQuery, domain.DigitalObject]
	history    *feed.Paginated[sources.AddressQuery, domain.TransactionHistory]
	agg        *aggregate.Aggregator

	recomputeMu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	address     domain.Address
	historyAddr domain.Address
	set         domain.AddressSet
}

func NewProfile(cfg ProfileConfig) (*Profile, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("profile: session is required")
	}
	f := cfg.Fetchers
	if f.Native == nil || f.Xudt == nil || f.Layer1 == nil || f.Layer1DOBs == nil || f.Spores == nil || f.History == nil {
		return nil, fmt.Errorf("profile: all fetchers are required")
	}
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = sources.DefaultHistoryPageSize
	}
	if cfg.DOBPageSize <= 0 {
		cfg.DOBPageSize = 20
	}

	p := &Profile{
		sess:       cfg.Session,
		log:        slog.Default().With("component", "profile"),
		native:     feed.New(FeedNative, f.Native),
		xudt:       feed.New(FeedXudt, f.Xudt),
		layer1:     feed.New(FeedLayer1, f.Layer1),
		layer1DOBs: feed.New(FeedLayer1DOBs, f.Layer1DOBs),
		spores:     feed.NewPaginated(FeedSpores, cfg.DOBPageSize, f.Spores),
		history:    feed.NewPaginated(FeedHistory, cfg.HistoryPageSize, f.History),
		agg:        aggregate.New(cfg.Sink),
	}
	aggregate.Attach(p.agg, p.native)
	aggregate.Attach(p.agg, p.xudt)
	aggregate.Attach(p.agg, p.layer1)
	p.agg.Subscribe(func(v aggregate.View) {
		if v.Status != feed.StatusLoading {
			p.log.Debug("Assets view settled", "status", v.Status, "count", len(v.Data), "errors", len(v.Errors))
		}
	})

	// Listing feeds are outside the aggregator but report errors the same way.
	reportErrors(cfg.Sink, p.layer1DOBs)
	reportErrors(cfg.Sink, p.spores.Feed)
	reportErrors(cfg.Sink, p.history.Feed)
	return p, nil
}

// Start binds the profile to ctx and follows session changes.
func (p *Profile) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	p.sess.Subscribe(func(session.Snapshot) { p.recompute() })
	p.recompute()
}

// Load shows addr. The history address resets to addr.
func (p *Profile) Load(addr domain.Address) error {
	if addr != "" {
		if _, _, err := ckb.ParseAddress(string(addr)); err != nil {
			return fmt.Errorf("profile address: %w", err)
		}
	}

	p.mu.Lock()
	if p.ctx == nil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.address = addr
	p.historyAddr = addr
	p.mu.Unlock()

	p.log.Info("Loading profile", "address", addr)
	p.recompute()
	return nil
}

// Address returns the profile address.
func (p *Profile) Address() domain.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

// AddressSet returns the addresses balances are queried for.
func (p *Profile) AddressSet() domain.AddressSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(domain.AddressSet(nil), p.set...)
}

// SelectHistoryAddress points the history feed at another address of the
// profile's address set.
func (p *Profile) SelectHistoryAddress(addr domain.Address) error {
	p.mu.Lock()
	if p.ctx == nil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if !p.set.Contains(addr) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	p.historyAddr = addr
	p.mu.Unlock()

	p.recompute()
	return nil
}

// SetHistoryPage selects a history page, starting at 1.
func (p *Profile) SetHistoryPage(page int) error {
	ctx, err := p.runContext()
	if err != nil {
		return err
	}
	return p.history.SetPage(ctx, page)
}

// SetDOBPage selects a page of the chain-native digital objects.
func (p *Profile) SetDOBPage(page int) error {
	ctx, err := p.runContext()
	if err != nil {
		return err
	}
	return p.spores.SetPage(ctx, page)
}

func (p *Profile) HistoryPage() int {
	return p.history.Page()
}

func (p *Profile) DOBPage() int {
	return p.spores.Page()
}

// Assets returns the combined balance view.
func (p *Profile) Assets() aggregate.View {
	return p.agg.View()
}

// History returns the current history page.
func (p *Profile) History() feed.State[domain.TransactionHistory] {
	return p.history.State()
}

// DOBs returns layer-1 digital objects followed by the current page of
// chain-native ones.
func (p *Profile) DOBs() feed.State[domain.DigitalObject] {
	return feed.Merge(p.layer1DOBs.State(), p.spores.State())
}

// Await blocks until every feed has settled.
func (p *Profile) Await(ctx context.Context) error {
	waits := []func(context.Context) error{
		awaitFeed(p.native),
		awaitFeed(p.xudt),
		awaitFeed(p.layer1),
		awaitFeed(p.layer1DOBs),
		awaitFeed(p.spores.Feed),
		awaitFeed(p.history.Feed),
	}
	for _, wait := range waits {
		if err := wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// recompute derives every feed query from the profile address and the
// current session. Feeds whose query did not change keep their state.
func (p *Profile) recompute() {
	p.recomputeMu.Lock()
	defer p.recomputeMu.Unlock()

	snap := p.sess.Snapshot()
	p.mu.Lock()
	ctx := p.ctx
	if ctx == nil {
		p.mu.Unlock()
		return
	}
	addr := p.address

	var list []domain.Address
	if snap.Addresses != nil {
		list = snap.Addresses.List
	}
	set := domain.NewAddressSet()
	if addr != "" {
		set = domain.ResolveAddressSet(addr, list)
	}
	p.set = set
	if !set.Contains(p.historyAddr) {
		p.historyAddr = addr
	}
	historyAddr := p.historyAddr
	p.mu.Unlock()

	balances := sources.BalanceQuery{}
	if len(set) > 0 {
		balances = sources.NewBalanceQuery(set, snap.Network, snap.Generation)
	}
	layer1 := sources.Layer1Query{}
	if layer1Owner(snap, addr) {
		layer1.Address = string(snap.Addresses.Internal)
	}
	history := sources.AddressQuery{}
	if historyAddr != "" {
		history = sources.AddressQuery{Address: historyAddr, Generation: snap.Generation}
	}

	p.native.SetIfChanged(ctx, balances)
	p.xudt.SetIfChanged(ctx, balances)
	p.layer1.SetIfChanged(ctx, layer1)
	p.layer1DOBs.SetIfChanged(ctx, layer1)
	p.spores.SetQuery(ctx, balances)
	p.history.SetQuery(ctx, history)
}

// layer1Owner reports whether the connected wallet is a layer-1 wallet
// logged in as the profile address.
func layer1Owner(snap session.Snapshot, addr domain.Address) bool {
	if snap.Addresses == nil || addr == "" {
		return false
	}
	return sources.IsLayer1Address(string(snap.Addresses.Internal)) && snap.Addresses.Recommended == addr
}

func (p *Profile) runContext() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil, ErrNotStarted
	}
	return p.ctx, nil
}

func awaitFeed[Q feed.Query, T any](f *feed.Feed[Q, T]) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := f.Await(ctx)
		return err
	}
}

// reportErrors sends each failed request of f to sink once.
func reportErrors[Q feed.Query, T any](sink notify.Sink, f *feed.Feed[Q, T]) {
	if sink == nil {
		return
	}
	var (
		mu       sync.Mutex
		reported uint64
	)
	f.Subscribe(func(st feed.State[T]) {
		if st.Status != feed.StatusError {
			return
		}
		mu.Lock()
		if st.Seq == reported {
			mu.Unlock()
			return
		}
		reported = st.Seq
		mu.Unlock()
		sink.Notify(st.Err.Error(), notify.SeverityError)
	})
}
