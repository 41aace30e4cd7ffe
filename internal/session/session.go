// Package session owns the active network, its chain client and the
// connected signer.
//
// Every reset (disconnect, signer loss, network switch) bumps the session
// generation. Work started under one generation checks it again before
// writing back, so nothing resolved for an old session can leak into a new
// one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
	"github.com/vietddude/walletview/internal/infra/storage"
	"github.com/vietddude/walletview/internal/metrics"
	"github.com/vietddude/walletview/internal/notify"
)

var (
	// ErrNoSigner is returned when an operation needs a connected signer.
	ErrNoSigner = errors.New("no signer connected")

	// ErrConnectionUnavailable means no wallet could be detected. Open
	// reports it to the notification sink instead of returning it.
	ErrConnectionUnavailable = errors.New("no wallet detected")

	// ErrStaleGeneration is returned for a generation that has been reset.
	ErrStaleGeneration = errors.New("session generation is stale")
)

// Instructions shown to the user for the errors above.
const (
	ConnectWalletMessage = "Please connect wallet first"
	InstallWalletMessage = "Please install wallet to explorer or open in wallet app"
)

// UserMessage returns the instruction for a wallet error, or "" when err
// has none.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSigner):
		return ConnectWalletMessage
	case errors.Is(err, ErrConnectionUnavailable):
		return InstallWalletMessage
	}
	return ""
}

// Wallet describes the connected wallet software.
type Wallet struct {
	Name string
}

// Signer is the external signing capability. It never exposes keys.
type Signer interface {
	GetInternalAddress(ctx context.Context) (string, error)
	GetRecommendedAddress(ctx context.Context) (string, error)
	GetAddresses(ctx context.Context) ([]string, error)
	SendTransaction(ctx context.Context, tx *ckb.Transaction) (string, error)
}

// Connector finds and connects a wallet in the host environment.
type Connector interface {
	// Detect reports whether any compatible wallet is present.
	Detect() bool
	Connect(ctx context.Context, network domain.Network) (Signer, Wallet, error)
	Disconnect() error
}

// ClientFactory builds the chain client for a network.
type ClientFactory func(network domain.Network) (ckb.ChainClient, error)

// Addresses are resolved from the signer as one unit.
type Addresses struct {
	Internal    domain.Address
	Recommended domain.Address
	List        []domain.Address
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	State      State
	Network    domain.Network
	Generation uint64
	Client     ckb.ChainClient
	Signer     Signer
	Wallet     Wallet
	// Addresses is nil until all three fields have been resolved.
	Addresses *Addresses
}

// Connected reports whether a signer is attached.
func (s Snapshot) Connected() bool {
	return s.State == StateConnected && s.Signer != nil
}

// Manager is the single owner of the session. Only Manager replaces the
// active client or signer.
type Manager struct {
	connector Connector
	clients   ClientFactory
	prefs     storage.PreferenceRepository
	sink      notify.Sink
	log       *slog.Logger

	mu         sync.RWMutex
	state      State
	network    domain.Network
	generation uint64
	client     ckb.ChainClient
	signer     Signer
	wallet     Wallet
	addrs      *Addresses
	addrsReady chan struct{}
	readyDone  bool

	pubMu sync.Mutex
	subs  []func(Snapshot)
}

// Config bundles the Manager's collaborators.
type Config struct {
	Connector Connector
	Clients   ClientFactory
	Prefs     storage.PreferenceRepository
	Sink      notify.Sink
	// Default is used when no network has been persisted.
	Default domain.Network
}

// NewManager restores the persisted network and builds its client.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Connector == nil || cfg.Clients == nil || cfg.Prefs == nil {
		return nil, errors.New("session: connector, clients and prefs are required")
	}
	if cfg.Sink == nil {
		cfg.Sink = notify.NewLogSink(slog.Default())
	}

	network := cfg.Default
	if network == "" {
		network = domain.NetworkMainnet
	}
	stored, err := cfg.Prefs.Get(ctx, storage.NetworkKey)
	switch {
	case err == nil:
		if n, perr := domain.ParseNetwork(stored); perr == nil {
			network = n
		} else {
			slog.Warn("Ignoring invalid persisted network", "value", stored)
		}
	case errors.Is(err, storage.ErrPreferenceNotFound):
	default:
		return nil, fmt.Errorf("failed to read network preference: %w", err)
	}

	client, err := cfg.Clients(network)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", network, err)
	}

	m := &Manager{
		connector:  cfg.Connector,
		clients:    cfg.Clients,
		prefs:      cfg.Prefs,
		sink:       cfg.Sink,
		log:        slog.Default().With("component", "session"),
		state:      StateDisconnected,
		network:    network,
		client:     client,
		addrsReady: make(chan struct{}),
	}
	setActiveNetwork(network)
	return m, nil
}

// Open connects a wallet on the active network. With no wallet present the
// user is told to install one and the session stays disconnected.
func (m *Manager) Open(ctx context.Context) error {
	if !m.connector.Detect() {
		m.sink.Notify(InstallWalletMessage, notify.SeverityWarning)
		return nil
	}

	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	if err := m.transition(StateConnecting); err != nil {
		m.mu.Unlock()
		return err
	}
	gen, network := m.generation, m.network
	m.mu.Unlock()
	m.publish()

	signer, wallet, err := m.connector.Connect(ctx, network)

	m.mu.Lock()
	if m.generation != gen {
		// Reset while connecting. The new session owns the state now.
		m.mu.Unlock()
		if err == nil {
			_ = m.connector.Disconnect()
		}
		return nil
	}
	if err != nil {
		_ = m.transition(StateDisconnected)
		m.renewReady()
		m.mu.Unlock()
		m.publish()
		return fmt.Errorf("failed to connect wallet: %w", err)
	}
	if err := m.transition(StateConnected); err != nil {
		m.mu.Unlock()
		return err
	}
	m.signer = signer
	m.wallet = wallet
	m.addrs = nil
	m.renewReady()
	m.mu.Unlock()

	m.log.Info("Wallet connected", "wallet", wallet.Name, "network", network)
	m.publish()

	go m.resolveAddresses(context.WithoutCancel(ctx), gen, signer)
	return nil
}

func (m *Manager) resolveAddresses(ctx context.Context, gen uint64, signer Signer) {
	addrs, err := fetchAddresses(ctx, signer)

	m.mu.Lock()
	if m.generation != gen || m.signer != signer {
		m.mu.Unlock()
		return
	}
	if err != nil {
		// A signer that cannot name its addresses is treated as lost.
		m.resetLocked()
		m.mu.Unlock()

		m.log.Warn("Failed to resolve signer addresses", "error", err)
		m.sink.Notify(err.Error(), notify.SeverityError)
		m.log.Info("Session reset", "reason", "signer lost")
		m.publish()
		return
	}
	m.addrs = addrs
	close(m.addrsReady)
	m.readyDone = true
	m.mu.Unlock()

	m.log.Debug("Signer addresses resolved", "recommended", addrs.Recommended, "count", len(addrs.List))
	m.publish()
}

func fetchAddresses(ctx context.Context, signer Signer) (*Addresses, error) {
	internal, err := signer.GetInternalAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("get internal address: %w", err)
	}
	recommended, err := signer.GetRecommendedAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recommended address: %w", err)
	}
	list, err := signer.GetAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("get addresses: %w", err)
	}

	addrs := &Addresses{
		Internal:    domain.Address(internal),
		Recommended: domain.Address(recommended),
		List:        make([]domain.Address, len(list)),
	}
	for i, a := range list {
		addrs.List[i] = domain.Address(a)
	}
	return addrs, nil
}

// Disconnect drops the signer and asks the connector to close the wallet.
func (m *Manager) Disconnect() error {
	err := m.connector.Disconnect()
	if err != nil {
		m.log.Warn("Wallet disconnect failed", "error", err)
	}
	m.reset("disconnect")
	return err
}

func (m *Manager) reset(reason string) {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()

	m.log.Info("Session reset", "reason", reason)
	m.publish()
}

// resetLocked must be called with mu held.
func (m *Manager) resetLocked() {
	if m.state != StateDisconnected {
		_ = m.transition(StateDisconnected)
	}
	m.generation++
	m.signer = nil
	m.wallet = Wallet{}
	m.addrs = nil
	m.renewReady()
}

// SwitchNetwork disconnects, swaps the active network and client, persists
// the choice and reconnects. In-flight work for the old network is left to
// fail its generation check.
func (m *Manager) SwitchNetwork(ctx context.Context, target domain.Network) error {
	if _, err := domain.ParseNetwork(string(target)); err != nil {
		return err
	}
	client, err := m.clients(target)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", target, err)
	}

	if err := m.connector.Disconnect(); err != nil {
		m.log.Warn("Wallet disconnect failed", "error", err)
	}

	m.mu.Lock()
	if m.state != StateDisconnected {
		_ = m.transition(StateDisconnected)
	}
	from := m.network
	m.generation++
	m.network = target
	m.client = client
	m.signer = nil
	m.wallet = Wallet{}
	m.addrs = nil
	m.renewReady()
	m.mu.Unlock()

	setActiveNetwork(target)
	m.log.Info("Network switched", "from", from, "to", target)
	m.publish()

	if err := m.prefs.Set(ctx, storage.NetworkKey, string(target)); err != nil {
		m.log.Warn("Failed to persist network", "error", err)
	}
	return m.Open(ctx)
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      m.state,
		Network:    m.network,
		Generation: m.generation,
		Client:     m.client,
		Signer:     m.signer,
		Wallet:     m.wallet,
	}
	if m.addrs != nil {
		a := *m.addrs
		a.List = append([]domain.Address(nil), m.addrs.List...)
		s.Addresses = &a
	}
	return s
}

// Network returns the active network.
func (m *Manager) Network() domain.Network {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.network
}

// ClientAt returns the active client if gen is still the current generation.
func (m *Manager) ClientAt(gen uint64) (ckb.ChainClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if gen != m.generation {
		return nil, ErrStaleGeneration
	}
	return m.client, nil
}

// AwaitAddresses blocks until the connected signer's addresses resolve.
func (m *Manager) AwaitAddresses(ctx context.Context) (Addresses, error) {
	for {
		m.mu.RLock()
		state, addrs, ch := m.state, m.addrs, m.addrsReady
		m.mu.RUnlock()

		if state == StateDisconnected {
			return Addresses{}, ErrNoSigner
		}
		if addrs != nil {
			return *addrs, nil
		}
		select {
		case <-ctx.Done():
			return Addresses{}, ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (m *Manager) Subscribe(fn func(Snapshot)) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Manager) publish() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	s := m.Snapshot()
	for _, fn := range m.subs {
		fn(s)
	}
}

// renewReady wakes any AwaitAddresses caller and arms a fresh channel.
// Must be called with mu held.
func (m *Manager) renewReady() {
	if !m.readyDone {
		close(m.addrsReady)
	}
	m.addrsReady = make(chan struct{})
	m.readyDone = false
}

// transition must be called with mu held.
func (m *Manager) transition(to State) error {
	t := NewTransition(m.state, to, "")
	if !t.IsValid() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}
	metrics.SessionTransitionsTotal.WithLabelValues(string(t.From), string(t.To)).Inc()
	m.state = to
	return nil
}

func setActiveNetwork(n domain.Network) {
	for _, net := range []domain.Network{domain.NetworkMainnet, domain.NetworkTestnet} {
		v := 0.0
		if net == n {
			v = 1
		}
		metrics.ActiveNetwork.WithLabelValues(string(net)).Set(v)
	}
}
