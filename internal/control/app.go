// Package control wires the wallet profile application together.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/walletview/internal/core/config"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/health"
	"github.com/vietddude/walletview/internal/infra/ckb"
	redisclient "github.com/vietddude/walletview/internal/infra/redis"
	"github.com/vietddude/walletview/internal/infra/rpc"
	"github.com/vietddude/walletview/internal/infra/signer"
	"github.com/vietddude/walletview/internal/infra/storage"
	"github.com/vietddude/walletview/internal/infra/storage/file"
	"github.com/vietddude/walletview/internal/infra/storage/postgres"
	"github.com/vietddude/walletview/internal/notify"
	"github.com/vietddude/walletview/internal/session"
	"github.com/vietddude/walletview/internal/sources"
	"github.com/vietddude/walletview/internal/transfer"
)

// App owns every long-lived component of a walletview process.
type App struct {
	cfg *config.AppConfig
	log *slog.Logger

	db          *postgres.DB
	redisClient *redisclient.Client
	prefs       storage.PreferenceRepository
	sink        notify.Sink
	router      rpc.Router

	Session  *session.Manager
	Profile  *Profile
	Transfer *transfer.Builder
	Registry *sources.Registry

	monitor      *health.Monitor
	healthServer *health.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	Connector session.Connector
	Prefs     storage.PreferenceRepository
	Clients   session.ClientFactory
	Sink      notify.Sink
}

// NewApp creates the application with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	a := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	// 1. Storage
	if err := a.initStorage(ctx, opts.Prefs); err != nil {
		a.close()
		return nil, err
	}

	// 2. Notifications
	sinks := notify.Multi{notify.NewLogSink(nil)}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}
	if a.redisClient != nil && cfg.Redis.NotifyChannel != "" {
		sinks = append(sinks, notify.NewRedisSink(a.redisClient, cfg.Redis.NotifyChannel))
	}
	a.sink = sinks

	// 3. Transport
	a.router = a.buildRouter()
	retry := rpc.DefaultRetryConfig
	if cfg.RPC.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.RPC.RetryAttempts
	}

	clients := opts.Clients
	if clients == nil {
		clients = a.clientFactory(retry)
	}
	connector := opts.Connector
	if connector == nil {
		connector = signer.NewConnector(signer.Config{
			URL:     cfg.Signer.URL,
			Wallet:  cfg.Signer.Wallet,
			Timeout: cfg.Signer.Timeout,
		})
	}

	// 4. Session
	sess, err := session.NewManager(ctx, session.Config{
		Connector: connector,
		Clients:   clients,
		Prefs:     a.prefs,
		Sink:      a.sink,
		Default:   cfg.Network,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to init session: %w", err)
	}
	a.Session = sess

	// 5. Sources
	a.Registry = sources.NewRegistry()
	for _, t := range cfg.Tokens {
		a.Registry.Add(t.Descriptor())
	}

	explorer := sources.NewBackend("explorer", a.pools("explorer", retry, func(n config.NetworkConfig) string {
		return n.ExplorerAPI
	}), cfg.Explorer.RatePerSecond, sources.ExplorerHeaders)
	btcAssets := sources.NewBackend("btc-assets", a.pools("btc-assets", retry, func(n config.NetworkConfig) string {
		return n.BTCAssetsAPI
	}), cfg.Explorer.RatePerSecond, btcAssetsHeaders(cfg.Networks))

	native := sources.NewNativeFetcher(sess)
	xudt := sources.NewXudtFetcher(sess, a.Registry)
	spores := sources.NewSporeFetcher(sess)
	history := sources.NewHistoryFetcher(explorer)
	layer1 := sources.NewLayer1Fetcher(btcAssets, a.Registry)

	// 6. Profile
	a.Profile, err = NewProfile(ProfileConfig{
		Session: sess,
		Fetchers: Fetchers{
			Native:     native.Fetch,
			Xudt:       xudt.Fetch,
			Layer1:     layer1.FetchBalances,
			Layer1DOBs: layer1.FetchDOBs,
			Spores:     spores.FetchPage,
			History:    history.FetchPage,
		},
		Sink:            a.sink,
		HistoryPageSize: cfg.Explorer.HistoryPageSize,
		DOBPageSize:     cfg.Explorer.DOBPageSize,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	// 7. Transfers
	var extra *ckb.TransferExtra
	if cfg.Transfer.MaxFee > 0 {
		extra = &ckb.TransferExtra{MaxFee: cfg.Transfer.MaxFee}
	}
	a.Transfer = transfer.NewBuilder(ckb.SDK{}, sess, extra)

	// 8. Health
	a.monitor = health.NewMonitor(sess)
	if a.db != nil {
		a.monitor.AddCheck("database", a.db.Health)
	}
	if a.redisClient != nil {
		a.monitor.AddCheck("redis", a.redisClient.Ping)
	}
	a.healthServer = health.NewServer(a.monitor, a.Profile, sess, cfg.Server.Port)

	return a, nil
}

// initStorage picks the preference backend: postgres, then redis, then a
// YAML file. The redis client is kept for notifications either way.
func (a *App) initStorage(ctx context.Context, override storage.PreferenceRepository) error {
	cfg := a.cfg

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
	}

	if override != nil {
		a.prefs = override
		return nil
	}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
		a.prefs = postgres.NewPreferenceRepo(db)
		a.log.Info("Using PostgreSQL preferences")
		return nil
	}

	if a.redisClient != nil {
		a.prefs = redisclient.NewPreferenceRepo(a.redisClient, "")
		a.log.Info("Using Redis preferences")
		return nil
	}

	a.prefs = file.NewPreferenceRepo(cfg.Prefs.Path)
	a.log.Info("Using file preferences", "path", cfg.Prefs.Path)
	return nil
}

// buildRouter registers one provider pool per endpoint kind and network.
func (a *App) buildRouter() rpc.Router {
	router := rpc.NewRouter()
	timeout := a.cfg.RPC.Timeout
	for _, n := range []domain.Network{domain.NetworkMainnet, domain.NetworkTestnet} {
		endpoints := a.cfg.Networks.Get(n)
		for kind, url := range map[string]string{
			"ckb":        endpoints.RPCURL,
			"explorer":   endpoints.ExplorerAPI,
			"btc-assets": endpoints.BTCAssetsAPI,
		} {
			if url == "" {
				continue
			}
			name := poolName(kind, n)
			router.AddProvider(name, rpc.NewHTTPProvider(name, url, timeout))
		}
	}
	return router
}

func poolName(kind string, n domain.Network) string {
	return kind + "-" + string(n)
}

// pools returns a client per network that has an endpoint of kind.
func (a *App) pools(kind string, retry rpc.RetryConfig, endpoint func(config.NetworkConfig) string) map[domain.Network]*rpc.Client {
	out := make(map[domain.Network]*rpc.Client)
	for _, n := range []domain.Network{domain.NetworkMainnet, domain.NetworkTestnet} {
		if endpoint(a.cfg.Networks.Get(n)) == "" {
			continue
		}
		out[n] = rpc.NewClient(poolName(kind, n), a.router, retry)
	}
	return out
}

func (a *App) clientFactory(retry rpc.RetryConfig) session.ClientFactory {
	return func(n domain.Network) (ckb.ChainClient, error) {
		if a.cfg.Networks.Get(n).RPCURL == "" {
			return nil, fmt.Errorf("no rpc_url configured for %s", n)
		}
		return ckb.NewClient(n, rpc.NewClient(poolName("ckb", n), a.router, retry)), nil
	}
}

func btcAssetsHeaders(networks config.NetworksConfig) map[string]string {
	token := networks.Mainnet.BTCAssetsToken
	if token == "" {
		token = networks.Testnet.BTCAssetsToken
	}
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// Start connects the wallet and begins following the session.
func (a *App) Start(ctx context.Context) error {
	a.log.Info("Starting walletview", "network", a.Session.Network())

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Profile.Start(runCtx)
	if err := a.Session.Open(runCtx); err != nil {
		a.log.Warn("Wallet connection failed", "error", err)
	}

	if a.db != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.db.StartMetricsCollector(runCtx)
		}()
	}
	return nil
}

// Health probes the chain and storage.
func (a *App) Health(ctx context.Context) health.HealthReport {
	return a.monitor.CheckHealth(ctx)
}

// Serve runs the HTTP server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting HTTP server", "port", a.cfg.Server.Port)
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop releases every component.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping walletview...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.Session.Snapshot().Connected() {
		if err := a.Session.Disconnect(); err != nil {
			a.log.Warn("Failed to disconnect wallet", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := a.healthServer.Stop(shutdownCtx)

	a.wg.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
