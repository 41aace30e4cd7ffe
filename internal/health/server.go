package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/walletview/internal/aggregate"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/feed"
)

// Profile is the account view served under /v1.
type Profile interface {
	Load(addr domain.Address) error
	Address() domain.Address
	Assets() aggregate.View
	History() feed.State[domain.TransactionHistory]
	DOBs() feed.State[domain.DigitalObject]
	SetHistoryPage(page int) error
	SetDOBPage(page int) error
	HistoryPage() int
	DOBPage() int
	Await(ctx context.Context) error
}

// NetworkSwitcher changes the active network.
type NetworkSwitcher interface {
	Network() domain.Network
	SwitchNetwork(ctx context.Context, target domain.Network) error
}

// Server provides HTTP endpoints for health monitoring and the profile.
type Server struct {
	monitor  *Monitor
	profile  Profile
	switcher NetworkSwitcher
	server   *http.Server
	// awaitTimeout bounds how long a request waits for feeds to settle.
	awaitTimeout time.Duration
}

// NewServer creates a new server. profile and switcher may be nil, which
// leaves their routes unregistered.
func NewServer(monitor *Monitor, profile Profile, switcher NetworkSwitcher, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor:  monitor,
		profile:  profile,
		switcher: switcher,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		awaitTimeout: 30 * time.Second,
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())
	if profile != nil {
		mux.HandleFunc("/v1/profile", s.handleProfile)
		mux.HandleFunc("/v1/assets", s.handleAssets)
		mux.HandleFunc("/v1/history", s.handleHistory)
		mux.HandleFunc("/v1/dobs", s.handleDOBs)
	}
	if switcher != nil {
		mux.HandleFunc("/v1/network", s.handleNetwork)
	}

	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	status := http.StatusOK
	if report.SystemStatus == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.CheckHealth(r.Context()))
}

type assetsResponse struct {
	Address domain.Address        `json:"address"`
	Status  feed.Status           `json:"status"`
	Data    []domain.AssetBalance `json:"data"`
	Errors  []string              `json:"errors,omitempty"`
}

type pageResponse[T any] struct {
	Address domain.Address `json:"address"`
	Page    int            `json:"page"`
	Status  feed.Status    `json:"status"`
	Data    []T            `json:"data"`
	Error   string         `json:"error,omitempty"`
}

func newPageResponse[T any](addr domain.Address, page int, st feed.State[T]) pageResponse[T] {
	resp := pageResponse[T]{Address: addr, Page: page, Status: st.Status, Data: st.Data}
	if resp.Data == nil {
		resp.Data = []T{}
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	return resp
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"address": string(s.profile.Address())})
	case http.MethodPost:
		addr := domain.Address(r.URL.Query().Get("address"))
		if err := s.profile.Load(addr); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.await(r.Context())
		s.writeAssets(w)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	s.await(r.Context())
	s.writeAssets(w)
}

func (s *Server) writeAssets(w http.ResponseWriter) {
	view := s.profile.Assets()
	resp := assetsResponse{
		Address: s.profile.Address(),
		Status:  view.Status,
		Data:    view.Data,
	}
	for _, e := range view.Errors {
		resp.Errors = append(resp.Errors, e.Err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.applyPage(w, r, s.profile.HistoryPage, s.profile.SetHistoryPage) {
		return
	}
	s.await(r.Context())
	writeJSON(w, http.StatusOK, newPageResponse(s.profile.Address(), s.profile.HistoryPage(), s.profile.History()))
}

func (s *Server) handleDOBs(w http.ResponseWriter, r *http.Request) {
	if !s.applyPage(w, r, s.profile.DOBPage, s.profile.SetDOBPage) {
		return
	}
	s.await(r.Context())
	writeJSON(w, http.StatusOK, newPageResponse(s.profile.Address(), s.profile.DOBPage(), s.profile.DOBs()))
}

// applyPage switches to the ?page= value when it differs from current.
func (s *Server) applyPage(w http.ResponseWriter, r *http.Request, current func() int, set func(int) error) bool {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid page %q", raw))
		return false
	}
	if page == current() {
		return true
	}
	if err := set(page); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"network": string(s.switcher.Network())})
	case http.MethodPost:
		target, err := domain.ParseNetwork(r.URL.Query().Get("network"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.switcher.SwitchNetwork(r.Context(), target); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"network": string(s.switcher.Network())})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// await lets in-flight feeds settle; a timeout still returns what is there.
func (s *Server) await(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.awaitTimeout)
	defer cancel()
	if err := s.profile.Await(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Debug("Profile await interrupted", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
