package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"premiumflow/internal/premium/feed"
	"premiumflow/internal/premium/filter"
	"premiumflow/internal/premium/memorystore"
	"premiumflow/internal/premium/stats"
	"premiumflow/pkg/alpaca"
	"premiumflow/pkg/storage"

	"go.uber.org/zap"
)

const (
	defaultArchiveLimit = 100
	maxArchiveLimit     = 1000
	maxBodyBytes        = 1 << 16
	pollInterval        = 2 * time.Second
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// HistoricalFetcher looks up past option trades.
type HistoricalFetcher interface {
	GetOptionTrades(q alpaca.HistoricalQuery) (map[string][]alpaca.HistoricalTrade, error)
}

type Options struct {
	Manager          *feed.Manager
	Store            *memorystore.TradeStore
	DefaultThreshold float64
	MinThreshold     float64

	// Optional collaborators; a nil value disables the matching endpoint.
	Historical HistoricalFetcher
	Archive    storage.Archive
	Health     map[string]storage.HealthChecker
}

// Server exposes the premium trade feed over HTTP.
type Server struct {
	opts   Options
	logger *zap.Logger
}

func NewServer(opts Options, logger *zap.Logger) *Server {
	if opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = filter.DefaultThreshold
	}
	if opts.MinThreshold <= 0 {
		opts.MinThreshold = filter.MinThreshold
	}
	return &Server{opts: opts, logger: logger}
}

// RegisterRoutes registers all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /premium-options", s.handleDashboard)
	mux.HandleFunc("GET /premium-options/data", s.handleData)
	mux.HandleFunc("POST /premium-options/connect", s.handleConnect)
	mux.HandleFunc("POST /premium-options/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /premium-options/threshold", s.handleThreshold)
	mux.HandleFunc("GET /premium-options/historical", s.handleHistorical)
	mux.HandleFunc("GET /premium-options/stats", s.handleStats)
	mux.HandleFunc("GET /premium-options/archive", s.handleArchive)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routed mux wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return logRequests(s.logger, mux)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := struct {
		DefaultThreshold float64
		MinThreshold     float64
		PollMillis       int64
	}{
		DefaultThreshold: s.opts.DefaultThreshold,
		MinThreshold:     s.opts.MinThreshold,
		PollMillis:       pollInterval.Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render dashboard", zap.Error(err))
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	st := s.opts.Manager.Status()
	s.writeJSON(w, http.StatusOK, DataResponse{
		Trades:    s.opts.Store.Snapshot(),
		Connected: st.Connected,
		State:     string(st.State),
		Threshold: st.Threshold,
		LastError: st.LastError,
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ActionResponse{Error: err.Error()})
		return
	}

	threshold := s.opts.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	applied, err := s.opts.Manager.Start(threshold)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, filter.ErrInvalidThreshold) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, ActionResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, ActionResponse{Success: true, Threshold: applied})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.opts.Manager.Stop()
	s.writeJSON(w, http.StatusOK, ActionResponse{Success: true})
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	var req ThresholdRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ActionResponse{Error: err.Error()})
		return
	}
	if req.Threshold == nil {
		s.writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "threshold is required"})
		return
	}

	applied, err := s.opts.Manager.SetThreshold(*req.Threshold)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ActionResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, ActionResponse{Success: true, Threshold: applied})
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	if s.opts.Historical == nil {
		s.writeError(w, http.StatusServiceUnavailable, "historical data is not configured")
		return
	}

	qs := r.URL.Query()
	q, err := alpaca.ParseHistoricalQuery(qs.Get("symbols"), qs.Get("start"), qs.Get("end"), qs.Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.opts.Historical.GetOptionTrades(q)
	if err != nil {
		s.logger.Warn("historical lookup failed", zap.Strings("symbols", q.Symbols), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "upstream historical request failed")
		return
	}
	s.writeJSON(w, http.StatusOK, HistoricalResponse{Trades: trades})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	trades := s.opts.Store.Snapshot()
	resp := StatsResponse{
		Overall:      stats.Summarize(trades, ""),
		Distribution: stats.Distribution(trades),
		TopTickers:   stats.TopTickers(trades, stats.DefaultTopTickers),
	}
	if ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker"))); ticker != "" {
		sum := stats.Summarize(trades, ticker)
		resp.Ticker = ticker
		resp.TickerSummary = &sum
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no trade archive is configured")
		return
	}

	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxArchiveLimit)
	}
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trades, err := s.opts.Archive.RecentTrades(ctx, ticker, limit)
	if err != nil {
		s.logger.Warn("archive query failed", zap.String("ticker", ticker), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	if trades == nil {
		trades = []memorystore.Trade{}
	}
	s.writeJSON(w, http.StatusOK, ArchiveResponse{Trades: trades})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Feed:   string(s.opts.Manager.State()),
	}
	status := http.StatusOK

	if len(s.opts.Health) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(s.opts.Health))
		for name, hc := range s.opts.Health {
			if hc.IsHealthy(ctx) {
				resp.Checks[name] = "ok"
				continue
			}
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, resp)
}

// decodeBody reads an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
