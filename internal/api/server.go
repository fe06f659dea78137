// Package api serves the read-only HTTP views over indexed state. It writes
// nothing; every response is derived from the store at request time.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"chocoLedger/internal/leaderboard"
	"chocoLedger/internal/storage"
)

// Config holds the HTTP listener settings.
type Config struct {
	Listen      string
	CORSOrigins []string
	// WinRateWindow is the lookback for the weekly win-rate board.
	WinRateWindow time.Duration
}

// Server is the read API. Live reports whether the feed is currently
// delivering; readiness requires both it and a reachable store.
type Server struct {
	cfg    Config
	store  storage.Store
	boards *leaderboard.Aggregator
	live   func() bool
	logger *zap.Logger

	http *http.Server
}

func NewServer(cfg Config, store storage.Store, live func() bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WinRateWindow <= 0 {
		cfg.WinRateWindow = 7 * 24 * time.Hour
	}
	if live == nil {
		live = func() bool { return true }
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		boards: leaderboard.NewAggregator(store),
		live:   live,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /leaderboard/top-payout", s.handleTopPayout)
	mux.HandleFunc("GET /leaderboard/weekly-winrate", s.handleWeeklyWinRate)
	mux.HandleFunc("GET /rounds", s.handleRounds)
	mux.HandleFunc("GET /rounds/{id}", s.handleRound)
	mux.HandleFunc("GET /players/{id}/rounds", s.handlePlayerRounds)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(withRequestID(withLogging(logger, mux)))

	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until the context ends, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("api listening", zap.String("addr", s.cfg.Listen))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
