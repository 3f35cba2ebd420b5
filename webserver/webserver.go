package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/models"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const cacheInterval = 15 * time.Minute

// SummarySource is implemented by both closure ledgers.
type SummarySource interface {
	Summary(ctx context.Context, since time.Time) (models.ClosureSummary, error)
}

// Server exposes metrics, a health check and a cached closure summary.
type Server struct {
	source       SummarySource
	statsLimiter *limiter.Limiter

	cachedStats     models.ClosureSummary
	cachedStatsLock sync.RWMutex

	now func() time.Time
}

func NewServer(source SummarySource) *Server {
	return &Server{
		source:       source,
		statsLimiter: tollbooth.NewLimiter(1, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour}),
		now:          time.Now,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/closures", s.ClosuresHandler).Methods(http.MethodGet)
	return r
}

// Start serves the router on addr in the background and refreshes the cached
// summary until ctx is done. The caller shuts the returned server down.
func Start(ctx context.Context, addr string, source SummarySource) *http.Server {
	s := NewServer(source)
	s.StartStatsCaching(ctx)

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 20 * time.Second,
	}

	go func() {
		logger.Log.Infof("HTTP server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Error("HTTP server stopped")
		}
	}()

	return server
}

func (s *Server) StartStatsCaching(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cacheInterval)
		defer ticker.Stop()
		for {
			s.updateCachedStats(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Server) updateCachedStats(ctx context.Context) {
	now := s.now()
	stats, err := s.source.Summary(ctx, now.Add(-24*time.Hour))
	if err != nil {
		logger.Log.WithError(err).Error("Error updating cached closure summary")
		return
	}
	stats.GeneratedAt = now.UTC()

	s.cachedStatsLock.Lock()
	s.cachedStats = stats
	s.cachedStatsLock.Unlock()
}

func (s *Server) GetCachedStats() models.ClosureSummary {
	s.cachedStatsLock.RLock()
	defer s.cachedStatsLock.RUnlock()
	return s.cachedStats
}

func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ClosuresHandler(w http.ResponseWriter, r *http.Request) {
	httpError := tollbooth.LimitByRequest(s.statsLimiter, w, r)
	if httpError != nil {
		logger.Log.WithField("remote", r.RemoteAddr).Debug("Rate limit exceeded")
		http.Error(w, httpError.Message, httpError.StatusCode)
		return
	}

	writeJSON(w, http.StatusOK, s.GetCachedStats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}
