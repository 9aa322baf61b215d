// Package api exposes the HTTP interface for the crawler service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rankwatch/placerank/internal/metrics"
	"github.com/rankwatch/placerank/internal/rank"
)

// serviceName appears in the root status payload.
const serviceName = "placerank-crawler"

// BatchRunner triggers crawls over one or all campaigns.
type BatchRunner interface {
	RunAll(ctx context.Context) (rank.BatchSummary, error)
	RunOne(ctx context.Context, campaign rank.Campaign) rank.ItemResult
}

// InfoFetcher resolves a single place's profile metadata.
type InfoFetcher interface {
	PlaceInfo(ctx context.Context, placeID string) (rank.PlaceInfo, error)
}

// Server wires HTTP handlers to the orchestrator and stores.
type Server struct {
	router    chi.Router
	campaigns rank.CampaignStore
	history   rank.HistoryStore
	runner    BatchRunner
	info      InfoFetcher
	nextRun   func() time.Time
	clock     rank.Clock
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. nextRun may be
// nil when no scheduler is wired.
func NewServer(
	campaigns rank.CampaignStore,
	history rank.HistoryStore,
	runner BatchRunner,
	info InfoFetcher,
	nextRun func() time.Time,
	clock rank.Clock,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		campaigns: campaigns,
		history:   history,
		runner:    runner,
		info:      info,
		nextRun:   nextRun,
		clock:     clock,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/", s.root)
	r.Get("/healthz", s.healthz)
	r.Get("/status", s.status)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/places/{place_id}", s.getPlaceInfo)
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/all", s.crawlAll)
			r.Post("/campaigns/{campaign_id}", s.crawlCampaign)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":  "ok",
		"service": serviceName,
		"time":    s.clock.Now().Format(time.RFC3339),
	}
	if s.nextRun != nil {
		payload["next_crawl"] = s.nextRun().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	active, err := s.campaigns.CountActive(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	lastCrawl, err := s.history.LastCheckedAt(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := map[string]any{
		"active_campaigns": active,
		"last_crawl":       lastCrawl,
	}
	if s.nextRun != nil {
		payload["next_crawl"] = s.nextRun().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) getPlaceInfo(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "place_id")
	info, err := s.info.PlaceInfo(r.Context(), placeID)
	if err != nil {
		if errors.Is(err, rank.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "place information unavailable")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "place": info})
}

func (s *Server) crawlAll(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("manual full crawl triggered")
	summary, err := s.runner.RunAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": summary})
}

func (s *Server) crawlCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaign_id")
	campaign, err := s.campaigns.GetByID(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, rank.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("manual campaign crawl triggered",
		zap.String("campaign_id", campaignID),
		zap.String("company", campaign.Company),
	)
	detail := s.runner.RunOne(r.Context(), campaign)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": detail.Outcome == rank.OutcomeSuccess,
		"result":  detail,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}
