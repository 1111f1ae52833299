// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes PubMed search and the record library over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-engine/internal/library"
	"github.com/pdiddy/pubmed-engine/internal/search"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const defaultMaxResults = 100

// Searcher runs PubMed queries.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Output, error)
	Fetch(ctx context.Context, ids []string) (search.Output, error)
}

// RecordStore looks up saved records.
type RecordStore interface {
	Get(ctx context.Context, pmid string) (*types.Record, error)
}

// SearchResponse is the body of a successful /search call.
type SearchResponse struct {
	Terms   string         `json:"terms"`
	NumHits int            `json:"numhits"`
	Count   int            `json:"count"`
	QueryID string         `json:"query_id"`
	Results []types.Record `json:"results"`
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	store      RecordStore
	gatherer   prometheus.Gatherer
	logger     zerolog.Logger
	maxResults int
}

// New returns a Server. store and gatherer may be nil; without a store,
// record lookups go straight to PubMed, and without a gatherer /metrics is
// not served.
func New(cfg types.ServerConfig, searcher Searcher, store RecordStore, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	s := &Server{
		searcher:   searcher,
		store:      store,
		gatherer:   gatherer,
		logger:     logger.With().Str("component", "http-server").Logger(),
		maxResults: cfg.MaxResults,
	}
	if s.maxResults <= 0 {
		s.maxResults = defaultMaxResults
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthHandler)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/search", s.searchHandler)
	r.Get("/records/{pmid}", s.recordHandler)

	return r
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query().Get("terms")
	q := search.Query{Terms: terms, MaxResults: s.maxResults}
	if q.IsEmpty() {
		writeError(w, http.StatusBadRequest, "terms is required")
		return
	}
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max must be a positive integer")
			return
		}
		q.MaxResults = min(n, s.maxResults)
	}

	out, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		s.logger.Error().Err(err).
			Str("terms", terms).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("search failed")
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}

	results := out.Ordered()
	if results == nil {
		results = []types.Record{}
	}
	resp := SearchResponse{
		Terms:   terms,
		NumHits: len(results),
		Count:   out.Count,
		Results: results,
	}
	if out.Records != nil {
		resp.QueryID = out.Records.QueryID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordHandler(w http.ResponseWriter, r *http.Request) {
	pmid := chi.URLParam(r, "pmid")
	if !isPMID(pmid) {
		writeError(w, http.StatusBadRequest, "pmid must be numeric")
		return
	}

	if s.store != nil {
		rec, err := s.store.Get(r.Context(), pmid)
		if err == nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		if !errors.Is(err, library.ErrNotFound) {
			s.logger.Error().Err(err).Str("pmid", pmid).Msg("library lookup failed")
		}
	}

	out, err := s.searcher.Fetch(r.Context(), []string{pmid})
	if err != nil {
		s.logger.Error().Err(err).Str("pmid", pmid).Msg("fetch failed")
		writeError(w, http.StatusBadGateway, "fetch failed")
		return
	}
	rec, ok := out.Records.Get(pmid)
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func isPMID(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// requestLogger logs one line per request after it completes.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
