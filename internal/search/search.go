// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs PubMed queries end to end: esearch for identifiers,
// then batched, rate-limited efetch calls whose record sets are merged into
// one result.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pubmed-engine/internal/eutils"
	"github.com/pdiddy/pubmed-engine/internal/medline"
	"github.com/pdiddy/pubmed-engine/internal/observability"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const (
	defaultBatchSize = 200
	defaultWorkers   = 3
)

// ErrEmptyQuery is returned when a query has no search terms.
var ErrEmptyQuery = errors.New("terms is required")

// Client is the subset of the E-utilities client the pipeline needs.
type Client interface {
	Search(ctx context.Context, p eutils.SearchParams) (*eutils.SearchResult, error)
	Fetch(ctx context.Context, ids []string) (*medline.RecordSet, error)
}

var _ Client = (*eutils.Client)(nil)

// Query holds the search parameters.
type Query struct {
	Terms      string
	MaxResults int
	DateFrom   time.Time
	DateTo     time.Time
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Terms) == ""
}

// Output is the result of one pipeline run.
type Output struct {
	Query Query

	// Count is the total number of PubMed matches, which may exceed len(IDs).
	Count int

	// IDs lists PMIDs in esearch relevance order.
	IDs      []string
	Records  *medline.RecordSet
	Duration time.Duration
}

// Ordered returns the records in esearch order.
func (o Output) Ordered() []types.Record {
	if o.Records == nil {
		return nil
	}
	return o.Records.Ordered(o.IDs)
}

// Searcher runs queries against a Client.
type Searcher struct {
	client    Client
	batchSize int
	workers   int
	maxResult int
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewSearcher returns a Searcher using the batch and worker settings in cfg.
// metrics may be nil.
func NewSearcher(client Client, cfg types.EutilsConfig, logger zerolog.Logger, metrics *observability.Metrics) *Searcher {
	s := &Searcher{
		client:    client,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		maxResult: cfg.MaxResults,
		logger:    logger,
		metrics:   metrics,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.maxResult <= 0 {
		s.maxResult = eutils.DefaultMaxResults
	}
	return s
}

// Search runs esearch for q and fetches every returned identifier.
func (s *Searcher) Search(ctx context.Context, q Query) (Output, error) {
	if q.IsEmpty() {
		return Output{}, ErrEmptyQuery
	}
	if q.MaxResults <= 0 {
		q.MaxResults = s.maxResult
	}
	start := time.Now()

	params := eutils.SearchParams{Term: strings.TrimSpace(q.Terms), MaxResults: q.MaxResults}
	if !q.DateFrom.IsZero() {
		params.DateFrom = &q.DateFrom
	}
	if !q.DateTo.IsZero() {
		params.DateTo = &q.DateTo
	}

	res, err := s.client.Search(ctx, params)
	s.metrics.ObserveSearch(err)
	if err != nil {
		return Output{}, err
	}
	s.logger.Info().
		Str("terms", params.Term).
		Int("count", res.Count).
		Int("ids", len(res.IDs)).
		Msg("esearch complete")

	set, err := s.FetchIDs(ctx, res.IDs)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Query:    q,
		Count:    res.Count,
		IDs:      res.IDs,
		Records:  set,
		Duration: time.Since(start),
	}, nil
}

// Fetch retrieves ids directly, without an esearch step.
func (s *Searcher) Fetch(ctx context.Context, ids []string) (Output, error) {
	start := time.Now()
	set, err := s.FetchIDs(ctx, ids)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Count:    set.Size(),
		IDs:      ids,
		Records:  set,
		Duration: time.Since(start),
	}, nil
}

// FetchIDs splits ids into batches, fetches them concurrently, and merges the
// batch results in batch order so a later duplicate wins. The first failing
// batch cancels the rest.
func (s *Searcher) FetchIDs(ctx context.Context, ids []string) (*medline.RecordSet, error) {
	batches := Batches(ids, s.batchSize)
	sets := make([]*medline.RecordSet, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, batch := range batches {
		g.Go(func() error {
			start := time.Now()
			set, err := s.client.Fetch(gctx, batch)
			if err != nil {
				s.metrics.ObserveBatch("error", 0, time.Since(start))
				return fmt.Errorf("fetching batch %d of %d: %w", i+1, len(batches), err)
			}
			status := "ok"
			if set.IsEmpty() {
				status = "empty"
			}
			s.metrics.ObserveBatch(status, set.Size(), time.Since(start))
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := medline.NewRecordSet()
	for _, set := range sets {
		merged.Merge(set)
	}
	s.logger.Debug().
		Int("requested", len(ids)).
		Int("batches", len(batches)).
		Int("records", merged.Size()).
		Msg("fetch complete")
	return merged, nil
}

// Batches splits ids into consecutive slices of at most size elements.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n:n])
		ids = ids[n:]
	}
	return out
}
