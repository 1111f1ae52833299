// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils is a client for the NCBI Entrez E-utilities used to search
// PubMed and stream efetch results into the medline extractor.
//
// See https://www.ncbi.nlm.nih.gov/books/NBK25499/ for the API reference.
package eutils

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubmed-engine/internal/httputil"
	"github.com/pdiddy/pubmed-engine/internal/medline"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const (
	// DefaultBaseURL is the E-utilities endpoint root.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the NCBI request ceiling without an API key.
	DefaultRateLimit = 3.0

	// KeyedRateLimit is the NCBI request ceiling with an API key.
	KeyedRateLimit = 10.0

	DefaultTimeout    = 30 * time.Second
	DefaultTool       = "pubmed-engine"
	DefaultMaxResults = 100

	// MaxResultsLimit is the largest retmax esearch accepts.
	MaxResultsLimit = 10000

	db            = "pubmed"
	dateLayout    = "2006/01/02"
	maxSearchBody = 10 << 20
	maxErrorBody  = 64 << 10
)

// ErrSearchFailed is returned when esearch reports an error or answers with
// a non-200 status after retries.
var ErrSearchFailed = errors.New("esearch failed")

// Client talks to E-utilities. It is safe for concurrent use; every request
// waits on the shared rate limiter.
type Client struct {
	cfg        types.EutilsConfig
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	extractor  *medline.Extractor
	reporter   medline.Reporter
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the endpoint root. Tests point it at httptest servers.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithReporter sets the sink for upstream error payloads and dropped records.
func WithReporter(r medline.Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// WithLimiter shares a rate limiter between clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger used for request and retry logging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client configured from cfg. Zero values select the defaults.
func New(cfg types.EutilsConfig, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
		if cfg.APIKey != "" {
			cfg.RateLimit = KeyedRateLimit
		}
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if c.limiter == nil {
		c.limiter = NewLimiter(cfg.RateLimit)
	}
	c.extractor = medline.NewExtractor(medline.WithReporter(c.reporter))
	return c
}

// NewLimiter returns a limiter allowing perSecond requests per second with no
// burst beyond one request.
func NewLimiter(perSecond float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Search runs esearch and returns one page of matching PMIDs. A phrase
// PubMed cannot match yields an empty result, not an error.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)

	q := c.params()
	q.Set("term", p.Term)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")
	q.Set("retmax", strconv.Itoa(maxResults))
	if p.Offset > 0 {
		q.Set("retstart", strconv.Itoa(p.Offset))
	}
	if p.DateFrom != nil || p.DateTo != nil {
		q.Set("datetype", "pdat")
		if p.DateFrom != nil {
			q.Set("mindate", p.DateFrom.Format(dateLayout))
		}
		if p.DateTo != nil {
			q.Set("maxdate", p.DateTo.Format(dateLayout))
		}
	}

	resp, err := c.get(ctx, "esearch.fcgi", q)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, fmt.Errorf("reading esearch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrSearchFailed, resp.StatusCode, truncate(body, 200))
	}

	var result eSearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %v", ErrSearchFailed, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, strings.TrimSpace(result.Error))
	}

	out := &SearchResult{
		Count:            result.Count,
		Offset:           result.RetStart,
		IDs:              result.IDs,
		QueryTranslation: result.QueryTranslation,
	}
	if out.IDs == nil {
		out.IDs = []string{}
	}
	if result.ErrorList != nil && len(result.ErrorList.PhraseNotFound) > 0 {
		out.NotFound = result.ErrorList.PhraseNotFound
		if len(result.IDs) == 0 {
			out.Count = 0
		}
	}
	return out, nil
}

// Fetch runs efetch for ids and extracts the records from the response as it
// streams in. Error documents and non-200 responses are reported through the
// Reporter and produce an empty set with a nil error; transport failures and
// malformed XML are returned.
func (c *Client) Fetch(ctx context.Context, ids []string) (*medline.RecordSet, error) {
	rc := medline.RequestContext{
		QueryID: uuid.NewString(),
		DB:      db,
		EUtil:   "efetch",
		IDs:     ids,
	}
	if len(ids) == 0 {
		set := medline.NewRecordSet()
		set.QueryID = rc.QueryID
		return set, nil
	}

	q := c.params()
	q.Set("id", strings.Join(ids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	rc.Source = c.endpoint("efetch.fcgi")

	resp, err := c.get(ctx, "efetch.fcgi", q)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.extractor.OnError(rc, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		set := medline.NewRecordSet()
		set.QueryID = rc.QueryID
		return set, nil
	}

	set, err := c.extractor.ProcessRequest(medline.NewXMLSource(resp.Body), rc)
	if err != nil {
		return nil, fmt.Errorf("efetch %d ids: %w", len(ids), err)
	}
	c.logger.Debug().
		Str("query_id", set.QueryID).
		Int("requested", len(ids)).
		Int("records", set.Size()).
		Msg("efetch complete")
	return set, nil
}

// params returns the query parameters every request carries.
func (c *Client) params() url.Values {
	q := url.Values{}
	q.Set("db", db)
	q.Set("tool", c.cfg.Tool)
	if c.cfg.Email != "" {
		q.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}
	return q
}

func (c *Client) endpoint(util string) string {
	return c.baseURL + "/" + util
}

func (c *Client) get(ctx context.Context, util string, q url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(util)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(c.logger.WithContext(ctx), c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("eutil", util).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return resp, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
