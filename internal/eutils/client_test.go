// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubmed-engine/internal/httputil"
	"github.com/pdiddy/pubmed-engine/internal/medline"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const esearchOK = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE eSearchResult PUBLIC "-//NLM//DTD esearch 20060628//EN" "https://eutils.ncbi.nlm.nih.gov/eutils/dtd/20060628/esearch.dtd">
<eSearchResult><Count>1523</Count><RetMax>3</RetMax><RetStart>0</RetStart>
<IdList>
<Id>39000003</Id>
<Id>39000001</Id>
<Id>39000002</Id>
</IdList>
<QueryTranslation>"asthma"[MeSH Terms]</QueryTranslation>
</eSearchResult>`

const efetchOK = `<?xml version="1.0" ?>
<PubmedArticleSet>
<PubmedArticle><MedlineCitation><PMID Version="1">1</PMID><Article><ArticleTitle>One</ArticleTitle>
<AuthorList><Author><LastName>Smith</LastName><ForeName>John A</ForeName></Author></AuthorList></Article></MedlineCitation></PubmedArticle>
<PubmedArticle><MedlineCitation><PMID Version="1">2</PMID><Article><ArticleTitle>Two</ArticleTitle></Article></MedlineCitation></PubmedArticle>
</PubmedArticleSet>`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	opts = append([]Option{
		WithBaseURL(ts.URL),
		WithHTTPClient(ts.Client()),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	}, opts...)
	return New(types.EutilsConfig{Email: "dev@example.org", APIKey: "k123"}, opts...)
}

func TestSearch_SendsParameters(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, esearchOK)
	})

	from := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
	res, err := c.Search(context.Background(), SearchParams{
		Term: "asthma", MaxResults: 3, Offset: 10, DateFrom: &from, DateTo: &to,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"db":         "pubmed",
		"term":       "asthma",
		"retmode":    "xml",
		"usehistory": "n",
		"retmax":     "3",
		"retstart":   "10",
		"datetype":   "pdat",
		"mindate":    "2020/01/02",
		"maxdate":    "2021/12/31",
		"tool":       DefaultTool,
		"email":      "dev@example.org",
		"api_key":    "k123",
	}, got)

	assert.Equal(t, 1523, res.Count)
	assert.Equal(t, []string{"39000003", "39000001", "39000002"}, res.IDs)
	assert.Equal(t, `"asthma"[MeSH Terms]`, res.QueryTranslation)
}

func TestSearch_DefaultsAndLimit(t *testing.T) {
	var retmax []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		retmax = append(retmax, r.URL.Query().Get("retmax"))
		assert.Empty(t, r.URL.Query().Get("retstart"))
		assert.Empty(t, r.URL.Query().Get("datetype"))
		fmt.Fprint(w, esearchOK)
	})

	_, err := c.Search(context.Background(), SearchParams{Term: "x"})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), SearchParams{Term: "x", MaxResults: 50000})
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "10000"}, retmax)
}

func TestSearch_PhraseNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<eSearchResult><Count>0</Count><RetMax>0</RetMax><RetStart>0</RetStart><IdList/>`+
			`<ErrorList><PhraseNotFound>qwzzxq</PhraseNotFound></ErrorList></eSearchResult>`)
	})

	res, err := c.Search(context.Background(), SearchParams{Term: "qwzzxq"})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.NotNil(t, res.IDs)
	assert.Empty(t, res.IDs)
	assert.Equal(t, []string{"qwzzxq"}, res.NotFound)
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error element", http.StatusOK, `<eSearchResult><ERROR>Invalid query syntax</ERROR></eSearchResult>`, "Invalid query syntax"},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, "HTTP 400"},
		{"not xml", http.StatusOK, `{"esearchresult":{}}`, "parsing response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Search(context.Background(), SearchParams{Term: "x"})
			require.ErrorIs(t, err, ErrSearchFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFetch_ExtractsRecords(t *testing.T) {
	var query map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		query = r.URL.Query()
		fmt.Fprint(w, efetchOK)
	})

	set, err := c.Fetch(context.Background(), []string{"1", "2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"1,2"}, query["id"])
	assert.Equal(t, []string{"abstract"}, query["rettype"])
	assert.Equal(t, []string{"xml"}, query["retmode"])
	assert.Equal(t, []string{"pubmed"}, query["db"])

	assert.Equal(t, []string{"1", "2"}, set.PMIDs())
	rec, _ := set.Get("1")
	assert.Equal(t, "One", rec.Title)
	assert.Equal(t, "Smith,JohnA", rec.AuthorString)
}

func TestFetch_EmptyIDs(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { atomic.AddInt32(&calls, 1) })

	set, err := c.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetch_UpstreamErrorsReported(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		payload string
	}{
		{"error document", http.StatusOK, `<eFetchResult><ERROR>Empty id list - nothing todo</ERROR></eFetchResult>`, "eFetchResult: Empty id list - nothing todo"},
		{"json body", http.StatusOK, `{"error":"API rate limit exceeded"}`, `{"error":"API rate limit exceeded"}`},
		{"http status", http.StatusBadRequest, `{"error":"invalid api_key"}`, `HTTP 400: {"error":"invalid api_key"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reports medline.Collector
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}, WithReporter(&reports))

			set, err := c.Fetch(context.Background(), []string{"5"})
			require.NoError(t, err)
			assert.True(t, set.IsEmpty())

			got := reports.Reports()
			require.Len(t, got, 1)
			assert.Equal(t, medline.KindUpstreamError, got[0].Kind)
			assert.Equal(t, tt.payload, got[0].Payload)
			assert.Equal(t, []string{"5"}, got[0].Context.IDs)
			assert.Equal(t, "efetch", got[0].Context.EUtil)
			assert.Equal(t, set.QueryID, got[0].Context.QueryID)
		})
	}
}

func TestFetch_RetriesTooManyRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"API rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, efetchOK)
	})

	set, err := c.Fetch(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Size())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_MalformedXML(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<PubmedArticleSet><PubmedArticle><PMID>1</PMID>`)
	})

	_, err := c.Fetch(context.Background(), []string{"1"})
	var malformed *medline.MalformedStreamError
	require.ErrorAs(t, err, &malformed)
}

func TestFetch_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(types.EutilsConfig{}, WithBaseURL(url), WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	_, err := c.Fetch(context.Background(), []string{"1"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "efetch"))
}

func TestClient_ContextCancelledWhileRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, esearchOK)
	}, WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := c.Search(context.Background(), SearchParams{Term: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, SearchParams{Term: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSearchFailed))
}

func TestNew_RateLimitDefaults(t *testing.T) {
	assert.Equal(t, rate.Limit(DefaultRateLimit), New(types.EutilsConfig{}).limiter.Limit())
	assert.Equal(t, rate.Limit(KeyedRateLimit), New(types.EutilsConfig{APIKey: "k"}).limiter.Limit())
	assert.Equal(t, rate.Limit(5), New(types.EutilsConfig{RateLimit: 5}).limiter.Limit())
	assert.Equal(t, DefaultBaseURL, New(types.EutilsConfig{}).baseURL)
}
