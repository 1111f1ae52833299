// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import "sync"

// ReportKind classifies a side-channel report.
type ReportKind string

const (
	// KindUpstreamError: the source returned an error document instead of records.
	KindUpstreamError ReportKind = "upstream_error"

	// KindMissingIdentifier: a record closed without a PMID and was dropped.
	KindMissingIdentifier ReportKind = "missing_identifier"
)

// RequestContext describes the request that produced an event stream.
type RequestContext struct {
	QueryID string   `json:"query_id,omitempty"`
	DB      string   `json:"db,omitempty"`
	EUtil   string   `json:"eutil,omitempty"`
	Source  string   `json:"source,omitempty"`
	IDs     []string `json:"ids,omitempty"`
}

// Report is one non-fatal anomaly observed while extracting.
type Report struct {
	Kind    ReportKind     `json:"kind"`
	Context RequestContext `json:"request"`
	Payload string         `json:"error,omitempty"`
}

// Reporter receives side-channel reports. Implementations must be safe for
// concurrent use when one Extractor serves several goroutines.
type Reporter interface {
	Report(Report)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Report)

// Report calls f(r).
func (f ReporterFunc) Report(r Report) { f(r) }

type discard struct{}

func (discard) Report(Report) {}

// Collector keeps every report in memory.
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

// Report appends r.
func (c *Collector) Report(r Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
}

// Reports returns a copy of the collected reports.
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Report, len(c.reports))
	copy(out, c.reports)
	return out
}

// Len returns the number of collected reports.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}
