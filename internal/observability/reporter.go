// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-engine/internal/medline"
)

const maxLoggedPayload = 512

// Reporter logs extraction reports at warn level and counts them.
type Reporter struct {
	logger  zerolog.Logger
	metrics *Metrics
}

var _ medline.Reporter = (*Reporter)(nil)

// NewReporter returns a Reporter. metrics may be nil.
func NewReporter(logger zerolog.Logger, metrics *Metrics) *Reporter {
	return &Reporter{logger: logger, metrics: metrics}
}

// Report logs r and bumps the counter for its kind.
func (r *Reporter) Report(rep medline.Report) {
	payload := rep.Payload
	if len(payload) > maxLoggedPayload {
		cut := maxLoggedPayload
		for cut > 0 && !utf8.RuneStart(payload[cut]) {
			cut--
		}
		payload = payload[:cut] + "..."
	}

	r.logger.Warn().
		Str("kind", string(rep.Kind)).
		Str("query_id", rep.Context.QueryID).
		Str("db", rep.Context.DB).
		Str("eutil", rep.Context.EUtil).
		Int("ids", len(rep.Context.IDs)).
		Str("error", payload).
		Msg("extraction report")

	if r.metrics == nil {
		return
	}
	switch rep.Kind {
	case medline.KindUpstreamError:
		r.metrics.UpstreamErrors.Inc()
	case medline.KindMissingIdentifier:
		r.metrics.MissingIdentifiers.Inc()
	}
}

// Tee fans each report out to every reporter in order.
func Tee(reporters ...medline.Reporter) medline.Reporter {
	return medline.ReporterFunc(func(rep medline.Report) {
		for _, r := range reporters {
			if r != nil {
				r.Report(rep)
			}
		}
	})
}
