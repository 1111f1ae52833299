// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// Extractor assembles records from an event stream. It holds configuration
// only; every Process call owns its own cursor and result set, so one
// Extractor may serve independent streams on separate goroutines.
type Extractor struct {
	reporter Reporter
	rc       RequestContext
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithReporter sets the side-channel sink for upstream error payloads and
// records dropped for lacking an identifier.
func WithReporter(r Reporter) Option {
	return func(e *Extractor) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithRequestContext sets the request description attached to reports made
// by Process.
func WithRequestContext(rc RequestContext) Option {
	return func(e *Extractor) {
		e.rc = rc
	}
}

// NewExtractor returns an Extractor. Without WithReporter, reports are discarded.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{reporter: discard{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs a new Extractor over the PubMed XML document read from r.
func Extract(r io.Reader, opts ...Option) (*RecordSet, error) {
	return NewExtractor(opts...).Process(NewXMLSource(r))
}

// Process consumes src to completion and returns the records it described.
// See ProcessRequest.
func (e *Extractor) Process(src Source) (*RecordSet, error) {
	return e.ProcessRequest(src, e.rc)
}

// ProcessRequest consumes src to completion, attaching rc to any report.
//
// A *MalformedStreamError from src fails the call. An *UpstreamError is
// reported through OnError and yields an empty set with a nil error; records
// assembled before the payload was seen are discarded.
func (e *Extractor) ProcessRequest(src Source, rc RequestContext) (*RecordSet, error) {
	set := NewRecordSet()
	if rc.QueryID != "" {
		set.QueryID = rc.QueryID
	} else {
		rc.QueryID = set.QueryID
	}

	var c cursor
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var upstream *UpstreamError
			if errors.As(err, &upstream) {
				e.OnError(rc, upstream.Payload)
				empty := NewRecordSet()
				empty.QueryID = set.QueryID
				return empty, nil
			}
			var malformed *MalformedStreamError
			if errors.As(err, &malformed) {
				return nil, err
			}
			return nil, fmt.Errorf("reading event stream: %w", err)
		}

		var done *types.Record
		c, done = c.step(ev)
		if done == nil {
			continue
		}
		if done.PMID == "" {
			e.reporter.Report(Report{
				Kind:    KindMissingIdentifier,
				Context: rc,
				Payload: fmt.Sprintf("%s closed without %s (title %q)", TagArticle, TagPMID, done.Title),
			})
			continue
		}
		set.Add(*done)
	}

	if c.rec != nil {
		return nil, &MalformedStreamError{Err: fmt.Errorf("stream ended inside %s", TagArticle)}
	}
	return set, nil
}

// OnError reports an upstream error payload for the request rc.
func (e *Extractor) OnError(rc RequestContext, payload string) {
	e.reporter.Report(Report{
		Kind:    KindUpstreamError,
		Context: rc,
		Payload: payload,
	})
}

// cursor is the extraction state between events: the open scopes and the
// record under construction. rec is nil outside any PubmedArticle.
type cursor struct {
	scopes scopeSet
	rec    *types.Record
}

// step applies ev and returns the next cursor. When ev closes a record, the
// finished record is returned and the cursor no longer references it.
func (c cursor) step(ev Event) (cursor, *types.Record) {
	switch ev.Kind {
	case EnterScope:
		return c.enter(ev.Tag), nil
	case ExitScope:
		return c.exit(ev.Tag, ev.Text)
	default:
		return c, nil
	}
}

func (c cursor) enter(tag string) cursor {
	if tag == TagArticle {
		c.rec = &types.Record{
			Authors:    []types.Author{},
			References: []string{},
		}
		return c
	}

	sc, ok := openers[tag]
	if !ok {
		return c
	}
	if parent, nested := parents[sc]; nested && !c.scopes.has(parent) {
		return c
	}
	c.scopes = c.scopes.with(sc)

	// Reserve the author's slot before any of its name parts arrive.
	if sc == scopeAuthor && c.rec != nil {
		c.rec.Authors = append(c.rec.Authors, types.Author{})
	}
	return c
}

func (c cursor) exit(tag, text string) (cursor, *types.Record) {
	if tag == TagArticle {
		done := c.rec
		if done != nil {
			done.AuthorString = types.AuthorString(done.Authors)
		}
		return cursor{}, done
	}

	if sc, ok := openers[tag]; ok {
		c.scopes = c.scopes.without(sc)
		return c, nil
	}

	rec := c.rec
	if rec == nil {
		return c, nil
	}
	// Title and abstract rules test the raw text; whitespace-only text
	// still counts as present.
	present := text != ""
	text = strings.TrimSpace(text)

	switch tag {
	case TagPMID:
		if rec.PMID == "" && text != "" {
			rec.PMID = text
			rec.DocURL = types.DocURL(text)
		}
	case TagLastName:
		if a := c.currentAuthor(); a != nil {
			a.LastName = text
		}
	case TagForeName:
		if a := c.currentAuthor(); a != nil {
			a.ForeName = text
		}
	case TagCitation:
		if c.scopes.has(scopeReference) {
			rec.References = append(rec.References, text)
		}
	case TagAbstractText:
		if c.scopes.has(scopeArticle) && present {
			rec.Abstract += text
		}
	case TagTitle:
		if c.scopes.has(scopeArticle) && present {
			rec.Title = text
		}
	}
	return c, nil
}

// currentAuthor returns the most recently reserved author while inside an
// Author scope, or nil.
func (c cursor) currentAuthor() *types.Author {
	if !c.scopes.has(scopeAuthor) || len(c.rec.Authors) == 0 {
		return nil
	}
	return &c.rec.Authors[len(c.rec.Authors)-1]
}
