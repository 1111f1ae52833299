// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package medline turns a stream of PubMed efetch XML events into records.
//
// The Extractor consumes enter/exit scope events one at a time and keeps only
// the in-progress record plus five scope flags. Each record leaves the engine
// as soon as its PubmedArticle scope closes, so memory grows with the number
// of finished records, never with the size of the raw document.
package medline

import (
	"fmt"
	"io"
)

// Tag vocabulary recognized by the extractor. Any other tag is ignored.
const (
	TagArticle       = "PubmedArticle" // record boundary
	TagAuthorList    = "AuthorList"
	TagAuthor        = "Author"
	TagLastName      = "LastName"
	TagForeName      = "ForeName"
	TagReferenceList = "ReferenceList"
	TagReference     = "Reference"
	TagCitation      = "Citation"
	TagArticleBody   = "Article"
	TagTitle         = "ArticleTitle"
	TagAbstractText  = "AbstractText"
	TagPMID          = "PMID"
)

// EventKind distinguishes scope entry from scope exit.
type EventKind uint8

const (
	EnterScope EventKind = iota + 1
	ExitScope
)

func (k EventKind) String() string {
	switch k {
	case EnterScope:
		return "enter"
	case ExitScope:
		return "exit"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one scope transition. Text is only meaningful on ExitScope.
type Event struct {
	Kind EventKind
	Tag  string
	Text string
}

// Enter returns an EnterScope event for tag.
func Enter(tag string) Event { return Event{Kind: EnterScope, Tag: tag} }

// Exit returns an ExitScope event for tag carrying its text.
func Exit(tag, text string) Event { return Event{Kind: ExitScope, Tag: tag, Text: text} }

// Source yields events in document order. Next returns io.EOF after the last
// event, *MalformedStreamError when the underlying document is structurally
// broken, and *UpstreamError when the document is an error payload.
type Source interface {
	Next() (Event, error)
}

// SliceSource replays a fixed sequence of events.
type SliceSource struct {
	events []Event
	pos    int
}

// NewSliceSource returns a Source over events.
func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next returns the next event or io.EOF.
func (s *SliceSource) Next() (Event, error) {
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.events[s.pos] = Event{}
	s.pos++
	return ev, nil
}
