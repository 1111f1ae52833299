// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// maxPayload bounds the error text kept from an upstream error document.
const maxPayload = 64 << 10

// DefaultRoots lists the document roots that carry records.
var DefaultRoots = []string{"PubmedArticleSet"}

// XMLSource tokenizes an XML document incrementally into scope events. It
// holds only the chain of currently open elements, never the document.
//
// The text of an exit event is the character data that appears inside the
// element before its first child element.
type XMLSource struct {
	dec      *xml.Decoder
	roots    map[string]bool
	open     []openElement
	seenRoot bool
	stray    []byte
	err      error
}

type openElement struct {
	name     string
	text     []byte
	sawChild bool
}

// NewXMLSource returns a Source reading from r. Documents whose root element
// is not one of roots (DefaultRoots when none are given) are treated as
// upstream error payloads.
func NewXMLSource(r io.Reader, roots ...string) *XMLSource {
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	s := &XMLSource{
		dec:   xml.NewDecoder(r),
		roots: make(map[string]bool, len(roots)),
	}
	s.dec.Entity = xml.HTMLEntity
	for _, root := range roots {
		s.roots[root] = true
	}
	return s
}

// Next returns the next scope event.
func (s *XMLSource) Next() (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}

	for {
		tok, err := s.dec.Token()
		if errors.Is(err, io.EOF) {
			return s.finish()
		}
		if err != nil {
			line, _ := s.dec.InputPos()
			return s.fail(&MalformedStreamError{Line: line, Err: err})
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if len(s.open) == 0 {
				if s.seenRoot {
					line, _ := s.dec.InputPos()
					return s.fail(&MalformedStreamError{Line: line, Err: fmt.Errorf("second root element <%s>", name)})
				}
				s.seenRoot = true
				s.stray = nil
				if !s.roots[name] {
					return s.fail(&UpstreamError{Payload: s.drain(name)})
				}
			} else {
				s.open[len(s.open)-1].sawChild = true
			}
			s.open = append(s.open, openElement{name: name})
			return Enter(name), nil

		case xml.EndElement:
			top := s.open[len(s.open)-1]
			s.open[len(s.open)-1] = openElement{}
			s.open = s.open[:len(s.open)-1]
			return Exit(top.name, string(top.text)), nil

		case xml.CharData:
			if len(s.open) == 0 {
				if !s.seenRoot {
					s.stray = appendBounded(s.stray, bytes.TrimSpace(t))
				}
				continue
			}
			top := &s.open[len(s.open)-1]
			if !top.sawChild {
				top.text = append(top.text, t...)
			}
		}
	}
}

func (s *XMLSource) finish() (Event, error) {
	if len(s.open) > 0 {
		line, _ := s.dec.InputPos()
		return s.fail(&MalformedStreamError{Line: line, Err: fmt.Errorf("unterminated <%s>", s.open[len(s.open)-1].name)})
	}
	if !s.seenRoot && len(s.stray) > 0 {
		return s.fail(&UpstreamError{Payload: string(s.stray)})
	}
	return s.fail(io.EOF)
}

func (s *XMLSource) fail(err error) (Event, error) {
	s.err = err
	s.open = nil
	return Event{}, err
}

// drain reads the rest of an error document rooted at root and returns its
// text content, bounded by maxPayload.
func (s *XMLSource) drain(root string) string {
	var text []byte
	for len(text) < maxPayload {
		tok, err := s.dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			if trimmed := bytes.TrimSpace(cd); len(trimmed) > 0 {
				if len(text) > 0 {
					text = append(text, ' ')
				}
				text = appendBounded(text, trimmed)
			}
		}
	}
	msg := strings.TrimSpace(string(text))
	if msg == "" {
		return "<" + root + ">"
	}
	return root + ": " + msg
}

func appendBounded(dst, src []byte) []byte {
	room := maxPayload - len(dst)
	if room <= 0 {
		return dst
	}
	if len(src) > room {
		for room > 0 && !utf8.RuneStart(src[room]) {
			room--
		}
		src = src[:room]
	}
	return append(dst, src...)
}
