// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import "fmt"

// MalformedStreamError reports that the event source could not produce
// well-formed enter/exit pairs (unterminated scope, bad encoding, syntax
// error). It is fatal to the Process call that encounters it.
type MalformedStreamError struct {
	// Line is the input line where the tokenizer stopped, when known.
	Line int
	Err  error
}

func (e *MalformedStreamError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed stream at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed stream: %v", e.Err)
}

func (e *MalformedStreamError) Unwrap() error { return e.Err }

// UpstreamError carries an application-level error document the source
// returned in place of the expected records. Process never returns it; it is
// reported through the Reporter instead.
type UpstreamError struct {
	Payload string
}

func (e *UpstreamError) Error() string {
	return "upstream error payload: " + e.Payload
}
