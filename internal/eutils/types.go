// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"encoding/xml"
	"time"
)

// eSearchResult is the esearch.fcgi response body.
type eSearchResult struct {
	XMLName          xml.Name   `xml:"eSearchResult"`
	Count            int        `xml:"Count"`
	RetMax           int        `xml:"RetMax"`
	RetStart         int        `xml:"RetStart"`
	IDs              []string   `xml:"IdList>Id"`
	QueryTranslation string     `xml:"QueryTranslation"`
	Error            string     `xml:"ERROR"`
	ErrorList        *errorList `xml:"ErrorList"`
}

type errorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound"`
	FieldNotFound  []string `xml:"FieldNotFound"`
}

// SearchParams describes one esearch request.
type SearchParams struct {
	Term       string
	MaxResults int
	Offset     int

	// DateFrom and DateTo bound the publication date when set.
	DateFrom *time.Time
	DateTo   *time.Time
}

// SearchResult is the identifier page returned by esearch.
type SearchResult struct {
	// Count is the total number of matches, which may exceed len(IDs).
	Count            int      `json:"count" yaml:"count"`
	Offset           int      `json:"offset" yaml:"offset"`
	IDs              []string `json:"ids" yaml:"ids"`
	QueryTranslation string   `json:"query_translation,omitempty" yaml:"query_translation,omitempty"`

	// NotFound lists query phrases PubMed could not match.
	NotFound []string `json:"not_found,omitempty" yaml:"not_found,omitempty"`
}
