// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubmed-engine pipeline.
// Implements: the PubMed record model produced by extraction and consumed by
// search output, the record library, and the HTTP surface.
//
// JSON field names match the pubmed.json files written by earlier tooling so
// saved results stay interchangeable.
package types

import (
	"fmt"
	"strings"
	"unicode"
)

// docURLTemplate is the public PubMed page for a PMID.
const docURLTemplate = "https://pubmed.ncbi.nlm.nih.gov/%s/"

// Author is one entry of a record's author list, in document order.
type Author struct {
	// LastName is the author's family name (PubMed LastName).
	LastName string `json:"lname" yaml:"lname"`

	// ForeName is the author's given names (PubMed ForeName).
	ForeName string `json:"fname" yaml:"fname"`
}

// Record is one extracted PubMed citation.
type Record struct {
	// PMID is the PubMed identifier. It keys the record in a result set.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title. Empty when the source has none.
	Title string `json:"title" yaml:"title"`

	// Abstract is the concatenation of every AbstractText fragment in
	// document order, with no separator.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists authors in document order.
	Authors []Author `json:"authors" yaml:"authors"`

	// References lists citation strings from the reference list in document order.
	References []string `json:"references" yaml:"references"`

	// DocURL is the PubMed page for PMID.
	DocURL string `json:"doc_url" yaml:"doc_url"`

	// AuthorString summarizes Authors as "Last,First; Last,First".
	AuthorString string `json:"authorstring" yaml:"authorstring"`
}

// DocURL returns the PubMed page URL for pmid.
func DocURL(pmid string) string {
	return fmt.Sprintf(docURLTemplate, pmid)
}

// AuthorString joins authors as "Last,First" pairs separated by "; ".
// Whitespace inside a fore name is removed ("John A" becomes "JohnA").
func AuthorString(authors []Author) string {
	parts := make([]string, len(authors))
	for i, a := range authors {
		parts[i] = a.LastName + "," + stripSpace(a.ForeName)
	}
	return strings.Join(parts, "; ")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
