// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-YAML schema so that
// output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	PMID     string    `yaml:"PMID"`
	URL      string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family string `yaml:"family,omitempty"`
	Given  string `yaml:"given,omitempty"`
}

// FormatCSL writes records as a CSL-YAML list to w.
func FormatCSL(out Output, w io.Writer) error {
	recs := out.Ordered()
	items := make([]CSLItem, len(recs))
	for i, r := range recs {
		items[i] = toCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.Record) CSLItem {
	item := CSLItem{
		ID:       "pmid:" + r.PMID,
		Type:     "article-journal",
		Title:    r.Title,
		Abstract: r.Abstract,
		PMID:     r.PMID,
		URL:      r.DocURL,
	}
	for _, a := range r.Authors {
		if a.LastName == "" && a.ForeName == "" {
			continue
		}
		item.Author = append(item.Author, CSLName{Family: a.LastName, Given: a.ForeName})
	}
	return item
}
