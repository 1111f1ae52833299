// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const noLinkReason = "pubmed efetch results have no elink capability"

// Result is the capability set every extraction result exposes.
type Result interface {
	// Size returns the number of stored records.
	Size() int
	// IsEmpty reports whether no records were stored.
	IsEmpty() bool
	// Dump describes the result without its record bodies.
	Dump() Dump
	// LinkParameter returns the parameters a follow-up elink request would
	// need for request number reqnum.
	LinkParameter(reqnum int) LinkParameters
}

// Dump summarizes a result set.
type Dump struct {
	QueryID string   `json:"query_id" yaml:"query_id"`
	DB      string   `json:"db" yaml:"db"`
	EUtil   string   `json:"eutil" yaml:"eutil"`
	PMIDs   []string `json:"pubmed_records" yaml:"pubmed_records"`
}

// LinkParameters answers a link-capability query. Capable is false when the
// result type cannot seed an elink request; Reason then says why.
type LinkParameters struct {
	Capable    bool              `json:"capable" yaml:"capable"`
	Reason     string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Parameters map[string]string `json:"parameters" yaml:"parameters"`
}

// RecordSet maps PMID to record. A later record with the same PMID replaces
// the earlier one.
type RecordSet struct {
	QueryID string
	DB      string
	EUtil   string

	records map[string]types.Record
}

var _ Result = (*RecordSet)(nil)

// NewRecordSet returns an empty set tagged with a fresh query ID.
func NewRecordSet() *RecordSet {
	return &RecordSet{
		QueryID: uuid.NewString(),
		DB:      "pubmed",
		EUtil:   "efetch",
		records: make(map[string]types.Record),
	}
}

// Add stores rec under its PMID.
func (s *RecordSet) Add(rec types.Record) {
	s.records[rec.PMID] = rec
}

// Get returns the record stored under pmid.
func (s *RecordSet) Get(pmid string) (types.Record, bool) {
	rec, ok := s.records[pmid]
	return rec, ok
}

// Size returns the number of stored records.
func (s *RecordSet) Size() int { return len(s.records) }

// IsEmpty reports whether the set holds no records.
func (s *RecordSet) IsEmpty() bool { return len(s.records) == 0 }

// Dump returns the set's metadata and sorted PMIDs.
func (s *RecordSet) Dump() Dump {
	return Dump{
		QueryID: s.QueryID,
		DB:      s.DB,
		EUtil:   s.EUtil,
		PMIDs:   s.PMIDs(),
	}
}

// LinkParameter reports that efetch results cannot seed elink requests.
func (s *RecordSet) LinkParameter(reqnum int) LinkParameters {
	return LinkParameters{
		Capable:    false,
		Reason:     noLinkReason,
		Parameters: map[string]string{},
	}
}

// PMIDs returns the stored identifiers in ascending numeric order.
func (s *RecordSet) PMIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sortPMIDs(ids)
	return ids
}

// Records returns the stored records in ascending PMID order.
func (s *RecordSet) Records() []types.Record {
	ids := s.PMIDs()
	out := make([]types.Record, len(ids))
	for i, id := range ids {
		out[i] = s.records[id]
	}
	return out
}

// Ordered returns records following order, skipping ids not in the set,
// then any remaining records in ascending PMID order.
func (s *RecordSet) Ordered(order []string) []types.Record {
	out := make([]types.Record, 0, len(s.records))
	used := make(map[string]bool, len(s.records))
	for _, id := range order {
		rec, ok := s.records[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out = append(out, rec)
	}
	for _, id := range s.PMIDs() {
		if !used[id] {
			out = append(out, s.records[id])
		}
	}
	return out
}

// Merge copies every record of other into s, replacing records that share a PMID.
func (s *RecordSet) Merge(other *RecordSet) {
	if other == nil {
		return
	}
	for id, rec := range other.records {
		s.records[id] = rec
	}
}

// sortPMIDs orders digit strings numerically: shorter first, then lexically.
func sortPMIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
}
