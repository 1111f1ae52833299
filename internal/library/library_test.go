// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.LibraryConfig{Dir: filepath.Join(t.TempDir(), "library"), MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func rec(pmid, title, abstract string, authors ...types.Author) types.Record {
	return types.Record{
		PMID:         pmid,
		Title:        title,
		Abstract:     abstract,
		Authors:      authors,
		References:   []string{"Ref for " + pmid},
		DocURL:       types.DocURL(pmid),
		AuthorString: types.AuthorString(authors),
	}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	recs := []types.Record{
		rec("31452104", "Asthma in children", "Background: asthma prevalence.Methods: survey.",
			types.Author{LastName: "Smith", ForeName: "John A"}, types.Author{LastName: "Doe", ForeName: "Jane"}),
		rec("100", "Test Title", "Nothing about lungs.", types.Author{LastName: "A", ForeName: "B"}),
		rec("2000", "Adult asthma cohorts", "Asthma asthma asthma in adults.", types.Author{LastName: "Roe", ForeName: "Rita"}),
	}
	if _, err := s.Save(context.Background(), recs); err != nil {
		t.Fatal(err)
	}
}

func pmidsOf(recs []types.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.PMID
	}
	return out
}

// --- Save / Get ---

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	want := rec("31452104", "Asthma in children", "Background: X.",
		types.Author{LastName: "Smith", ForeName: "John A"}, types.Author{})

	summary, err := s.Save(context.Background(), []types.Record{want, {Title: "no pmid"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if summary.Inserted != 1 || summary.Updated != 0 || summary.Total() != 1 {
		t.Errorf("summary = %+v, want 1 inserted", summary)
	}

	got, err := s.Get(context.Background(), "31452104")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("Get = %+v\nwant %+v", *got, want)
	}
}

func TestSaveUpsertLastWriteWins(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, []types.Record{rec("1", "Old", "")}); err != nil {
		t.Fatal(err)
	}
	summary, err := s.Save(ctx, []types.Record{rec("1", "New", ""), rec("2", "Other", "")})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 1 || summary.Updated != 1 {
		t.Errorf("summary = %+v, want 1 inserted 1 updated", summary)
	}

	got, err := s.Get(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New" {
		t.Errorf("Title = %q, want New", got.Title)
	}
	if n, _ := s.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	// The full-text index follows the update.
	if res, _ := s.Retrieve(ctx, QueryOptions{Query: "Old"}); len(res) != 0 {
		t.Errorf("stale title still searchable: %v", pmidsOf(res))
	}
	if res, _ := s.Retrieve(ctx, QueryOptions{Query: "New"}); len(res) != 1 {
		t.Errorf("updated title not searchable: %v", pmidsOf(res))
	}
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNilSlicesStoredAsEmpty(t *testing.T) {
	s := testStore(t)
	if _, err := s.Save(context.Background(), []types.Record{{PMID: "5"}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(context.Background(), "5")
	if err != nil {
		t.Fatal(err)
	}
	if got.Authors == nil || got.References == nil {
		t.Errorf("want empty non-nil slices, got %#v %#v", got.Authors, got.References)
	}
}

func TestNewStoreRequiresDir(t *testing.T) {
	if _, err := NewStore(types.LibraryConfig{}); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lib")
	s, err := NewStore(types.LibraryConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	seed(t, s)
	s.Close()

	s, err = NewStore(types.LibraryConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if n, _ := s.Count(context.Background()); n != 3 {
		t.Errorf("Count after reopen = %d, want 3", n)
	}
	if res, _ := s.Retrieve(context.Background(), QueryOptions{Query: "asthma"}); len(res) != 2 {
		t.Errorf("search after reopen = %v", pmidsOf(res))
	}
}

// --- Retrieve ---

func TestRetrieve(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"all sorted by pmid", QueryOptions{}, []string{"100", "2000", "31452104"}},
		{"limit", QueryOptions{MaxResults: 1}, []string{"100"}},
		{"author filter", QueryOptions{Author: "smith"}, []string{"31452104"}},
		{"author no match", QueryOptions{Author: "Nobody"}, nil},
		{"author with like metachar", QueryOptions{Author: "%"}, nil},
		{"query and author", QueryOptions{Query: "asthma", Author: "Roe"}, []string{"2000"}},
		{"query matches author summary", QueryOptions{Query: "Doe"}, []string{"31452104"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Retrieve(ctx, tt.opts)
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if ids := pmidsOf(got); !reflect.DeepEqual(ids, tt.want) && !(len(ids) == 0 && len(tt.want) == 0) {
				t.Errorf("Retrieve = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestRetrieveRanksByRelevance(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	if !s.fts {
		t.Skip("SQLite build without FTS5")
	}

	got, err := s.Retrieve(context.Background(), QueryOptions{Query: "asthma"})
	if err != nil {
		t.Fatal(err)
	}
	if ids := pmidsOf(got); !reflect.DeepEqual(ids, []string{"2000", "31452104"}) {
		t.Errorf("ranked = %v, want the denser match first", ids)
	}
}

func TestLikePattern(t *testing.T) {
	if got := likePattern(`50%_a\b`); got != `%50\%\_a\\b%` {
		t.Errorf("likePattern = %q", got)
	}
}

// --- Export ---

func TestExportJSONAndYAML(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	path, err := s.ExportJSON(ctx, "", QueryOptions{})
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if path != filepath.Join(s.Dir(), "export.json") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON []types.Record
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("invalid JSON export: %v", err)
	}
	if len(fromJSON) != 3 || fromJSON[2].AuthorString != "Smith,JohnA; Doe,Jane" {
		t.Errorf("JSON export = %+v", fromJSON)
	}

	yamlPath := filepath.Join(t.TempDir(), "smith.yaml")
	if _, err := s.ExportYAML(ctx, yamlPath, QueryOptions{Author: "Smith"}); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	data, err = os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML []types.Record
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("invalid YAML export: %v", err)
	}
	if len(fromYAML) != 1 || fromYAML[0].PMID != "31452104" {
		t.Errorf("YAML export = %+v", fromYAML)
	}
}

func TestExportEmptyLibrary(t *testing.T) {
	s := testStore(t)
	path, err := s.ExportJSON(context.Background(), "", QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]" {
		t.Errorf("empty export = %q, want []", data)
	}
}
