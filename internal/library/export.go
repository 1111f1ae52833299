// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const exportLimit = 1000000

// ExportYAML writes matching records to path, or to export.yaml in the
// library directory when path is empty. It returns the path written.
func (s *Store) ExportYAML(ctx context.Context, path string, opts QueryOptions) (string, error) {
	recs, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport(path, "export.yaml", data)
}

// ExportJSON writes matching records to path, or to export.json in the
// library directory when path is empty. It returns the path written.
func (s *Store) ExportJSON(ctx context.Context, path string, opts QueryOptions) (string, error) {
	recs, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport(path, "export.json", data)
}

func (s *Store) exportRecords(ctx context.Context, opts QueryOptions) ([]types.Record, error) {
	opts.MaxResults = exportLimit
	recs, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if recs == nil {
		recs = []types.Record{}
	}
	return recs, nil
}

func (s *Store) writeExport(path, name string, data []byte) (string, error) {
	if path == "" {
		path = filepath.Join(s.dir, name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
