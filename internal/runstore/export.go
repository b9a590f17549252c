// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-research/pkg/types"
)

// ExportYAML writes the runs matching opts as full aggregates to
// <dir>/export.yaml and returns the path.
func (s *Store) ExportYAML(ctx context.Context, opts ListOptions) (string, error) {
	aggs, err := s.exportAggregates(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.yaml")
	data, err := yaml.Marshal(aggs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the runs matching opts as full aggregates to
// <dir>/export.json and returns the path.
func (s *Store) ExportJSON(ctx context.Context, opts ListOptions) (string, error) {
	aggs, err := s.exportAggregates(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.json")
	data, err := json.MarshalIndent(aggs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

const exportLimit = 100000

func (s *Store) exportAggregates(ctx context.Context, opts ListOptions) ([]*types.Aggregate, error) {
	if opts.Limit <= 0 {
		opts.Limit = exportLimit
	}
	runs, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	aggs := make([]*types.Aggregate, 0, len(runs))
	for _, r := range runs {
		agg, err := s.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}
