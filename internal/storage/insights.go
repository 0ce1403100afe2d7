package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

// InsightStore persists generated insights as JSON records under a base
// directory. The pipeline itself holds no durable state; this is the
// collaborator the orchestration layer hands its results to.
type InsightStore struct {
	baseDir string
}

func NewInsightStore(baseDir string) (*InsightStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating insight store directory: %w", err)
	}
	return &InsightStore{baseDir: baseDir}, nil
}

// path validates the id and resolves the record file, rejecting anything
// that could escape the base directory.
func (s *InsightStore) path(id string) (string, error) {
	cleaned := filepath.Clean(id)
	if cleaned == "" || cleaned == "." || strings.ContainsAny(cleaned, `/\`) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid insight id %q", id)
	}
	return filepath.Join(s.baseDir, cleaned+".json"), nil
}

func (s *InsightStore) SaveInsight(ctx context.Context, record *insight.GeneratedInsight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.path(record.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding insight %s: %w", record.ID, err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("writing insight %s: %w", record.ID, err)
	}
	return nil
}

func (s *InsightStore) LoadInsight(ctx context.Context, id string) (*insight.GeneratedInsight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading insight %s: %w", id, err)
	}

	var record insight.GeneratedInsight
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding insight %s: %w", id, err)
	}
	return &record, nil
}

// ListInsights returns the ids of every persisted insight, sorted.
func (s *InsightStore) ListInsights(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
