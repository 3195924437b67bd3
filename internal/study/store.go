// Package study manages the on-disk layout of per-study data and the
// persistence of computed metrics. Studies live under
// <root>/studies/<study-code>/; each analysis writes metrics.json (and
// optionally metrics.parquet) into its study directory.
package study

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"volumetry/pkg/volumetry"
)

const (
	metricsJSONName    = "metrics.json"
	metricsParquetName = "metrics.parquet"
)

// Store resolves study paths and persists metric records.
type Store struct {
	root string
}

// New creates a store rooted at the given directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Dir returns the directory of one study.
func (s *Store) Dir(code string) string {
	return filepath.Join(s.root, "studies", code)
}

// ResolveSegmentation locates a segmentation file inside a study directory.
// It fails with a not-found kind when the study directory or the file does
// not exist, and rejects names that escape the study directory.
func (s *Store) ResolveSegmentation(code, filename string) (string, error) {
	if err := checkPathComponent("study code", code); err != nil {
		return "", err
	}
	if err := checkPathComponent("filename", filename); err != nil {
		return "", err
	}

	dir := s.Dir(code)
	if _, err := os.Stat(dir); err != nil {
		return "", &volumetry.Error{
			Op:   "study.resolve",
			Kind: volumetry.KindNotFound,
			Path: dir,
			Err:  fmt.Errorf("study directory not found"),
		}
	}

	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", &volumetry.Error{
			Op:   "study.resolve",
			Kind: volumetry.KindNotFound,
			Path: path,
			Err:  fmt.Errorf("segmentation file not found"),
		}
	}
	return path, nil
}

// SaveMetrics writes the record sequence as indented JSON and returns the
// metrics file path. The records are treated as an opaque ordered list.
func (s *Store) SaveMetrics(code string, records []volumetry.LabelRecord) (string, error) {
	dir := s.Dir(code)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating study directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding metrics: %w", err)
	}

	path := filepath.Join(dir, metricsJSONName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing metrics file: %w", err)
	}
	return path, nil
}

// SaveMetricsParquet writes the record sequence as a parquet file and
// returns its path.
func (s *Store) SaveMetricsParquet(code string, records []volumetry.LabelRecord) (string, error) {
	dir := s.Dir(code)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating study directory: %w", err)
	}

	path := filepath.Join(dir, metricsParquetName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating parquet file: %w", err)
	}

	w := parquet.NewGenericWriter[volumetry.LabelRecord](f)
	if _, err := w.Write(records); err != nil {
		f.Close()
		return "", fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("closing parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing parquet file: %w", err)
	}
	return path, nil
}

// LoadMetrics reads a previously saved record sequence. A study with no
// metrics file yields a not-found kind.
func (s *Store) LoadMetrics(code string) ([]volumetry.LabelRecord, error) {
	if err := checkPathComponent("study code", code); err != nil {
		return nil, err
	}

	path := filepath.Join(s.Dir(code), metricsJSONName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &volumetry.Error{
				Op:   "study.load_metrics",
				Kind: volumetry.KindNotFound,
				Path: path,
				Err:  fmt.Errorf("metrics file not found"),
			}
		}
		return nil, fmt.Errorf("reading metrics file: %w", err)
	}

	var records []volumetry.LabelRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &volumetry.Error{
			Op:   "study.load_metrics",
			Kind: volumetry.KindCorruptInput,
			Path: path,
			Err:  err,
		}
	}
	return records, nil
}

// checkPathComponent rejects values that would traverse outside the study
// layout.
func checkPathComponent(what, v string) error {
	if v == "" || v == "." || v == ".." ||
		strings.ContainsAny(v, `/\`) {
		return &volumetry.Error{
			Op:   "study.resolve",
			Kind: volumetry.KindCorruptInput,
			Err:  fmt.Errorf("invalid %s %q", what, v),
		}
	}
	return nil
}
