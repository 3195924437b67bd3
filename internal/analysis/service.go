// Package analysis orchestrates one volumetry run: resolve the segmentation
// file inside its study directory, load and canonicalize the volume, run
// the label statistics engine, and persist the resulting records.
package analysis

import (
	"errors"
	"log/slog"
	"strings"

	"volumetry/internal/study"
	"volumetry/pkg/nifti"
	"volumetry/pkg/volumetry"
)

// Summary reports the outcome of one analysis run.
type Summary struct {
	ProcessedFiles int    `json:"processed_files"`
	MetricsCount   int    `json:"metrics_count"`
	MetricsSaved   bool   `json:"metrics_saved"`
	MetricsFile    string `json:"metrics_file"`
}

// StudyMetrics is the read-back payload for a study's saved metrics.
type StudyMetrics struct {
	StudyCode    string                  `json:"study_code"`
	Metrics      []volumetry.LabelRecord `json:"metrics"`
	TotalRecords int                     `json:"total_records"`
}

// Service wires the study store and the statistics engine together. Each
// ProcessStudy call owns its volume exclusively, so a single Service may
// serve concurrent requests.
type Service struct {
	store       *study.Store
	engine      *volumetry.Engine
	saveParquet bool
}

// NewService creates the orchestration service. When saveParquet is set,
// each run writes metrics.parquet in addition to metrics.json.
func NewService(store *study.Store, engine *volumetry.Engine, saveParquet bool) *Service {
	return &Service{
		store:       store,
		engine:      engine,
		saveParquet: saveParquet,
	}
}

// ProcessStudy analyzes one segmentation file and persists its metrics.
// The patient identifier is the filename up to its first dot. Nothing is
// persisted unless the full record sequence was produced.
func (s *Service) ProcessStudy(code, filename string) (Summary, error) {
	segPath, err := s.store.ResolveSegmentation(code, filename)
	if err != nil {
		return Summary{}, err
	}

	vol, err := nifti.Load(segPath)
	if err != nil {
		return Summary{}, err
	}

	patient := patientID(filename)
	records, err := s.engine.Analyze(patient, vol)
	if err != nil {
		return Summary{}, withPath(err, segPath)
	}

	metricsFile, err := s.store.SaveMetrics(code, records)
	if err != nil {
		return Summary{}, withPath(err, segPath)
	}

	if s.saveParquet {
		if _, err := s.store.SaveMetricsParquet(code, records); err != nil {
			return Summary{}, withPath(err, segPath)
		}
	}

	slog.Info("study processed",
		"study_code", code,
		"patient", patient,
		"records", len(records),
		"metrics_file", metricsFile)

	return Summary{
		ProcessedFiles: 1,
		MetricsCount:   len(records),
		MetricsSaved:   true,
		MetricsFile:    metricsFile,
	}, nil
}

// StudyMetrics returns the previously saved metrics for a study.
func (s *Service) StudyMetrics(code string) (StudyMetrics, error) {
	records, err := s.store.LoadMetrics(code)
	if err != nil {
		return StudyMetrics{}, err
	}
	return StudyMetrics{
		StudyCode:    code,
		Metrics:      records,
		TotalRecords: len(records),
	}, nil
}

// patientID derives the record tag from the segmentation filename, taking
// everything before the first dot so "sub-01.nii.gz" tags as "sub-01".
func patientID(filename string) string {
	if i := strings.Index(filename, "."); i >= 0 {
		return filename[:i]
	}
	return filename
}

// withPath makes sure every failure past path resolution still names the
// file being processed. Untyped errors become processing errors.
func withPath(err error, path string) error {
	var ve *volumetry.Error
	if errors.As(err, &ve) {
		if ve.Path == "" {
			ve.Path = path
		}
		return err
	}
	return &volumetry.Error{
		Op:   "analysis.process_study",
		Kind: volumetry.KindProcessing,
		Path: path,
		Err:  err,
	}
}
