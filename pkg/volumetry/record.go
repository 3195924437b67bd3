package volumetry

import (
	"encoding/json"
	"math"
)

// LabelDef maps one integer label value to a human-readable name. The
// label set is configuration supplied by the caller; the engine carries
// no built-in labeling convention.
type LabelDef struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

// LabelRecord is one output row per (patient, label) pair. Records are
// created once per analysis run and never updated afterwards.
//
// A label with no matching voxel has volume 0, asymmetry 0, and NaN for
// all three centroid components. NaN centroids mean "label absent", never
// a valid coordinate; they serialize to JSON null.
type LabelRecord struct {
	Patient        string  `json:"patient" parquet:"patient"`
	Label          string  `json:"label" parquet:"label"`
	VolumeML       float64 `json:"volume_mL" parquet:"volume_mL"`
	AsymmetryIndex float64 `json:"asymmetry_index" parquet:"asymmetry_index"`
	CentroidXMM    float64 `json:"centroid_x_mm" parquet:"centroid_x_mm"`
	CentroidYMM    float64 `json:"centroid_y_mm" parquet:"centroid_y_mm"`
	CentroidZMM    float64 `json:"centroid_z_mm" parquet:"centroid_z_mm"`
}

// labelRecordJSON mirrors LabelRecord with nullable centroid fields so the
// NaN convention survives encoding/json, which rejects NaN outright.
type labelRecordJSON struct {
	Patient        string   `json:"patient"`
	Label          string   `json:"label"`
	VolumeML       float64  `json:"volume_mL"`
	AsymmetryIndex float64  `json:"asymmetry_index"`
	CentroidXMM    *float64 `json:"centroid_x_mm"`
	CentroidYMM    *float64 `json:"centroid_y_mm"`
	CentroidZMM    *float64 `json:"centroid_z_mm"`
}

func nullableMM(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func mmOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON encodes NaN centroid components as null.
func (r LabelRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(labelRecordJSON{
		Patient:        r.Patient,
		Label:          r.Label,
		VolumeML:       r.VolumeML,
		AsymmetryIndex: r.AsymmetryIndex,
		CentroidXMM:    nullableMM(r.CentroidXMM),
		CentroidYMM:    nullableMM(r.CentroidYMM),
		CentroidZMM:    nullableMM(r.CentroidZMM),
	})
}

// UnmarshalJSON restores null centroid components to NaN.
func (r *LabelRecord) UnmarshalJSON(data []byte) error {
	var jr labelRecordJSON
	if err := json.Unmarshal(data, &jr); err != nil {
		return err
	}
	r.Patient = jr.Patient
	r.Label = jr.Label
	r.VolumeML = jr.VolumeML
	r.AsymmetryIndex = jr.AsymmetryIndex
	r.CentroidXMM = mmOrNaN(jr.CentroidXMM)
	r.CentroidYMM = mmOrNaN(jr.CentroidYMM)
	r.CentroidZMM = mmOrNaN(jr.CentroidZMM)
	return nil
}
