package volumetry

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// TestRecordJSONNaNCentroid verifies that the "label absent" NaN centroid
// survives a JSON roundtrip as null, since encoding/json rejects raw NaN.
func TestRecordJSONNaNCentroid(t *testing.T) {
	rec := LabelRecord{
		Patient:        "sub-01",
		Label:          "TC",
		VolumeML:       0,
		AsymmetryIndex: 0,
		CentroidXMM:    math.NaN(),
		CentroidYMM:    math.NaN(),
		CentroidZMM:    math.NaN(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"centroid_x_mm":null`) {
		t.Errorf("Expected null centroid in JSON, got %s", data)
	}

	var back LabelRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !math.IsNaN(back.CentroidXMM) || !math.IsNaN(back.CentroidYMM) || !math.IsNaN(back.CentroidZMM) {
		t.Errorf("Expected NaN centroid after roundtrip, got %+v", back)
	}
}

// TestRecordJSONFieldNames verifies the output contract's exact field names
func TestRecordJSONFieldNames(t *testing.T) {
	rec := LabelRecord{Patient: "p", Label: "ET", VolumeML: 1.5, AsymmetryIndex: 0.25,
		CentroidXMM: 1, CentroidYMM: 2, CentroidZMM: 3}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	for _, field := range []string{
		`"patient"`, `"label"`, `"volume_mL"`, `"asymmetry_index"`,
		`"centroid_x_mm"`, `"centroid_y_mm"`, `"centroid_z_mm"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("JSON output missing field %s: %s", field, data)
		}
	}
}
