package volumetry

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Engine computes one LabelRecord per configured label from a canonically
// oriented Volume. The label table is fixed at construction and determines
// the emission order of the records.
//
// The computation is single-threaded and CPU-bound; an Engine holds no
// mutable state and is safe for concurrent Analyze calls on independent
// volumes.
type Engine struct {
	labels []LabelDef
}

// NewEngine creates an engine for the given ordered label table.
func NewEngine(labels []LabelDef) *Engine {
	return &Engine{labels: labels}
}

// Labels returns the configured label table in emission order.
func (e *Engine) Labels() []LabelDef {
	return e.labels
}

// Analyze produces the ordered record sequence for one volume, tagged with
// the given patient identifier. It either returns one record per configured
// label or, on any failure, no records at all.
//
// The hemisphere split uses a median sagittal plane at the median world-x
// of all foreground voxels, shared by every label. Voxels exactly on the
// plane count as right: the split is world-x < mid for left, >= mid for
// right. That tie-break is kept for parity with existing outputs; it is a
// consequence of the comparison operators, not an anatomical convention.
func (e *Engine) Analyze(patient string, vol *Volume) ([]LabelRecord, error) {
	if err := checkAffine(vol); err != nil {
		return nil, err
	}

	midX := e.midlineX(vol)

	records := make([]LabelRecord, 0, len(e.labels))
	for _, def := range e.labels {
		records = append(records, e.analyzeLabel(patient, vol, def, midX))
	}
	return records, nil
}

// checkAffine rejects volumes whose voxel-to-world transform cannot map
// every voxel, before any per-label work starts.
func checkAffine(vol *Volume) error {
	if vol.Affine == nil {
		return &Error{
			Op:   "volumetry.analyze",
			Kind: KindProcessing,
			Err:  fmt.Errorf("volume has no affine transform"),
		}
	}

	r, c := vol.Affine.Dims()
	if r != 4 || c != 4 {
		return &Error{
			Op:   "volumetry.analyze",
			Kind: KindProcessing,
			Err:  fmt.Errorf("affine must be 4x4, got %dx%d", r, c),
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(vol.Affine); err != nil {
		return &Error{
			Op:   "volumetry.analyze",
			Kind: KindProcessing,
			Err:  fmt.Errorf("degenerate affine transform: %w", err),
		}
	}
	return nil
}

// midlineX determines the median sagittal plane for one volume: the median
// world-x over every foreground voxel, regardless of which labels are being
// reported. Deriving the plane from the data keeps the split robust to the
// subject's position in the scan. An empty segmentation falls back to the
// world-x of the array's central voxel index.
func (e *Engine) midlineX(vol *Volume) float64 {
	var xs []float64
	idx := 0
	for k := 0; k < vol.Dims[2]; k++ {
		for j := 0; j < vol.Dims[1]; j++ {
			for i := 0; i < vol.Dims[0]; i++ {
				if vol.Data[idx] != 0 {
					x, _, _ := vol.World(float64(i), float64(j), float64(k))
					xs = append(xs, x)
				}
				idx++
			}
		}
	}

	if len(xs) == 0 {
		ci := float64(vol.Dims[0]-1) / 2.0
		cj := float64(vol.Dims[1]-1) / 2.0
		ck := float64(vol.Dims[2]-1) / 2.0
		x, _, _ := vol.World(ci, cj, ck)
		return x
	}
	return median(xs)
}

// median returns the middle value of xs, averaging the two central values
// for even-length input. xs is sorted in place.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2.0
}

// analyzeLabel computes the record for a single label against the shared
// midline.
func (e *Engine) analyzeLabel(patient string, vol *Volume, def LabelDef, midX float64) LabelRecord {
	var wx, wy, wz []float64
	left, right := 0, 0

	idx := 0
	for k := 0; k < vol.Dims[2]; k++ {
		for j := 0; j < vol.Dims[1]; j++ {
			for i := 0; i < vol.Dims[0]; i++ {
				if vol.Data[idx] == def.ID {
					x, y, z := vol.World(float64(i), float64(j), float64(k))
					wx = append(wx, x)
					wy = append(wy, y)
					wz = append(wz, z)
					if x < midX {
						left++
					} else {
						right++
					}
				}
				idx++
			}
		}
	}

	count := len(wx)
	rec := LabelRecord{
		Patient:  patient,
		Label:    def.Name,
		VolumeML: float64(count) * vol.VoxelVolumeML(),
	}

	if count > 0 {
		rec.AsymmetryIndex = float64(left-right) / float64(left+right)
		rec.CentroidXMM = stat.Mean(wx, nil)
		rec.CentroidYMM = stat.Mean(wy, nil)
		rec.CentroidZMM = stat.Mean(wz, nil)
	} else {
		rec.AsymmetryIndex = 0
		rec.CentroidXMM = math.NaN()
		rec.CentroidYMM = math.NaN()
		rec.CentroidZMM = math.NaN()
	}
	return rec
}
