package nifti

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"volumetry/pkg/volumetry"
)

// axisOrient describes how one storage axis maps to a world axis: which of
// R/A/S it mostly points along, and whether it runs in the negative world
// direction.
type axisOrient struct {
	world int // 0=x (right), 1=y (anterior), 2=z (superior)
	flip  bool
}

// Canonicalize reorients a volume so array axis 0 increases towards the
// subject's right, axis 1 towards anterior, and axis 2 towards superior,
// adjusting the affine and spacing to keep every voxel's world coordinate
// unchanged. Volumes already in RAS order are returned as-is, which makes
// the operation idempotent.
//
// The orientation is read from the affine's direction cosines: each storage
// axis is assigned the world axis of its dominant component. An affine
// whose columns do not yield a one-to-one assignment (a zero column, or two
// axes dominated by the same world direction) cannot define left and right
// and is rejected as corrupt input.
func Canonicalize(vol *volumetry.Volume) (*volumetry.Volume, error) {
	orients, err := axisOrientations(vol.Affine)
	if err != nil {
		return nil, err
	}

	canonical := true
	for ax, o := range orients {
		if o.world != ax || o.flip {
			canonical = false
		}
	}
	if canonical {
		return vol, nil
	}

	// from[n] is the storage axis that becomes output axis n.
	var from [3]int
	var flip [3]bool
	for ax, o := range orients {
		from[o.world] = ax
		flip[o.world] = o.flip
	}

	var dims [3]int
	var spacing [3]float64
	for n := 0; n < 3; n++ {
		dims[n] = vol.Dims[from[n]]
		spacing[n] = vol.Spacing[from[n]]
	}

	out := &volumetry.Volume{
		Dims:    dims,
		Data:    make([]int32, len(vol.Data)),
		Affine:  composeAffine(vol, from, flip),
		Spacing: spacing,
	}

	// Copy voxels: output index (a, b, c) reads the storage voxel whose
	// index along from[n] is either the same or mirrored.
	var oldIdx [3]int
	newIdx := [3]int{}
	pos := 0
	for c := 0; c < dims[2]; c++ {
		newIdx[2] = c
		for b := 0; b < dims[1]; b++ {
			newIdx[1] = b
			for a := 0; a < dims[0]; a++ {
				newIdx[0] = a
				for n := 0; n < 3; n++ {
					v := newIdx[n]
					if flip[n] {
						v = dims[n] - 1 - v
					}
					oldIdx[from[n]] = v
				}
				out.Data[pos] = vol.At(oldIdx[0], oldIdx[1], oldIdx[2])
				pos++
			}
		}
	}
	return out, nil
}

// axisOrientations reads the dominant world direction of each storage axis
// from the affine's 3x3 part.
func axisOrientations(affine *mat.Dense) ([3]axisOrient, error) {
	var orients [3]axisOrient
	if affine == nil {
		return orients, corrupt("nifti.canonicalize", fmt.Errorf("volume has no affine transform"))
	}
	if r, c := affine.Dims(); r != 4 || c != 4 {
		return orients, corrupt("nifti.canonicalize", fmt.Errorf("affine must be 4x4, got %dx%d", r, c))
	}

	var claimed [3]bool
	for ax := 0; ax < 3; ax++ {
		best, bestAbs := -1, 0.0
		for w := 0; w < 3; w++ {
			if v := math.Abs(affine.At(w, ax)); v > bestAbs {
				best, bestAbs = w, v
			}
		}
		if best < 0 {
			return orients, corrupt("nifti.canonicalize", fmt.Errorf("axis %d has zero direction cosines", ax))
		}
		if claimed[best] {
			return orients, corrupt("nifti.canonicalize", fmt.Errorf("degenerate direction cosines: two axes map to world axis %d", best))
		}
		claimed[best] = true
		orients[ax] = axisOrient{world: best, flip: affine.At(best, ax) < 0}
	}
	return orients, nil
}

// composeAffine builds the affine of the reoriented volume. T maps a new
// voxel index to the storage index it reads from, so the new affine is the
// old one composed with T.
func composeAffine(vol *volumetry.Volume, from [3]int, flip [3]bool) *mat.Dense {
	t := mat.NewDense(4, 4, nil)
	for n := 0; n < 3; n++ {
		if flip[n] {
			t.Set(from[n], n, -1)
			t.Set(from[n], 3, float64(vol.Dims[from[n]]-1))
		} else {
			t.Set(from[n], n, 1)
		}
	}
	t.Set(3, 3, 1)

	out := mat.NewDense(4, 4, nil)
	out.Mul(vol.Affine, t)
	return out
}
