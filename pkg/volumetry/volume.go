// Package volumetry computes per-label volumetric statistics from a labeled
// 3D segmentation volume: physical volume, left/right hemispheric asymmetry
// around a data-derived median sagittal plane, and world-space centroids.
package volumetry

import "gonum.org/v1/gonum/mat"

// Volume is a labeled 3D volume in canonical (RAS) anatomical orientation.
// Data is stored x-fastest: the voxel at index (i, j, k) lives at
// k*Dims[0]*Dims[1] + j*Dims[0] + i. Every voxel carries exactly one label;
// 0 means background.
//
// The volume and its affine are read-only inputs owned by the caller; the
// engine never mutates them.
type Volume struct {
	// Dims holds the (X, Y, Z) extents of the label array.
	Dims [3]int

	// Data holds one integer label per voxel, x-fastest.
	Data []int32

	// Affine is the 4x4 matrix mapping a voxel index (plus homogeneous 1)
	// to a world-space coordinate in millimeters.
	Affine *mat.Dense

	// Spacing holds the physical voxel dimensions in millimeters.
	Spacing [3]float64
}

// Index returns the flat offset of voxel (i, j, k) in Data.
func (v *Volume) Index(i, j, k int) int {
	return k*v.Dims[0]*v.Dims[1] + j*v.Dims[0] + i
}

// At returns the label of voxel (i, j, k).
func (v *Volume) At(i, j, k int) int32 {
	return v.Data[v.Index(i, j, k)]
}

// NumVoxels returns the total voxel count.
func (v *Volume) NumVoxels() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}

// VoxelVolumeML returns the physical volume of one voxel in milliliters.
func (v *Volume) VoxelVolumeML() float64 {
	return v.Spacing[0] * v.Spacing[1] * v.Spacing[2] / 1000.0
}

// World maps a (possibly fractional) voxel index to world millimeters
// through the volume's affine.
func (v *Volume) World(i, j, k float64) (x, y, z float64) {
	a := v.Affine
	x = a.At(0, 0)*i + a.At(0, 1)*j + a.At(0, 2)*k + a.At(0, 3)
	y = a.At(1, 0)*i + a.At(1, 1)*j + a.At(1, 2)*k + a.At(1, 3)
	z = a.At(2, 0)*i + a.At(2, 1)*j + a.At(2, 2)*k + a.At(2, 3)
	return x, y, z
}
