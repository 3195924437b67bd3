// Package nifti provides a pure Go reader for NIfTI-1 label volumes.
//
// The reader handles single-file volumes (.nii, optionally gzip-compressed),
// detects header byte order, decodes the common integer and floating-point
// voxel types into int32 labels, and derives the voxel-to-world affine with
// the standard precedence: sform when set, else the qform quaternion, else
// a diagonal fallback built from the voxel spacing. Loaded volumes are
// reoriented to canonical RAS axis ordering before being returned, so
// downstream left/right reasoning never depends on storage-order accidents.
package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"volumetry/pkg/volumetry"
)

const (
	headerSize = 348

	// NIfTI-1 datatype codes.
	typeUint8   = 2
	typeInt16   = 4
	typeInt32   = 8
	typeFloat32 = 16
	typeFloat64 = 64
	typeInt8    = 256
	typeUint16  = 512
	typeUint32  = 768
)

// header is the fixed 348-byte NIfTI-1 header layout. Field order and
// widths must match the on-disk format exactly; blank fields consume the
// unused ANALYZE-compatibility bytes.
type header struct {
	SizeofHdr  int32
	_          [36]byte // data_type, db_name, extents, session_error, regular, dim_info
	Dim        [8]int16
	IntentP1   float32
	IntentP2   float32
	IntentP3   float32
	Intent     int16
	Datatype   int16
	Bitpix     int16
	SliceStart int16
	Pixdim     [8]float32
	VoxOffset  float32
	SclSlope   float32
	SclInter   float32
	SliceEnd   int16
	SliceCode  int8
	XyztUnits  int8
	CalMax     float32
	CalMin     float32
	SliceDur   float32
	Toffset    float32
	Glmax      int32
	Glmin      int32
	Descrip    [80]byte
	AuxFile    [24]byte
	QformCode  int16
	SformCode  int16
	QuaternB   float32
	QuaternC   float32
	QuaternD   float32
	QoffsetX   float32
	QoffsetY   float32
	QoffsetZ   float32
	SrowX      [4]float32
	SrowY      [4]float32
	SrowZ      [4]float32
	IntentName [16]byte
	Magic      [4]byte
}

// Load reads a NIfTI-1 label volume from path and returns it in canonical
// RAS orientation. A missing file yields a KindNotFound error; any header
// or data problem yields KindCorruptInput.
func Load(path string) (*volumetry.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		kind := volumetry.KindCorruptInput
		if os.IsNotExist(err) {
			kind = volumetry.KindNotFound
		}
		return nil, &volumetry.Error{Op: "nifti.load", Kind: kind, Path: path, Err: err}
	}
	defer f.Close()

	vol, err := Decode(f)
	if err != nil {
		var ve *volumetry.Error
		if errors.As(err, &ve) && ve.Path == "" {
			ve.Path = path
		}
		return nil, err
	}
	return vol, nil
}

// Decode reads a NIfTI-1 label volume from r, transparently inflating
// gzip-compressed streams, and returns it in canonical RAS orientation.
func Decode(r io.Reader) (*volumetry.Volume, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, corrupt("nifti.decode", fmt.Errorf("reading volume: %w", err))
	}

	// Gzip magic bytes mean the whole stream is compressed.
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, corrupt("nifti.decode", fmt.Errorf("opening gzip stream: %w", err))
		}
		defer zr.Close()
		raw, err = io.ReadAll(zr)
		if err != nil {
			return nil, corrupt("nifti.decode", fmt.Errorf("inflating gzip stream: %w", err))
		}
	}

	if len(raw) < headerSize {
		return nil, corrupt("nifti.decode", fmt.Errorf("file too short for NIfTI-1 header: %d bytes", len(raw)))
	}

	order, err := detectByteOrder(raw)
	if err != nil {
		return nil, err
	}

	var hdr header
	if err := binary.Read(bytes.NewReader(raw[:headerSize]), order, &hdr); err != nil {
		return nil, corrupt("nifti.decode", fmt.Errorf("parsing header: %w", err))
	}

	if string(hdr.Magic[:]) != "n+1\x00" {
		if string(hdr.Magic[:]) == "ni1\x00" {
			return nil, corrupt("nifti.decode", fmt.Errorf("two-file NIfTI (.hdr/.img) is not supported"))
		}
		return nil, corrupt("nifti.decode", fmt.Errorf("bad NIfTI magic %q", hdr.Magic))
	}

	dims, err := volumeDims(hdr.Dim)
	if err != nil {
		return nil, err
	}

	spacing := [3]float64{
		math.Abs(float64(hdr.Pixdim[1])),
		math.Abs(float64(hdr.Pixdim[2])),
		math.Abs(float64(hdr.Pixdim[3])),
	}

	data, err := decodeData(raw, &hdr, order, dims)
	if err != nil {
		return nil, err
	}

	vol := &volumetry.Volume{
		Dims:    dims,
		Data:    data,
		Affine:  affineFromHeader(&hdr),
		Spacing: spacing,
	}
	return Canonicalize(vol)
}

// detectByteOrder infers endianness from sizeof_hdr, which is 348 in
// whichever byte order the file was written.
func detectByteOrder(raw []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(raw[:4]) == headerSize {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(raw[:4]) == headerSize {
		return binary.BigEndian, nil
	}
	return nil, corrupt("nifti.decode", fmt.Errorf("sizeof_hdr is not %d in either byte order", headerSize))
}

// volumeDims validates that the file holds a 3D volume. Higher-dimensional
// files are accepted only when the trailing dimensions are 1.
func volumeDims(dim [8]int16) ([3]int, error) {
	nd := int(dim[0])
	if nd < 3 || nd > 7 {
		return [3]int{}, corrupt("nifti.decode", fmt.Errorf("expected a 3-D volume, got %d dimensions", nd))
	}
	for ax := 4; ax <= nd; ax++ {
		if dim[ax] > 1 {
			return [3]int{}, corrupt("nifti.decode", fmt.Errorf("expected a 3-D volume, axis %d has extent %d", ax, dim[ax]))
		}
	}

	var dims [3]int
	for ax := 0; ax < 3; ax++ {
		n := int(dim[ax+1])
		if n < 1 {
			return [3]int{}, corrupt("nifti.decode", fmt.Errorf("non-positive extent %d on axis %d", n, ax))
		}
		dims[ax] = n
	}
	return dims, nil
}

// decodeData converts the voxel payload into int32 labels. Floating-point
// voxel types are rounded to the nearest integer, matching the convention
// of comparing float-loaded segmentation data against integer labels.
func decodeData(raw []byte, hdr *header, order binary.ByteOrder, dims [3]int) ([]int32, error) {
	nvox := dims[0] * dims[1] * dims[2]

	width, ok := bytesPerVoxel(hdr.Datatype)
	if !ok {
		return nil, corrupt("nifti.decode", fmt.Errorf("unsupported datatype code %d", hdr.Datatype))
	}

	offset := int64(hdr.VoxOffset)
	if offset < headerSize {
		return nil, corrupt("nifti.decode", fmt.Errorf("vox_offset %d points inside the header", offset))
	}
	need := offset + int64(nvox)*int64(width)
	if int64(len(raw)) < need {
		return nil, corrupt("nifti.decode", fmt.Errorf("truncated voxel data: need %d bytes, have %d", need, len(raw)))
	}

	buf := raw[offset:]
	data := make([]int32, nvox)
	switch hdr.Datatype {
	case typeUint8:
		for i := range data {
			data[i] = int32(buf[i])
		}
	case typeInt8:
		for i := range data {
			data[i] = int32(int8(buf[i]))
		}
	case typeInt16:
		for i := range data {
			data[i] = int32(int16(order.Uint16(buf[i*2:])))
		}
	case typeUint16:
		for i := range data {
			data[i] = int32(order.Uint16(buf[i*2:]))
		}
	case typeInt32:
		for i := range data {
			data[i] = int32(order.Uint32(buf[i*4:]))
		}
	case typeUint32:
		for i := range data {
			data[i] = int32(order.Uint32(buf[i*4:]))
		}
	case typeFloat32:
		for i := range data {
			data[i] = int32(math.Round(float64(math.Float32frombits(order.Uint32(buf[i*4:])))))
		}
	case typeFloat64:
		for i := range data {
			data[i] = int32(math.Round(math.Float64frombits(order.Uint64(buf[i*8:]))))
		}
	}
	return data, nil
}

func bytesPerVoxel(datatype int16) (int, bool) {
	switch datatype {
	case typeUint8, typeInt8:
		return 1, true
	case typeInt16, typeUint16:
		return 2, true
	case typeInt32, typeUint32, typeFloat32:
		return 4, true
	case typeFloat64:
		return 8, true
	default:
		return 0, false
	}
}

// affineFromHeader derives the voxel-to-world transform with the standard
// precedence: sform, then qform, then a diagonal spacing fallback. The
// fallback carries a zero origin; files without either code record no
// trustworthy origin, and a uniform shift moves the midline with the data,
// leaving volumes and asymmetry unchanged.
func affineFromHeader(hdr *header) *mat.Dense {
	if hdr.SformCode > 0 {
		return mat.NewDense(4, 4, []float64{
			float64(hdr.SrowX[0]), float64(hdr.SrowX[1]), float64(hdr.SrowX[2]), float64(hdr.SrowX[3]),
			float64(hdr.SrowY[0]), float64(hdr.SrowY[1]), float64(hdr.SrowY[2]), float64(hdr.SrowY[3]),
			float64(hdr.SrowZ[0]), float64(hdr.SrowZ[1]), float64(hdr.SrowZ[2]), float64(hdr.SrowZ[3]),
			0, 0, 0, 1,
		})
	}
	if hdr.QformCode > 0 {
		return qformAffine(hdr)
	}

	return mat.NewDense(4, 4, []float64{
		math.Abs(float64(hdr.Pixdim[1])), 0, 0, 0,
		0, math.Abs(float64(hdr.Pixdim[2])), 0, 0,
		0, 0, math.Abs(float64(hdr.Pixdim[3])), 0,
		0, 0, 0, 1,
	})
}

// qformAffine reconstructs the rotation from the stored quaternion
// (b, c, d), with a recovered from the unit-norm constraint and the
// handedness factor qfac taken from pixdim[0].
func qformAffine(hdr *header) *mat.Dense {
	b := float64(hdr.QuaternB)
	c := float64(hdr.QuaternC)
	d := float64(hdr.QuaternD)
	a := math.Sqrt(math.Max(0, 1-b*b-c*c-d*d))

	qfac := 1.0
	if hdr.Pixdim[0] < 0 {
		qfac = -1.0
	}
	sx := math.Abs(float64(hdr.Pixdim[1]))
	sy := math.Abs(float64(hdr.Pixdim[2]))
	sz := math.Abs(float64(hdr.Pixdim[3])) * qfac

	return mat.NewDense(4, 4, []float64{
		(a*a + b*b - c*c - d*d) * sx, 2 * (b*c - a*d) * sy, 2 * (b*d + a*c) * sz, float64(hdr.QoffsetX),
		2 * (b*c + a*d) * sx, (a*a + c*c - b*b - d*d) * sy, 2 * (c*d - a*b) * sz, float64(hdr.QoffsetY),
		2 * (b*d - a*c) * sx, 2 * (c*d + a*b) * sy, (a*a + d*d - b*b - c*c) * sz, float64(hdr.QoffsetZ),
		0, 0, 0, 1,
	})
}

func corrupt(op string, err error) error {
	return &volumetry.Error{Op: op, Kind: volumetry.KindCorruptInput, Err: err}
}
