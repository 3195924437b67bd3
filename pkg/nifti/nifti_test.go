package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"volumetry/pkg/volumetry"
)

// baseHeader builds a minimal valid single-file NIfTI-1 header for a 3D
// volume with unit spacing and an identity sform.
func baseHeader(x, y, z int16, datatype, bitpix int16) header {
	var hdr header
	hdr.SizeofHdr = headerSize
	hdr.Dim = [8]int16{3, x, y, z, 1, 1, 1, 1}
	hdr.Datatype = datatype
	hdr.Bitpix = bitpix
	hdr.Pixdim = [8]float32{1, 1, 1, 1, 0, 0, 0, 0}
	hdr.VoxOffset = 352
	hdr.SformCode = 1
	hdr.SrowX = [4]float32{1, 0, 0, 0}
	hdr.SrowY = [4]float32{0, 1, 0, 0}
	hdr.SrowZ = [4]float32{0, 0, 1, 0}
	copy(hdr.Magic[:], "n+1\x00")
	return hdr
}

// encodeFile serializes a header plus voxel payload in the given byte order
func encodeFile(t *testing.T, hdr header, order binary.ByteOrder, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, order, &hdr); err != nil {
		t.Fatalf("Failed to encode header: %v", err)
	}
	// Pad up to vox_offset
	for buf.Len() < int(hdr.VoxOffset) {
		buf.WriteByte(0)
	}
	buf.Write(payload)
	return buf.Bytes()
}

// TestDecodeUint8Volume verifies dims, spacing, affine, and label data of a
// plain uint8 volume.
func TestDecodeUint8Volume(t *testing.T) {
	payload := []byte{
		0, 1, 2, 3, // j=0, k=0
		4, 5, 6, 7, // j=1, k=0
		8, 9, 10, 11, // j=0, k=1
		12, 13, 14, 15, // j=1, k=1
	}
	hdr := baseHeader(4, 2, 2, typeUint8, 8)
	raw := encodeFile(t, hdr, binary.LittleEndian, payload)

	vol, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if vol.Dims != [3]int{4, 2, 2} {
		t.Errorf("Expected dims (4,2,2), got %v", vol.Dims)
	}
	if vol.Spacing != [3]float64{1, 1, 1} {
		t.Errorf("Expected unit spacing, got %v", vol.Spacing)
	}
	if got := vol.At(2, 1, 1); got != 14 {
		t.Errorf("Expected voxel (2,1,1)=14, got %d", got)
	}
	if x, y, z := vol.World(3, 1, 1); x != 3 || y != 1 || z != 1 {
		t.Errorf("Identity affine should preserve indices, got (%v,%v,%v)", x, y, z)
	}
}

// TestDecodeGzip verifies transparent gzip handling
func TestDecodeGzip(t *testing.T) {
	hdr := baseHeader(2, 2, 2, typeUint8, 8)
	raw := encodeFile(t, hdr, binary.LittleEndian, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("Failed to gzip fixture: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}

	vol, err := Decode(bytes.NewReader(zipped.Bytes()))
	if err != nil {
		t.Fatalf("Decode of gzip stream failed: %v", err)
	}
	if got := vol.At(1, 1, 1); got != 7 {
		t.Errorf("Expected voxel (1,1,1)=7, got %d", got)
	}
}

// TestDecodeBigEndian verifies byte-order detection via sizeof_hdr
func TestDecodeBigEndian(t *testing.T) {
	hdr := baseHeader(2, 1, 1, typeInt16, 16)
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.BigEndian, []int16{7, 300}); err != nil {
		t.Fatalf("Failed to encode payload: %v", err)
	}
	raw := encodeFile(t, hdr, binary.BigEndian, payload.Bytes())

	vol, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if vol.At(0, 0, 0) != 7 || vol.At(1, 0, 0) != 300 {
		t.Errorf("Expected labels (7,300), got (%d,%d)", vol.At(0, 0, 0), vol.At(1, 0, 0))
	}
}

// TestDecodeFloatRounds verifies float-typed voxels round to integer labels
func TestDecodeFloatRounds(t *testing.T) {
	hdr := baseHeader(2, 1, 1, typeFloat32, 32)
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, []float32{1.0001, 2.6}); err != nil {
		t.Fatalf("Failed to encode payload: %v", err)
	}
	raw := encodeFile(t, hdr, binary.LittleEndian, payload.Bytes())

	vol, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if vol.At(0, 0, 0) != 1 || vol.At(1, 0, 0) != 3 {
		t.Errorf("Expected rounded labels (1,3), got (%d,%d)", vol.At(0, 0, 0), vol.At(1, 0, 0))
	}
}

// TestDecodeQformAffine verifies the quaternion path: identity rotation,
// anisotropic spacing, and a world offset.
func TestDecodeQformAffine(t *testing.T) {
	hdr := baseHeader(2, 2, 2, typeUint8, 8)
	hdr.SformCode = 0
	hdr.QformCode = 1
	hdr.Pixdim = [8]float32{1, 2, 3, 4, 0, 0, 0, 0}
	hdr.QoffsetX = -10
	hdr.QoffsetY = 5
	hdr.QoffsetZ = 1
	raw := encodeFile(t, hdr, binary.LittleEndian, make([]byte, 8))

	vol, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if vol.Spacing != [3]float64{2, 3, 4} {
		t.Errorf("Expected spacing (2,3,4), got %v", vol.Spacing)
	}
	x, y, z := vol.World(1, 1, 1)
	if math.Abs(x-(-8)) > 1e-6 || math.Abs(y-8) > 1e-6 || math.Abs(z-5) > 1e-6 {
		t.Errorf("Expected world (-8,8,5) for voxel (1,1,1), got (%v,%v,%v)", x, y, z)
	}
}

// TestDecodeBadMagic verifies the corrupt-input classification
func TestDecodeBadMagic(t *testing.T) {
	hdr := baseHeader(2, 2, 2, typeUint8, 8)
	copy(hdr.Magic[:], "bad\x00")
	raw := encodeFile(t, hdr, binary.LittleEndian, make([]byte, 8))

	_, err := Decode(bytes.NewReader(raw))
	if err == nil {
		t.Fatal("Expected error for bad magic")
	}
	if !volumetry.IsKind(err, volumetry.KindCorruptInput) {
		t.Errorf("Expected corrupt-input kind, got: %v", err)
	}
}

// TestDecodeTruncatedData verifies short payloads are rejected
func TestDecodeTruncatedData(t *testing.T) {
	hdr := baseHeader(4, 4, 4, typeUint8, 8)
	raw := encodeFile(t, hdr, binary.LittleEndian, make([]byte, 10)) // need 64

	_, err := Decode(bytes.NewReader(raw))
	if err == nil {
		t.Fatal("Expected error for truncated data")
	}
	if !volumetry.IsKind(err, volumetry.KindCorruptInput) {
		t.Errorf("Expected corrupt-input kind, got: %v", err)
	}
}

// TestDecodeUnsupportedDatatype verifies unknown datatype codes are rejected
func TestDecodeUnsupportedDatatype(t *testing.T) {
	hdr := baseHeader(2, 2, 2, 1234, 8)
	raw := encodeFile(t, hdr, binary.LittleEndian, make([]byte, 8))

	_, err := Decode(bytes.NewReader(raw))
	if !volumetry.IsKind(err, volumetry.KindCorruptInput) {
		t.Errorf("Expected corrupt-input kind, got: %v", err)
	}
}

// TestLoadMissingFile verifies the not-found classification carries the path
func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.nii")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !volumetry.IsKind(err, volumetry.KindNotFound) {
		t.Errorf("Expected not-found kind, got: %v", err)
	}
}

// TestLoadRoundtrip verifies Load reads a file written to disk
func TestLoadRoundtrip(t *testing.T) {
	hdr := baseHeader(2, 2, 2, typeUint8, 8)
	raw := encodeFile(t, hdr, binary.LittleEndian, []byte{1, 0, 0, 2, 0, 3, 0, 0})

	path := filepath.Join(t.TempDir(), "seg.nii")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	vol, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if vol.At(0, 0, 0) != 1 || vol.At(1, 1, 0) != 2 || vol.At(1, 0, 1) != 3 {
		t.Errorf("Unexpected label data: %v", vol.Data)
	}
}
