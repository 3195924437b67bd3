// Package testutil builds small NIfTI fixtures for tests that exercise the
// service through real files.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
)

// BuildNIfTI returns the bytes of a minimal single-file NIfTI-1 volume:
// uint8 voxels, unit spacing, identity sform. labels must hold
// dims[0]*dims[1]*dims[2] values, x-fastest.
func BuildNIfTI(dims [3]int, labels []byte) []byte {
	hdr := make([]byte, 352)
	le := binary.LittleEndian

	le.PutUint32(hdr[0:], 348) // sizeof_hdr
	le.PutUint16(hdr[40:], 3)  // dim[0]
	for ax := 0; ax < 3; ax++ {
		le.PutUint16(hdr[42+ax*2:], uint16(dims[ax]))
	}
	for ax := 4; ax < 8; ax++ {
		le.PutUint16(hdr[40+ax*2:], 1)
	}
	le.PutUint16(hdr[70:], 2) // datatype uint8
	le.PutUint16(hdr[72:], 8) // bitpix
	for i := 0; i < 4; i++ {  // pixdim[0..3] = 1
		le.PutUint32(hdr[76+i*4:], uint32(0x3f800000))
	}
	le.PutUint32(hdr[108:], uint32(0x43b00000)) // vox_offset = 352
	le.PutUint16(hdr[254:], 1)                  // sform_code
	// Identity sform rows
	le.PutUint32(hdr[280:], uint32(0x3f800000)) // srow_x[0] = 1
	le.PutUint32(hdr[300:], uint32(0x3f800000)) // srow_y[1] = 1
	le.PutUint32(hdr[320:], uint32(0x3f800000)) // srow_z[2] = 1
	copy(hdr[344:], "n+1\x00")

	var buf bytes.Buffer
	buf.Write(hdr)
	buf.Write(labels)
	return buf.Bytes()
}

// WriteNIfTI writes a BuildNIfTI fixture to path.
func WriteNIfTI(path string, dims [3]int, labels []byte) error {
	return os.WriteFile(path, BuildNIfTI(dims, labels), 0644)
}
