package promptintent

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
)

// buildNpyFloat32 constructs a minimal version-1.0 .npy file for a 2-D
// float32 array, mirroring what numpy.save would produce.
func buildNpyFloat32(rows, cols int, values []float32) []byte {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// Pad header so magic+version+headerlen+header is a multiple of 64,
	// and ends with a newline, per the .npy spec.
	prefixLen := len("\x93NUMPY") + 2 + 2
	total := prefixLen + len(header) + 1
	pad := (64 - total%64) % 64
	for i := 0; i < pad; i++ {
		header += " "
	}
	header += "\n"

	buf := new(bytes.Buffer)
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	binary.Write(buf, binary.LittleEndian, values)
	return buf.Bytes()
}

func TestReadNpyFloat32Matrix_RoundTrips(t *testing.T) {
	values := []float32{1, 2, 3, 4, 5, 6}
	data := buildNpyFloat32(2, 3, values)

	rows, cols, got, err := readNpyFloat32Matrix(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 2 || cols != 3 {
		t.Fatalf("expected shape (2,3), got (%d,%d)", rows, cols)
	}
	if len(got) != len(values) {
		t.Fatalf("expected %d values, got %d", len(values), len(got))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("value mismatch at %d: expected %v, got %v", i, values[i], got[i])
		}
	}
}

func TestReadNpyFloat32Matrix_RejectsBadMagic(t *testing.T) {
	_, _, _, err := readNpyFloat32Matrix([]byte("not an npy file at all"))
	if err == nil {
		t.Fatal("expected error for invalid magic header")
	}
}
