package promptintent

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// readNpyFloat32Matrix parses the minimal subset of the NumPy .npy format
// needed here: a 2-D, little-endian, C-contiguous float32 array. No
// library in the retrieved example pack or its ecosystem (embeddings
// providers, STT/TTS clients, config/serialization libraries) reads
// NumPy's binary container, so this is a deliberate, narrowly-scoped
// stdlib exception (see DESIGN.md).
func readNpyFloat32Matrix(data []byte) (rows, cols int, values []float32, err error) {
	const magic = "\x93NUMPY"
	if len(data) < len(magic)+2 || string(data[:len(magic)]) != magic {
		return 0, 0, nil, fmt.Errorf("promptintent: not a .npy file")
	}

	major := data[len(magic)]
	pos := len(magic) + 2

	var headerLen int
	if major == 1 {
		if len(data) < pos+2 {
			return 0, 0, nil, fmt.Errorf("promptintent: truncated .npy header")
		}
		headerLen = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
	} else {
		if len(data) < pos+4 {
			return 0, 0, nil, fmt.Errorf("promptintent: truncated .npy header")
		}
		headerLen = int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
	}

	if len(data) < pos+headerLen {
		return 0, 0, nil, fmt.Errorf("promptintent: truncated .npy header dict")
	}
	header := string(data[pos : pos+headerLen])
	pos += headerLen

	if !strings.Contains(header, "'<f4'") && !strings.Contains(header, "'f4'") {
		return 0, 0, nil, fmt.Errorf("promptintent: only little-endian float32 .npy files are supported")
	}

	shape, err := parseNpyShape(header)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(shape) != 2 {
		return 0, 0, nil, fmt.Errorf("promptintent: expected a 2-D array, got shape %v", shape)
	}
	rows, cols = shape[0], shape[1]

	want := rows * cols
	body := data[pos:]
	if len(body) < want*4 {
		return 0, 0, nil, fmt.Errorf("promptintent: truncated .npy body: want %d floats, have %d bytes", want, len(body))
	}

	values = make([]float32, want)
	r := bytes.NewReader(body)
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return 0, 0, nil, fmt.Errorf("promptintent: reading float32 body: %w", err)
	}

	return rows, cols, values, nil
}

// parseNpyShape extracts the "shape": (r, c) tuple out of the .npy
// header dict string without a full Python-literal parser -- the header
// is always a flat, single-line dict for the embeddings this package
// consumes.
func parseNpyShape(header string) ([]int, error) {
	key := "'shape':"
	idx := strings.Index(header, key)
	if idx < 0 {
		return nil, fmt.Errorf("promptintent: .npy header missing 'shape' key")
	}
	rest := header[idx+len(key):]
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return nil, fmt.Errorf("promptintent: malformed shape tuple in .npy header")
	}
	parts := strings.Split(rest[open+1:closeIdx], ",")

	var shape []int
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("promptintent: non-integer shape dimension %q: %w", p, err)
		}
		shape = append(shape, n)
	}
	return shape, nil
}
