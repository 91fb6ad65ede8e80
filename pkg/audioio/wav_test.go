package audioio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	data := EncodeWAV(samples, SampleRate)

	if string(data[0:4]) != "RIFF" {
		t.Fatalf("expected RIFF header, got %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Fatalf("expected WAVE marker, got %q", data[8:12])
	}
	if string(data[12:16]) != "fmt " {
		t.Fatalf("expected fmt chunk, got %q", data[12:16])
	}

	sr := binary.LittleEndian.Uint32(data[24:28])
	if sr != SampleRate {
		t.Fatalf("expected sample rate %d, got %d", SampleRate, sr)
	}

	dataLen := binary.LittleEndian.Uint32(data[40:44])
	if int(dataLen) != len(samples)*2 {
		t.Fatalf("expected data length %d, got %d", len(samples)*2, dataLen)
	}
}

func TestEncodeWAV_ClampsOutOfRange(t *testing.T) {
	data := EncodeWAV([]float32{2.0, -2.0}, SampleRate)
	pcm := data[44:]
	v0 := int16(binary.LittleEndian.Uint16(pcm[0:2]))
	v1 := int16(binary.LittleEndian.Uint16(pcm[2:4]))
	if v0 != 32767 {
		t.Fatalf("expected clamp to max int16, got %d", v0)
	}
	if v1 != -32767 {
		t.Fatalf("expected clamp to min scaled value, got %d", v1)
	}
}
