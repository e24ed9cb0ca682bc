package db

import "testing"

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	blob := EncodeVector(in)
	if len(blob) != 12 {
		t.Fatalf("blob length = %d, want 12", len(blob))
	}

	out, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	if _, err := DecodeVector("abc"); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}
