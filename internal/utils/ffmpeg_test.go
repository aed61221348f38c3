package utils

import "testing"

func TestTruncateLeavesShortInputUnchanged(t *testing.T) {
	in := []byte("short message")
	if got := truncate(in, 2048); got != "short message" {
		t.Errorf("truncate = %q, want unchanged input", got)
	}
}

func TestTruncateCutsLongInputAndAppendsMarker(t *testing.T) {
	in := make([]byte, 100)
	for i := range in {
		in[i] = 'x'
	}
	got := truncate(in, 10)
	want := string(in[:10]) + "...(truncated)"
	if got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
}

func TestTruncateExactBoundaryIsUnchanged(t *testing.T) {
	in := []byte("0123456789")
	if got := truncate(in, 10); got != "0123456789" {
		t.Errorf("truncate at exact boundary = %q, want unchanged", got)
	}
}
