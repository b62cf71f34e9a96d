package resampler

import (
	"bytes"
	"io"
	"testing"

	"github.com/voxbridge/voxbridge/pkg/audio/pcm"
)

// drain reads r to EOF using a sample-aligned buffer.
func drain(t *testing.T, r io.Reader) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
}

func TestPassthroughSameRate(t *testing.T) {
	data := make([]byte, 640)
	for i := range data {
		data[i] = byte(i % 251)
	}

	r, err := New(bytes.NewReader(data), pcm.L16Mono8K, pcm.L16Mono8K)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	got := drain(t, r)
	if !bytes.Equal(got, data) {
		t.Errorf("pass-through altered data: got %d bytes, want %d identical bytes", len(got), len(data))
	}
}

func TestDownsampleHalvesRate(t *testing.T) {
	// One second of 16kHz mono: 32000 bytes. Downsampled to 8kHz it should
	// come out near 16000 bytes (the engine may withhold a small latency
	// tail).
	src := make([]byte, 32000)
	r, err := New(bytes.NewReader(src), pcm.L16Mono16K, pcm.L16Mono8K)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	got := drain(t, r)
	if len(got)%2 != 0 {
		t.Errorf("output length %d is not sample-aligned", len(got))
	}
	if len(got) < 14000 || len(got) > 16400 {
		t.Errorf("output length = %d bytes; want roughly 16000", len(got))
	}
}

func TestReadAfterClose(t *testing.T) {
	r, err := New(bytes.NewReader(make([]byte, 64)), pcm.L16Mono8K, pcm.L16Mono8K)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Read(make([]byte, 16)); err == nil {
		t.Error("Read after Close returned nil error")
	}
}

func TestShortBuffer(t *testing.T) {
	r, err := New(bytes.NewReader(make([]byte, 64)), pcm.L16Mono8K, pcm.L16Mono8K)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if _, err := r.Read(make([]byte, 1)); err != io.ErrShortBuffer {
		t.Errorf("Read with 1-byte buffer: err = %v; want io.ErrShortBuffer", err)
	}
}
