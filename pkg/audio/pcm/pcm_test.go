package pcm

import (
	"testing"
	"time"
)

func TestFormatTiming(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		duration time.Duration
		bytes    int64
	}{
		{"8k 20ms", L16Mono8K, 20 * time.Millisecond, 320},
		{"8k 1s", L16Mono8K, time.Second, 16000},
		{"16k 20ms", L16Mono16K, 20 * time.Millisecond, 640},
		{"24k 100ms", L16Mono24K, 100 * time.Millisecond, 4800},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.format.BytesInDuration(tc.duration); got != tc.bytes {
				t.Errorf("BytesInDuration(%v) = %d; want %d", tc.duration, got, tc.bytes)
			}
			if got := tc.format.Duration(tc.bytes); got != tc.duration {
				t.Errorf("Duration(%d) = %v; want %v", tc.bytes, got, tc.duration)
			}
		})
	}
}
