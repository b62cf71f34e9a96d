// Package pcm defines linear PCM formats and the timing arithmetic used to
// translate between byte counts and wall-clock durations. The relay speaks in
// PCM plus logical timestamps; all rate-dependent math lives here.
package pcm

import "time"

const (
	// L16Mono8K represents audio/L16; rate=8000; channels=1 (telephony narrowband).
	L16Mono8K Format = iota
	// L16Mono16K represents audio/L16; rate=16000; channels=1.
	L16Mono16K
	// L16Mono24K represents audio/L16; rate=24000; channels=1.
	L16Mono24K
)

// Format represents a mono 16-bit linear PCM format.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono8K:
		return 8000
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	}
	panic("pcm: invalid format")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case L16Mono8K, L16Mono16K, L16Mono24K:
		return 1
	}
	panic("pcm: invalid format")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case L16Mono8K, L16Mono16K, L16Mono24K:
		return 16
	}
	panic("pcm: invalid format")
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.Channels()) / int64(f.Depth())
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.Channels()) * int64(f.Depth()) / 8
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono8K:
		return "audio/L16; rate=8000; channels=1"
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	}
	panic("pcm: invalid format")
}
