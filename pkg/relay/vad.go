package relay

import (
	"math"
	"time"
)

// DefaultVADThreshold is the linear RMS level above which a 16-bit PCM
// chunk counts as speech. Narrowband telephony noise floors typically sit
// well below 200; normal speech at the handset lands in the thousands.
const DefaultVADThreshold = 500.0

// DefaultDebounceWindow is the minimum spacing between accepted
// speech-start transitions.
const DefaultDebounceWindow = time.Second

// Detector is an energy-based voice activity detector over 16-bit mono PCM.
// The threshold is a linear RMS amplitude in sample units, not dBFS.
type Detector struct {
	threshold float64
}

// NewDetector creates a detector. A non-positive threshold selects
// DefaultVADThreshold.
func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultVADThreshold
	}
	return &Detector{threshold: threshold}
}

// RMS computes the root mean square amplitude of a little-endian 16-bit
// PCM chunk. Empty or odd-length input yields 0.
func (d *Detector) RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Speech reports whether the chunk's energy crosses the speech threshold.
func (d *Detector) Speech(pcm []byte) bool {
	return d.RMS(pcm) > d.threshold
}

// Debouncer turns a noisy per-chunk speech signal into clean start/stop
// transitions. Repeats within the current state are ignored, and a new
// start is rejected until the window has passed since the previous one.
type Debouncer struct {
	window    time.Duration
	speaking  bool
	lastStart time.Time
}

// NewDebouncer creates a debouncer. A non-positive window selects
// DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Started reports whether a speech-start transition should be accepted now.
// Accepting it moves the debouncer into the speaking state.
func (d *Debouncer) Started(now time.Time) bool {
	if d.speaking {
		return false
	}
	if !d.lastStart.IsZero() && now.Sub(d.lastStart) < d.window {
		return false
	}
	d.speaking = true
	d.lastStart = now
	return true
}

// Stopped reports whether a speech-stop transition should be accepted now.
// Only the transition out of the speaking state is accepted.
func (d *Debouncer) Stopped(now time.Time) bool {
	if !d.speaking {
		return false
	}
	d.speaking = false
	return true
}

// Speaking reports the current debounced state.
func (d *Debouncer) Speaking() bool {
	return d.speaking
}
