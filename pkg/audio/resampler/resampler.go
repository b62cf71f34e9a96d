// Package resampler converts mono 16-bit PCM audio between sample rates
// using a pure Go resampling engine (no CGO/FFI dependencies). It exposes a
// streaming io.Reader interface: wrap a PCM source and read converted audio
// from the result.
//
// The relay uses it to bring wideband AI speech (16kHz or 24kHz) down to the
// 8kHz narrowband rate telephony requires.
package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/voxbridge/voxbridge/pkg/audio/pcm"
)

// Resampler wraps an io.Reader and resamples mono 16-bit PCM audio from
// srcFmt to dstFmt. It must be closed with Close() to release resources.
type Resampler interface {
	io.ReadCloser
	CloseWithError(error) error
}

type reader struct {
	srcFmt pcm.Format
	src    io.Reader

	dstFmt  pcm.Format
	readBuf []byte

	mu            sync.Mutex
	closeErr      error
	engine        resampling.Resampler
	leftover      []byte
	needsResample bool
}

const sampleBytes = 2 // mono, 16-bit

// New creates a Resampler that converts audio from srcFmt to dstFmt. When the
// rates match it degenerates to a pass-through.
func New(src io.Reader, srcFmt, dstFmt pcm.Format) (Resampler, error) {
	needsResample := srcFmt.SampleRate() != dstFmt.SampleRate()

	var engine resampling.Resampler
	if needsResample {
		config := &resampling.Config{
			InputRate:  float64(srcFmt.SampleRate()),
			OutputRate: float64(dstFmt.SampleRate()),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		var err error
		engine, err = resampling.New(config)
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
	}

	return &reader{
		srcFmt:        srcFmt,
		src:           newSampleReader(src, sampleBytes),
		dstFmt:        dstFmt,
		engine:        engine,
		needsResample: needsResample,
	}, nil
}

// Read copies resampled audio data into p. It returns the number of bytes
// written and any encountered error. Not safe for concurrent use.
func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < sampleBytes {
		return 0, io.ErrShortBuffer
	}

	// Truncate p to whole samples.
	p = p[:len(p)/sampleBytes*sampleBytes]

	r.mu.Lock()
	defer r.mu.Unlock()

	// Drain leftover output first.
	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}

	if r.closeErr != nil {
		return 0, r.closeErr
	}

	if !r.needsResample {
		return r.readPassthrough(p)
	}
	return r.readAndProcess(p)
}

func (r *reader) readPassthrough(p []byte) (int, error) {
	if cap(r.readBuf) < len(p) {
		r.readBuf = make([]byte, len(p))
	}
	n, err := r.src.Read(r.readBuf[:len(p)])
	if n == 0 {
		return 0, err
	}
	copy(p, r.readBuf[:n])
	return n, err
}

func (r *reader) readAndProcess(p []byte) (int, error) {
	// Size the source read by the rate ratio, with a small slack so the
	// engine has enough input to fill p.
	ratio := float64(r.srcFmt.SampleRate()) / float64(r.dstFmt.SampleRate())
	srcBytes := int(float64(len(p))*ratio) + sampleBytes*4
	srcBytes = srcBytes / sampleBytes * sampleBytes

	if cap(r.readBuf) < srcBytes {
		r.readBuf = make([]byte, srcBytes)
	}

	bytesRead, readErr := r.src.Read(r.readBuf[:srcBytes])
	if bytesRead == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, io.EOF
	}

	// To normalized float64 samples.
	numSamples := bytesRead / sampleBytes
	input := make([]float64, numSamples)
	for i := range input {
		s := int16(r.readBuf[i*2]) | int16(r.readBuf[i*2+1])<<8
		input[i] = float64(s) / 32768.0
	}

	output, err := r.engine.Process(input)
	if err != nil {
		return 0, fmt.Errorf("resampler: %w", err)
	}
	if len(output) == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, nil
	}

	// Back to int16 bytes, clipped.
	outBytes := make([]byte, len(output)*2)
	for i, v := range output {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		outBytes[i*2] = byte(s)
		outBytes[i*2+1] = byte(s >> 8)
	}

	n := copy(p, outBytes)
	if len(outBytes) > n {
		r.leftover = append(r.leftover, outBytes[n:]...)
	}
	return n, readErr
}

// Close releases resources and marks the resampler as closed. Subsequent
// Read calls return io.ErrClosedPipe.
func (r *reader) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases resources with a custom error. Subsequent Read
// calls return the provided error.
func (r *reader) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.engine = nil
	return nil
}
