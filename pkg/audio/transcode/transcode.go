// Package transcode bridges telephony narrowband audio and the linear PCM
// the rest of the relay speaks. Telephony requires exactly 8kHz mono
// companded audio delivered in small paced chunks; AI speech arrives as
// wideband PCM. All rate and format conversion is centralized here so other
// packages deal only in PCM plus logical timestamps.
//
// All functions are pure: no I/O, no retained state.
package transcode

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/voxbridge/voxbridge/pkg/audio/g711"
	"github.com/voxbridge/voxbridge/pkg/audio/pcm"
	"github.com/voxbridge/voxbridge/pkg/audio/resampler"
)

// TelephonyRate is the sample rate telephony media streams operate at.
const TelephonyRate = 8000

// DefaultChunkDuration is the paced delivery chunk size.
const DefaultChunkDuration = 20 * time.Millisecond

// TelephonyToPCM decodes a μ-law companded telephony payload into 16-bit
// linear PCM at 8kHz mono. Returns a *g711.CodecError on malformed input;
// callers drop the frame and continue.
func TelephonyToPCM(payload []byte) ([]byte, error) {
	return g711.DecodeULaw(payload)
}

// PCMToTelephony converts 16-bit mono PCM at sourceRate into a μ-law
// telephony payload, resampling to 8kHz when the source is wideband.
func PCMToTelephony(pcmData []byte, sourceRate int) ([]byte, error) {
	if len(pcmData) == 0 {
		return nil, &g711.CodecError{Codec: "ulaw", Reason: "empty payload"}
	}
	if len(pcmData)%2 != 0 {
		return nil, &g711.CodecError{Codec: "ulaw", Reason: "odd PCM length"}
	}

	if sourceRate != TelephonyRate {
		srcFmt, err := formatForRate(sourceRate)
		if err != nil {
			return nil, err
		}
		pcmData, err = resampleAll(pcmData, srcFmt, pcm.L16Mono8K)
		if err != nil {
			return nil, err
		}
		if len(pcmData) == 0 {
			return nil, &g711.CodecError{Codec: "ulaw", Reason: "resampled to empty payload"}
		}
	}

	return g711.EncodeULaw(pcmData)
}

// Chunk splits an encoded payload into fixed-duration slices sized for paced
// delivery. The final slice may be shorter; it is never padded. A
// non-positive duration yields the whole payload as a single chunk. Slices
// alias the input.
func Chunk(payload []byte, d time.Duration, sampleRate, sampleWidth int) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	size := int(d / time.Millisecond * time.Duration(sampleRate) / 1000 * time.Duration(sampleWidth))
	if size <= 0 || size >= len(payload) {
		return [][]byte{payload}
	}

	chunks := make([][]byte, 0, (len(payload)+size-1)/size)
	for off := 0; off < len(payload); off += size {
		end := off + size
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[off:end])
	}
	return chunks
}

func formatForRate(rate int) (pcm.Format, error) {
	switch rate {
	case 8000:
		return pcm.L16Mono8K, nil
	case 16000:
		return pcm.L16Mono16K, nil
	case 24000:
		return pcm.L16Mono24K, nil
	}
	return 0, fmt.Errorf("transcode: unsupported sample rate %d", rate)
}

func resampleAll(data []byte, src, dst pcm.Format) ([]byte, error) {
	r, err := resampler.New(bytes.NewReader(data), src, dst)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []byte
	// Read in quarter-second slabs of the source format.
	buf := make([]byte, src.BytesInDuration(250*time.Millisecond))
	for {
		n, rerr := r.Read(buf)
		out = append(out, buf[:n]...)
		if rerr == io.EOF {
			return out, nil
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}
