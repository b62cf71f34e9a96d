// Package g711 implements the ITU-T G.711 companded telephony codecs (μ-law
// and A-law). Both map 16-bit linear PCM samples to 8 bits per sample using a
// logarithmic curve, halving the bandwidth of narrowband call audio.
//
// All functions are pure and stateless. PCM data is 16-bit signed
// little-endian mono; companded data is one byte per sample.
package g711

import "fmt"

// CodecError reports a malformed or unsupported audio payload. Callers treat
// it as drop-and-continue, not fatal.
type CodecError struct {
	Codec  string
	Reason string
}

// Error implements the error interface.
func (e *CodecError) Error() string {
	return fmt.Sprintf("g711: %s: %s", e.Codec, e.Reason)
}

const ulawBias = 0x84

// DecodeULaw converts μ-law companded audio to 16-bit linear PCM
// (little-endian, mono, same sample rate as the input).
func DecodeULaw(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, &CodecError{Codec: "ulaw", Reason: "empty payload"}
	}
	pcm := make([]byte, len(payload)*2)
	for i, u := range payload {
		s := ulawToLinear(u)
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm, nil
}

// EncodeULaw converts 16-bit linear PCM (little-endian, mono) to μ-law
// companded audio. The PCM length must be even.
func EncodeULaw(pcm []byte) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, &CodecError{Codec: "ulaw", Reason: "empty payload"}
	}
	if len(pcm)%2 != 0 {
		return nil, &CodecError{Codec: "ulaw", Reason: "odd PCM length"}
	}
	out := make([]byte, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = linearToULaw(s)
	}
	return out, nil
}

// DecodeALaw converts A-law companded audio to 16-bit linear PCM.
func DecodeALaw(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, &CodecError{Codec: "alaw", Reason: "empty payload"}
	}
	pcm := make([]byte, len(payload)*2)
	for i, a := range payload {
		s := alawToLinear(a)
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm, nil
}

// EncodeALaw converts 16-bit linear PCM to A-law companded audio. The PCM
// length must be even.
func EncodeALaw(pcm []byte) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, &CodecError{Codec: "alaw", Reason: "empty payload"}
	}
	if len(pcm)%2 != 0 {
		return nil, &CodecError{Codec: "alaw", Reason: "odd PCM length"}
	}
	out := make([]byte, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = linearToALaw(s)
	}
	return out, nil
}

func ulawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + ulawBias
	value <<= uint(exp)
	value -= ulawBias
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

func linearToULaw(sample int16) byte {
	const clip = 32635
	sign := byte(0)
	s := int(sample)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > clip {
		s = clip
	}
	s += ulawBias
	exp := byte(7)
	for mask := 0x4000; (s&mask) == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte((s >> (int(exp) + 3)) & 0x0F)
	return ^(sign | (exp << 4) | mant)
}

func alawToLinear(a byte) int16 {
	a ^= 0x55
	sign := a & 0x80
	exp := (a >> 4) & 0x07
	mant := a & 0x0F
	var value int
	if exp != 0 {
		value = (int(mant)<<4 + 0x100) << (exp - 1)
	} else {
		value = (int(mant) << 4) + 8
	}
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

func linearToALaw(sample int16) byte {
	const clip = 32635
	sign := byte(0)
	s := int(sample)
	if s < 0 {
		s = -s - 1
		sign = 0x80
	}
	if s > clip {
		s = clip
	}
	var comp byte
	if s >= 256 {
		exp := byte(7)
		for mask := 0x4000; (s&mask) == 0 && exp > 0; mask >>= 1 {
			exp--
		}
		mant := byte((s >> (int(exp) + 3)) & 0x0F)
		comp = (exp << 4) | mant
	} else {
		comp = byte(s >> 4)
	}
	comp ^= 0x55
	return comp ^ sign
}
