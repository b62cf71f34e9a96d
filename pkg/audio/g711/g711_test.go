package g711

import (
	"math"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

func samplesFromPCM(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return out
}

// Every μ-law byte decodes to its segment's reconstruction value, which must
// re-encode to the same byte.
func TestULawByteExactRoundTrip(t *testing.T) {
	in := make([]byte, 256)
	for i := range in {
		in[i] = byte(i)
	}
	pcm, err := DecodeULaw(in)
	if err != nil {
		t.Fatalf("DecodeULaw: %v", err)
	}
	out, err := EncodeULaw(pcm)
	if err != nil {
		t.Fatalf("EncodeULaw: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("byte 0x%02x: round trip produced 0x%02x", in[i], out[i])
		}
	}
}

// PCM → μ-law → PCM must stay within the companding quantization error: the
// step size grows with amplitude, roughly |s|/16 plus the bias region.
func TestULawPCMRoundTripTolerance(t *testing.T) {
	samples := []int16{0, 1, -1, 7, -8, 100, -100, 1000, -1000, 8000, -8000, 30000, -30000, 32635, -32635}
	pcm := pcmFromSamples(samples)

	enc, err := EncodeULaw(pcm)
	if err != nil {
		t.Fatalf("EncodeULaw: %v", err)
	}
	dec, err := DecodeULaw(enc)
	if err != nil {
		t.Fatalf("DecodeULaw: %v", err)
	}

	got := samplesFromPCM(dec)
	for i, want := range samples {
		tol := int(math.Abs(float64(want)))/16 + 64
		if diff := int(got[i]) - int(want); diff > tol || diff < -tol {
			t.Errorf("sample %d: got %d; want %d ± %d", want, got[i], want, tol)
		}
	}
}

func TestALawPCMRoundTripTolerance(t *testing.T) {
	samples := []int16{0, 16, -16, 500, -500, 5000, -5000, 20000, -20000, 32000, -32000}
	pcm := pcmFromSamples(samples)

	enc, err := EncodeALaw(pcm)
	if err != nil {
		t.Fatalf("EncodeALaw: %v", err)
	}
	dec, err := DecodeALaw(enc)
	if err != nil {
		t.Fatalf("DecodeALaw: %v", err)
	}

	got := samplesFromPCM(dec)
	for i, want := range samples {
		tol := int(math.Abs(float64(want)))/16 + 64
		if diff := int(got[i]) - int(want); diff > tol || diff < -tol {
			t.Errorf("sample %d: got %d; want %d ± %d", want, got[i], want, tol)
		}
	}
}

func TestCodecErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"decode ulaw empty", func() error { _, err := DecodeULaw(nil); return err }},
		{"encode ulaw empty", func() error { _, err := EncodeULaw(nil); return err }},
		{"encode ulaw odd", func() error { _, err := EncodeULaw([]byte{1, 2, 3}); return err }},
		{"decode alaw empty", func() error { _, err := DecodeALaw(nil); return err }},
		{"encode alaw odd", func() error { _, err := EncodeALaw([]byte{1}); return err }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if _, ok := err.(*CodecError); !ok {
				t.Errorf("error type = %T; want *CodecError", err)
			}
		})
	}
}

func TestULawSilence(t *testing.T) {
	// Zero PCM encodes to 0xFF and decodes back to zero.
	enc, err := EncodeULaw([]byte{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("EncodeULaw: %v", err)
	}
	for _, b := range enc {
		if b != 0xFF {
			t.Errorf("silence byte = 0x%02x; want 0xff", b)
		}
	}
	dec, err := DecodeULaw(enc)
	if err != nil {
		t.Fatalf("DecodeULaw: %v", err)
	}
	for _, s := range samplesFromPCM(dec) {
		if s != 0 {
			t.Errorf("decoded silence sample = %d; want 0", s)
		}
	}
}
