// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: PCM (Pulse Code Modulation) format descriptors
//   - g711: mu-law companding for telephony audio
//   - resampler: sample rate conversion between PCM streams
//   - transcode: conversions between telephony mu-law and linear PCM
//
// Example usage:
//
//	import (
//	    "github.com/voxbridge/voxbridge/pkg/audio/g711"
//	    "github.com/voxbridge/voxbridge/pkg/audio/transcode"
//	)
//
//	// Decode one telephony frame to linear samples
//	samples := g711.DecodeULaw(payload)
//
//	// Convert 16 kHz TTS output to 8 kHz telephony mu-law
//	out, err := transcode.PCMToTelephony(pcmData, 16000)
package audio
