package openairt

import "encoding/json"

// Audio formats the realtime API accepts and produces.
const (
	// AudioFormatPCM16 is 16-bit little-endian mono PCM at 24kHz.
	AudioFormatPCM16 = "pcm16"
	// AudioFormatG711ULaw is G.711 μ-law at 8kHz. Matches telephony media
	// streams byte for byte, so no transcoding is needed in either direction.
	AudioFormatG711ULaw = "g711_ulaw"
	// AudioFormatG711ALaw is G.711 A-law at 8kHz.
	AudioFormatG711ALaw = "g711_alaw"
)

// Turn detection modes.
const (
	VADServerVAD   = "server_vad"
	VADSemanticVAD = "semantic_vad"
)

// Output modalities.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// SessionConfig is the session.update payload.
type SessionConfig struct {
	Modalities              []string             `json:"modalities,omitzero"`
	Instructions            string               `json:"instructions,omitzero"`
	Voice                   string               `json:"voice,omitzero"`
	InputAudioFormat        string               `json:"input_audio_format,omitzero"`
	OutputAudioFormat       string               `json:"output_audio_format,omitzero"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitzero"`
	Temperature             *float64             `json:"temperature,omitzero"`
}

// TranscriptionConfig enables transcription of caller audio.
type TranscriptionConfig struct {
	Model string `json:"model,omitzero"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type,omitzero"`
	Threshold         float64 `json:"threshold,omitzero"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitzero"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitzero"`
	CreateResponse    *bool   `json:"create_response,omitzero"`
	InterruptResponse *bool   `json:"interrupt_response,omitzero"`
}

// ResponseOptions tunes a single response.create request. Nil means server
// defaults.
type ResponseOptions struct {
	Modalities   []string `json:"modalities,omitzero"`
	Instructions string   `json:"instructions,omitzero"`
	Voice        string   `json:"voice,omitzero"`
}

// SessionResource is the server's view of the session, delivered with
// session.created and session.updated.
type SessionResource struct {
	ID                string         `json:"id,omitzero"`
	Model             string         `json:"model,omitzero"`
	Modalities        []string       `json:"modalities,omitzero"`
	Voice             string         `json:"voice,omitzero"`
	InputAudioFormat  string         `json:"input_audio_format,omitzero"`
	OutputAudioFormat string         `json:"output_audio_format,omitzero"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitzero"`
	ExpiresAt         int64          `json:"expires_at,omitzero"`
}

// ResponseResource summarizes a finished or in-flight response.
type ResponseResource struct {
	ID            string          `json:"id,omitzero"`
	Status        string          `json:"status,omitzero"`
	StatusDetails json.RawMessage `json:"status_details,omitzero"`
	Output        []OutputItem    `json:"output,omitzero"`
	Usage         *Usage          `json:"usage,omitzero"`
}

// OutputItem is one item produced by a response.
type OutputItem struct {
	ID      string        `json:"id,omitzero"`
	Type    string        `json:"type,omitzero"`
	Role    string        `json:"role,omitzero"`
	Status  string        `json:"status,omitzero"`
	Content []ContentPart `json:"content,omitzero"`
}

// ContentPart is one part of an item's content.
type ContentPart struct {
	Type       string `json:"type,omitzero"`
	Text       string `json:"text,omitzero"`
	Transcript string `json:"transcript,omitzero"`
}

// Usage reports token consumption for a response.
type Usage struct {
	TotalTokens  int `json:"total_tokens,omitzero"`
	InputTokens  int `json:"input_tokens,omitzero"`
	OutputTokens int `json:"output_tokens,omitzero"`
}

// RateLimit is one entry of a rate_limits.updated event.
type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}
