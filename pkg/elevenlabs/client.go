// Package elevenlabs is a client for the ElevenLabs text-to-speech API,
// covering the streaming synthesis endpoint used for live playback.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.elevenlabs.io"

// DefaultModel is the multilingual synthesis model.
const DefaultModel = "eleven_multilingual_v2"

// Output formats for synthesized audio.
const (
	// FormatPCM16000 is 16-bit little-endian mono PCM at 16kHz.
	FormatPCM16000 = "pcm_16000"
	// FormatULaw8000 is G.711 μ-law at 8kHz.
	FormatULaw8000 = "ulaw_8000"
	// FormatMP3 is 44.1kHz MP3 at 128kbps.
	FormatMP3 = "mp3_44100_128"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: http %d: %s", e.StatusCode, e.Body)
}

// VoiceSettings tunes the synthesis voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability,omitzero"`
	SimilarityBoost float64 `json:"similarity_boost,omitzero"`
	Style           float64 `json:"style,omitzero"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitzero"`
}

// StreamRequest describes one synthesis request.
type StreamRequest struct {
	// Text to synthesize. Required.
	Text string
	// VoiceID selects the voice. Required.
	VoiceID string
	// ModelID defaults to DefaultModel.
	ModelID string
	// OutputFormat defaults to FormatPCM16000.
	OutputFormat string
	// VoiceSettings are optional overrides.
	VoiceSettings *VoiceSettings
	// OptimizeStreamingLatency trades quality for latency (0-4).
	OptimizeStreamingLatency int
}

// Client issues synthesis requests against one API credential.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Useful for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an ElevenLabs API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream synthesizes req.Text and returns the audio as a stream. The caller
// must drain and close the returned reader. Audio bytes arrive as they are
// generated, so playback can begin before synthesis finishes.
func (c *Client) Stream(ctx context.Context, req *StreamRequest) (io.ReadCloser, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("elevenlabs: empty text")
	}
	if req.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs: missing voice ID")
	}

	model := req.ModelID
	if model == "" {
		model = DefaultModel
	}
	format := req.OutputFormat
	if format == "" {
		format = FormatPCM16000
	}

	body, err := json.Marshal(map[string]any{
		"text":           req.Text,
		"model_id":       model,
		"voice_settings": req.VoiceSettings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	query := url.Values{}
	query.Set("output_format", format)
	if req.OptimizeStreamingLatency > 0 {
		query.Set("optimize_streaming_latency", strconv.Itoa(req.OptimizeStreamingLatency))
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?%s",
		c.baseURL, url.PathEscape(req.VoiceID), query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	return resp.Body, nil
}

// Synthesize is the buffered variant of Stream, returning the whole audio
// payload at once.
func (c *Client) Synthesize(ctx context.Context, req *StreamRequest) ([]byte, error) {
	stream, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	audio, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read stream: %w", err)
	}
	return audio, nil
}
