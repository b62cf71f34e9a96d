package relay

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/voxbridge/voxbridge/pkg/openairt"
)

// OpenAIUplinkConfig configures the realtime voice backend.
type OpenAIUplinkConfig struct {
	// Instructions is the system prompt for the conversation.
	Instructions string
	// Voice selects the output voice.
	Voice string
	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64
	// TranscribeInput enables caller speech transcription.
	TranscribeInput bool
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// OpenAIUplink drives a realtime session in full speech-to-speech mode.
// Both directions run G.711 μ-law at 8kHz, so telephony payloads pass
// through untouched in both directions.
type OpenAIUplink struct {
	session *openairt.Session
	config  OpenAIUplinkConfig
	logger  *slog.Logger
}

// NewOpenAIUplink wraps a connected realtime session.
func NewOpenAIUplink(session *openairt.Session, config OpenAIUplinkConfig) *OpenAIUplink {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIUplink{session: session, config: config, logger: logger}
}

// Start configures the session for telephony audio with server-side turn
// detection.
func (u *OpenAIUplink) Start(ctx context.Context) error {
	cfg := &openairt.SessionConfig{
		Modalities:        []string{openairt.ModalityText, openairt.ModalityAudio},
		Instructions:      u.config.Instructions,
		Voice:             u.config.Voice,
		InputAudioFormat:  openairt.AudioFormatG711ULaw,
		OutputAudioFormat: openairt.AudioFormatG711ULaw,
		TurnDetection:     &openairt.TurnDetection{Type: openairt.VADServerVAD},
		Temperature:       u.config.Temperature,
	}
	if u.config.TranscribeInput {
		cfg.InputAudioTranscription = &openairt.TranscriptionConfig{Model: "whisper-1"}
	}
	if err := u.session.UpdateSession(cfg); err != nil {
		return fmt.Errorf("relay: configure session: %w", err)
	}
	return nil
}

// Greet injects a user message asking the AI to speak first, then requests
// a response.
func (u *OpenAIUplink) Greet(prompt string) error {
	if err := u.session.AddUserMessage(prompt); err != nil {
		return fmt.Errorf("relay: greet: %w", err)
	}
	if err := u.session.CreateResponse(nil); err != nil {
		return fmt.Errorf("relay: greet: %w", err)
	}
	return nil
}

// SendAudio forwards caller audio to the input buffer.
func (u *OpenAIUplink) SendAudio(payload []byte) error {
	return u.session.AppendAudio(payload)
}

// Truncate cuts the given utterance at elapsedMs.
func (u *OpenAIUplink) Truncate(itemID string, elapsedMs int64) error {
	return u.session.TruncateItem(itemID, 0, int(elapsedMs))
}

// Events translates realtime server events into normalized uplink events.
func (u *OpenAIUplink) Events(ctx context.Context) iter.Seq2[*UplinkEvent, error] {
	return func(yield func(*UplinkEvent, error) bool) {
		for event, err := range u.session.Events() {
			if err != nil {
				yield(nil, err)
				return
			}
			switch event.Type {
			case openairt.EventTypeResponseAudioDelta:
				if !yield(&UplinkEvent{Kind: EventAudioDelta, ItemID: event.ItemID, Audio: event.Audio}, nil) {
					return
				}
			case openairt.EventTypeSpeechStarted:
				if !yield(&UplinkEvent{Kind: EventSpeechStarted}, nil) {
					return
				}
			case openairt.EventTypeSpeechStopped:
				if !yield(&UplinkEvent{Kind: EventSpeechStopped}, nil) {
					return
				}
			case openairt.EventTypeResponseDone:
				if !yield(&UplinkEvent{Kind: EventUtteranceDone, ItemID: doneItemID(event.Response)}, nil) {
					return
				}
			case openairt.EventTypeTranscriptDone:
				if event.Transcript == "" {
					continue
				}
				if !yield(&UplinkEvent{Kind: EventAssistantTranscript, ItemID: event.ItemID, Text: event.Transcript}, nil) {
					return
				}
			case openairt.EventTypeInputTranscription:
				if event.Transcript == "" {
					continue
				}
				if !yield(&UplinkEvent{Kind: EventCallerTranscript, ItemID: event.ItemID, Text: event.Transcript}, nil) {
					return
				}
			case openairt.EventTypeRateLimitsUpdated:
				for _, rl := range event.RateLimits {
					u.logger.Debug("rate limit updated",
						"name", rl.Name, "remaining", rl.Remaining, "limit", rl.Limit)
				}
			case openairt.EventTypeSessionCreated:
				u.logger.Info("realtime session created", "session_id", u.session.SessionID())
			case openairt.EventTypeItemTruncated:
				u.logger.Debug("item truncated", "item_id", event.ItemID, "audio_end_ms", event.AudioEndMs)
			}
		}
	}
}

// Close tears down the realtime session.
func (u *OpenAIUplink) Close() error {
	return u.session.Close()
}

// doneItemID extracts the item a finished response produced, or "" when
// the response carried no output.
func doneItemID(resp *openairt.ResponseResource) string {
	if resp == nil {
		return ""
	}
	for _, item := range resp.Output {
		if item.ID != "" {
			return item.ID
		}
	}
	return ""
}

var _ Uplink = (*OpenAIUplink)(nil)
