package relay

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/voxbridge/voxbridge/pkg/audio/pcm"
	"github.com/voxbridge/voxbridge/pkg/audio/transcode"
	"github.com/voxbridge/voxbridge/pkg/elevenlabs"
	"github.com/voxbridge/voxbridge/pkg/openairt"
)

// TTSUplinkConfig configures the text-mode backend with external speech
// synthesis.
type TTSUplinkConfig struct {
	// Instructions is the system prompt for the conversation.
	Instructions string
	// VoiceID selects the synthesis voice.
	VoiceID string
	// VoiceSettings are optional synthesis overrides.
	VoiceSettings *elevenlabs.VoiceSettings
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// TTSUplink runs the realtime session in text-only output mode and
// synthesizes each finished reply through ElevenLabs. Caller audio still
// goes to the realtime endpoint, which handles understanding and turn
// detection; only the AI's voice is swapped out. Replies arrive as one
// audio payload per turn instead of streaming deltas, so barge-in
// truncation maps to cancelling the in-flight response.
type TTSUplink struct {
	session *openairt.Session
	tts     *elevenlabs.Client
	config  TTSUplinkConfig
	logger  *slog.Logger
}

// NewTTSUplink wraps a connected realtime session and a synthesis client.
func NewTTSUplink(session *openairt.Session, tts *elevenlabs.Client, config TTSUplinkConfig) *TTSUplink {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TTSUplink{
		session: session,
		tts:     tts,
		config:  config,
		logger:  logger,
	}
}

// Start configures the session for text replies over telephony input.
func (u *TTSUplink) Start(ctx context.Context) error {
	cfg := &openairt.SessionConfig{
		Modalities:       []string{openairt.ModalityText},
		Instructions:     u.config.Instructions,
		InputAudioFormat: openairt.AudioFormatG711ULaw,
		TurnDetection:    &openairt.TurnDetection{Type: openairt.VADServerVAD},
	}
	if err := u.session.UpdateSession(cfg); err != nil {
		return fmt.Errorf("relay: configure session: %w", err)
	}
	return nil
}

// Greet injects a user message asking the AI to speak first.
func (u *TTSUplink) Greet(prompt string) error {
	if err := u.session.AddUserMessage(prompt); err != nil {
		return fmt.Errorf("relay: greet: %w", err)
	}
	if err := u.session.CreateResponse(nil); err != nil {
		return fmt.Errorf("relay: greet: %w", err)
	}
	return nil
}

// SendAudio forwards caller audio to the input buffer.
func (u *TTSUplink) SendAudio(payload []byte) error {
	return u.session.AppendAudio(payload)
}

// Truncate cancels the in-flight response. There is no server-side audio
// timeline to cut in text mode; the unplayed remainder only exists in the
// telephony buffer, which the clear frame empties.
func (u *TTSUplink) Truncate(itemID string, elapsedMs int64) error {
	return u.session.CancelResponse()
}

// Events translates realtime text events into normalized uplink events,
// synthesizing audio for each completed reply. Synthesis requests run
// under ctx.
func (u *TTSUplink) Events(ctx context.Context) iter.Seq2[*UplinkEvent, error] {
	return func(yield func(*UplinkEvent, error) bool) {
		for event, err := range u.session.Events() {
			if err != nil {
				yield(nil, err)
				return
			}
			switch event.Type {
			case openairt.EventTypeSpeechStarted:
				if !yield(&UplinkEvent{Kind: EventSpeechStarted}, nil) {
					return
				}
			case openairt.EventTypeSpeechStopped:
				if !yield(&UplinkEvent{Kind: EventSpeechStopped}, nil) {
					return
				}
			case openairt.EventTypeResponseDone:
				itemID, text := replyText(event.Response)
				if text != "" {
					audio, err := u.synthesize(ctx, text)
					if err != nil {
						u.logger.Error("synthesis failed", "item_id", itemID, "error", err)
					} else if !yield(&UplinkEvent{Kind: EventAudioDelta, ItemID: itemID, Audio: audio}, nil) {
						return
					}
					if !yield(&UplinkEvent{Kind: EventAssistantTranscript, ItemID: itemID, Text: text}, nil) {
						return
					}
				}
				if !yield(&UplinkEvent{Kind: EventUtteranceDone, ItemID: itemID}, nil) {
					return
				}
			case openairt.EventTypeInputTranscription:
				if event.Transcript == "" {
					continue
				}
				if !yield(&UplinkEvent{Kind: EventCallerTranscript, ItemID: event.ItemID, Text: event.Transcript}, nil) {
					return
				}
			}
		}
	}
}

// Close tears down the realtime session.
func (u *TTSUplink) Close() error {
	return u.session.Close()
}

// synthesize renders text as 16kHz PCM and converts it down to telephony
// μ-law.
func (u *TTSUplink) synthesize(ctx context.Context, text string) ([]byte, error) {
	data, err := u.tts.Synthesize(ctx, &elevenlabs.StreamRequest{
		Text:                     text,
		VoiceID:                  u.config.VoiceID,
		OutputFormat:             elevenlabs.FormatPCM16000,
		VoiceSettings:            u.config.VoiceSettings,
		OptimizeStreamingLatency: 2,
	})
	if err != nil {
		return nil, err
	}
	u.logger.Debug("reply synthesized",
		"chars", len(text), "audio", pcm.L16Mono16K.Duration(int64(len(data))))
	return transcode.PCMToTelephony(data, 16000)
}

// replyText extracts the item ID and text of the first text item in a
// finished response.
func replyText(resp *openairt.ResponseResource) (itemID, text string) {
	if resp == nil {
		return "", ""
	}
	for _, item := range resp.Output {
		for _, part := range item.Content {
			if part.Text != "" {
				return item.ID, part.Text
			}
		}
	}
	return "", ""
}

var _ Uplink = (*TTSUplink)(nil)
