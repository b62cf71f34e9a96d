package relay

import (
	"context"
	"iter"
)

// EventKind classifies events flowing down from the AI endpoint.
type EventKind int

const (
	// EventAudioDelta carries one chunk of AI speech, already in 8kHz
	// μ-law, tagged with the utterance it belongs to.
	EventAudioDelta EventKind = iota
	// EventSpeechStarted is the endpoint's voice activity detector firing
	// on caller audio.
	EventSpeechStarted
	// EventSpeechStopped is the endpoint detecting end of caller speech.
	EventSpeechStopped
	// EventUtteranceDone marks the end of an AI utterance's audio, tagged
	// with the utterance it closes when the backend reports one.
	EventUtteranceDone
	// EventAssistantTranscript carries the text of a finished AI utterance.
	EventAssistantTranscript
	// EventCallerTranscript carries the transcription of caller speech.
	EventCallerTranscript
)

func (k EventKind) String() string {
	switch k {
	case EventAudioDelta:
		return "audio_delta"
	case EventSpeechStarted:
		return "speech_started"
	case EventSpeechStopped:
		return "speech_stopped"
	case EventUtteranceDone:
		return "utterance_done"
	case EventAssistantTranscript:
		return "assistant_transcript"
	case EventCallerTranscript:
		return "caller_transcript"
	}
	return "unknown"
}

// UplinkEvent is one event from the AI endpoint, normalized across
// backends.
type UplinkEvent struct {
	Kind   EventKind
	ItemID string
	Audio  []byte
	Text   string
}

// Uplink is the AI side of a relayed call. SendAudio and Truncate must be
// safe for concurrent use: caller audio is forwarded by the inbound loop
// while truncation fires from whichever loop detects barge-in first.
type Uplink interface {
	// Start configures the remote session. Must be called before any other
	// method.
	Start(ctx context.Context) error

	// Greet asks the AI to open the conversation with the given prompt.
	Greet(prompt string) error

	// SendAudio forwards one caller audio payload, 8kHz μ-law.
	SendAudio(payload []byte) error

	// Truncate cuts the utterance identified by itemID at elapsedMs,
	// discarding whatever the caller has not heard.
	Truncate(itemID string, elapsedMs int64) error

	// Events iterates normalized endpoint events until the session ends,
	// ctx is canceled, or a terminal error is yielded. Single consumer.
	Events(ctx context.Context) iter.Seq2[*UplinkEvent, error]

	// Close tears down the session. Safe to call more than once.
	Close() error
}
