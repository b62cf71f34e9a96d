package openairt

// Client event types.
const (
	EventTypeSessionUpdate            = "session.update"
	EventTypeInputAudioBufferAppend   = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit   = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear    = "input_audio_buffer.clear"
	EventTypeConversationItemCreate   = "conversation.item.create"
	EventTypeConversationItemTruncate = "conversation.item.truncate"
	EventTypeResponseCreate           = "response.create"
	EventTypeResponseCancel           = "response.cancel"
)

// Server event types.
const (
	EventTypeError                = "error"
	EventTypeSessionCreated       = "session.created"
	EventTypeSessionUpdated       = "session.updated"
	EventTypeSpeechStarted        = "input_audio_buffer.speech_started"
	EventTypeSpeechStopped        = "input_audio_buffer.speech_stopped"
	EventTypeInputAudioCommitted  = "input_audio_buffer.committed"
	EventTypeItemTruncated        = "conversation.item.truncated"
	EventTypeInputTranscription   = "conversation.item.input_audio_transcription.completed"
	EventTypeResponseCreated      = "response.created"
	EventTypeResponseDone         = "response.done"
	EventTypeResponseAudioDelta   = "response.audio.delta"
	EventTypeResponseAudioDone    = "response.audio.done"
	EventTypeResponseTextDelta    = "response.text.delta"
	EventTypeResponseTextDone     = "response.text.done"
	EventTypeTranscriptDelta      = "response.audio_transcript.delta"
	EventTypeTranscriptDone       = "response.audio_transcript.done"
	EventTypeRateLimitsUpdated    = "rate_limits.updated"
)

// ServerEvent is one event read from the session. Fields are populated
// according to Type; Raw always holds the original message.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitzero"`

	// session.created, session.updated.
	Session *SessionResource `json:"session,omitzero"`

	// Item identity for audio deltas, truncation acks and speech events.
	ItemID       string `json:"item_id,omitzero"`
	ContentIndex int    `json:"content_index,omitzero"`
	OutputIndex  int    `json:"output_index,omitzero"`
	ResponseID   string `json:"response_id,omitzero"`

	// input_audio_buffer.speech_started / speech_stopped.
	AudioStartMs int `json:"audio_start_ms,omitzero"`
	AudioEndMs   int `json:"audio_end_ms,omitzero"`

	// Incremental payload for *.delta events. For audio deltas this is
	// base64; Audio carries the decoded bytes.
	Delta string `json:"delta,omitzero"`
	Audio []byte `json:"-"`

	// Transcription results.
	Transcript string `json:"transcript,omitzero"`

	// response.created, response.done.
	Response *ResponseResource `json:"response,omitzero"`

	// rate_limits.updated.
	RateLimits []RateLimit `json:"rate_limits,omitzero"`

	// error events.
	Err *Error `json:"error,omitzero"`

	Raw []byte `json:"-"`
}
