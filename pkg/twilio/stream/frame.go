package stream

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/voxbridge/voxbridge/pkg/encoding"
)

// Frame event names used by the media stream protocol.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventClear     = "clear"
	EventStop      = "stop"
	EventError     = "error"
)

// ProtocolError reports a frame that could not be decoded. The read loop
// logs these and keeps going; they never tear down a call.
type ProtocolError struct {
	Reason string
	Data   []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("stream: protocol error: %s", e.Reason)
}

// Milliseconds is a millisecond count that the wire carries as either a
// quoted decimal string or a bare number.
type Milliseconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (m *Milliseconds) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" || s == "" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("stream: invalid millisecond timestamp %q", string(data))
	}
	*m = Milliseconds(v)
	return nil
}

// MarshalJSON implements json.Marshaler. Timestamps go out quoted, matching
// what the telephony peer sends.
func (m Milliseconds) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatInt(int64(m), 10) + `"`), nil
}

// Frame is one protocol message in either direction. Exactly one of the
// event-specific payloads is set, selected by Event.
type Frame struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitzero"`
	Start     *StartPayload `json:"start,omitzero"`
	Media     *MediaPayload `json:"media,omitzero"`
	Mark      *MarkPayload  `json:"mark,omitzero"`
	Stop      *StopPayload  `json:"stop,omitzero"`
	Error     *ErrorPayload `json:"error,omitzero"`
}

// StartPayload announces a new media stream.
type StartPayload struct {
	StreamSID  string   `json:"streamSid"`
	AccountSID string   `json:"accountSid,omitzero"`
	CallSID    string   `json:"callSid,omitzero"`
	Tracks     []string `json:"tracks,omitzero"`
}

// MediaPayload carries one chunk of companded narrowband audio.
type MediaPayload struct {
	Track     string                 `json:"track,omitzero"`
	Chunk     string                 `json:"chunk,omitzero"`
	Timestamp Milliseconds           `json:"timestamp,omitzero"`
	Payload   encoding.StdBase64Data `json:"payload"`
}

// MarkPayload acknowledges (inbound) or requests (outbound) a playback
// synchronization marker.
type MarkPayload struct {
	Name string `json:"name"`
}

// StopPayload announces the end of the media stream.
type StopPayload struct {
	AccountSID string `json:"accountSid,omitzero"`
	CallSID    string `json:"callSid,omitzero"`
}

// ErrorPayload carries a provider-reported stream error.
type ErrorPayload struct {
	Code    string `json:"code,omitzero"`
	Message string `json:"message,omitzero"`
}

// ParseFrame decodes one inbound protocol message. Returns a *ProtocolError
// for anything malformed so callers can log and continue.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &ProtocolError{Reason: err.Error(), Data: data}
	}
	switch f.Event {
	case EventStart:
		if f.Start == nil || f.Start.StreamSID == "" {
			return nil, &ProtocolError{Reason: "start frame missing streamSid", Data: data}
		}
	case EventMedia:
		if f.Media == nil {
			return nil, &ProtocolError{Reason: "media frame missing media payload", Data: data}
		}
	case EventMark:
		if f.Mark == nil || f.Mark.Name == "" {
			return nil, &ProtocolError{Reason: "mark frame missing name", Data: data}
		}
	case EventConnected, EventStop, EventError:
		// No required payload.
	case "":
		return nil, &ProtocolError{Reason: "frame missing event", Data: data}
	}
	return &f, nil
}

// NewMediaFrame builds an outbound media frame for the given stream.
func NewMediaFrame(streamSID string, payload []byte) *Frame {
	return &Frame{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     &MediaPayload{Payload: payload},
	}
}

// NewMarkFrame builds an outbound mark frame for the given stream.
func NewMarkFrame(streamSID, name string) *Frame {
	return &Frame{
		Event:     EventMark,
		StreamSID: streamSID,
		Mark:      &MarkPayload{Name: name},
	}
}

// NewClearFrame builds an outbound clear frame, discarding any audio the
// telephony peer has buffered but not yet played.
func NewClearFrame(streamSID string) *Frame {
	return &Frame{Event: EventClear, StreamSID: streamSID}
}
