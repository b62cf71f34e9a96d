package openairt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is a live realtime conversation over WebSocket. Send methods are
// safe for concurrent use; Events must be consumed from a single goroutine.
type Session struct {
	conn      *websocket.Conn
	sessionID string
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
	mu        sync.Mutex
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

func newEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// UpdateSession sends session.update. Call after session.created arrives.
func (s *Session) UpdateSession(config *SessionConfig) error {
	return s.sendEvent(map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  config,
	})
}

// AppendAudio appends raw audio bytes, in the session's input format, to the
// input buffer.
func (s *Session) AppendAudio(audio []byte) error {
	return s.AppendAudioBase64(base64.StdEncoding.EncodeToString(audio))
}

// AppendAudioBase64 appends already-encoded audio to the input buffer.
// Telephony payloads arrive base64-encoded, so this avoids a decode/encode
// round trip on the hot path.
func (s *Session) AppendAudioBase64(audio string) error {
	return s.sendEvent(map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeInputAudioBufferAppend,
		"audio":    audio,
	})
}

// CommitInput commits the input buffer into a user message.
func (s *Session) CommitInput() error {
	return s.sendEvent(map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeInputAudioBufferCommit,
	})
}

// ClearInput discards the uncommitted input buffer.
func (s *Session) ClearInput() error {
	return s.sendEvent(map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeInputAudioBufferClear,
	})
}

// AddUserMessage appends a user text message to the conversation.
func (s *Session) AddUserMessage(text string) error {
	return s.sendEvent(map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// TruncateItem cuts an assistant audio item at audioEndMs, discarding the
// unplayed remainder from the conversation state.
func (s *Session) TruncateItem(itemID string, contentIndex, audioEndMs int) error {
	return s.sendEvent(map[string]any{
		"event_id":      newEventID(),
		"type":          EventTypeConversationItemTruncate,
		"item_id":       itemID,
		"content_index": contentIndex,
		"audio_end_ms":  audioEndMs,
	})
}

// CreateResponse asks the model to generate a response. Pass nil for server
// defaults.
func (s *Session) CreateResponse(opts *ResponseOptions) error {
	event := map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeResponseCreate,
	}
	if opts != nil {
		event["response"] = opts
	}
	return s.sendEvent(event)
}

// CancelResponse cancels the in-flight response, if any.
func (s *Session) CancelResponse() error {
	return s.sendEvent(map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeResponseCancel,
	})
}

// SendRaw sends an arbitrary client event.
func (s *Session) SendRaw(event map[string]any) error {
	return s.sendEvent(event)
}

// SessionID returns the server-assigned session ID, or "" before
// session.created has been seen.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Events iterates server events until the session closes or a terminal
// error is yielded.
func (s *Session) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

// Close closes the session. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) sendEvent(event map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if data, err := json.Marshal(event); err == nil {
			str := string(data)
			if len(str) > 300 {
				str = str[:300] + "..."
			}
			slog.Debug("openairt: sending event", "content", str)
		}
	}

	return s.conn.WriteJSON(event)
}

func (s *Session) readLoop() {
	defer close(s.eventsCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.deliver(eventOrError{err: fmt.Errorf("openairt: read: %w", err)})
			return
		}

		event, err := parseEvent(message)
		if err != nil {
			if !s.deliver(eventOrError{err: err}) {
				return
			}
			continue
		}

		if event.Type == EventTypeSessionCreated && event.Session != nil {
			s.mu.Lock()
			s.sessionID = event.Session.ID
			s.mu.Unlock()
		}

		if event.Type == EventTypeError && event.Err != nil {
			if !s.deliver(eventOrError{err: event.Err}) {
				return
			}
			continue
		}

		if !s.deliver(eventOrError{event: event}) {
			return
		}
	}
}

// deliver pushes one item to the event channel. Returns false when the
// session was closed first.
func (s *Session) deliver(item eventOrError) bool {
	select {
	case <-s.closeCh:
		return false
	case s.eventsCh <- item:
		return true
	}
}

func parseEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("openairt: parse event: %w", err)
	}
	event.Raw = message

	// Audio deltas carry base64 in the delta field.
	if event.Type == EventTypeResponseAudioDelta && event.Delta != "" {
		decoded, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			return nil, fmt.Errorf("openairt: decode audio delta: %w", err)
		}
		event.Audio = decoded
	}

	return &event, nil
}
