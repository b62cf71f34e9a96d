package relay

import (
	"fmt"
	"sync"
)

// ErrMarkMismatch reports a playback mark acknowledged out of send order.
// The telephony peer acknowledges marks in the order they were sent, so an
// out-of-order ack is a protocol violation; the queue is left untouched.
var ErrMarkMismatch = fmt.Errorf("relay: mark acknowledged out of order")

// CallSession is the shared state of one relayed call. Both directional
// loops read and mutate it, so every accessor holds the mutex. Playback
// elapsed time is measured against the inbound media clock rather than wall
// time, keeping truncation offsets aligned with what the caller heard.
type CallSession struct {
	mu sync.Mutex

	streamSID    string
	mediaClockMs int64

	// Identity of the AI utterance currently being played, and the media
	// clock reading when its first audio arrived.
	activeItemID     string
	playbackAnchorMs int64

	// Last truncated item. Deltas for it that were already in flight when
	// the truncate fired must be dropped, not replayed.
	truncatedItemID string

	interrupted    bool
	callerSpeaking bool

	pendingMarks []string
}

// NewCallSession returns an empty session awaiting a start frame.
func NewCallSession() *CallSession {
	return &CallSession{}
}

// Begin resets the session for a new media stream.
func (s *CallSession) Begin(streamSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamSID = streamSID
	s.mediaClockMs = 0
	s.activeItemID = ""
	s.playbackAnchorMs = 0
	s.truncatedItemID = ""
	s.interrupted = false
	s.callerSpeaking = false
	s.pendingMarks = nil
}

// StreamSID returns the current stream identity, or "" before start.
func (s *CallSession) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// ObserveMedia advances the media clock. The clock never moves backwards;
// a stale timestamp is ignored.
func (s *CallSession) ObserveMedia(timestampMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timestampMs > s.mediaClockMs {
		s.mediaClockMs = timestampMs
	}
}

// MediaClock returns the latest inbound media timestamp in milliseconds.
func (s *CallSession) MediaClock() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaClockMs
}

// UtteranceStarted records the first audio delta of an AI utterance,
// anchoring its playback timeline to the current media clock. Returns false
// when the delta belongs to an already-truncated item and must be dropped.
func (s *CallSession) UtteranceStarted(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if itemID == "" || itemID == s.truncatedItemID {
		return false
	}
	if s.activeItemID == "" {
		s.activeItemID = itemID
		s.playbackAnchorMs = s.mediaClockMs
		s.interrupted = false
	}
	return s.activeItemID == itemID
}

// ActiveItem returns the item currently playing, or "".
func (s *CallSession) ActiveItem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeItemID
}

// UtteranceDone marks the end of the active utterance.
func (s *CallSession) UtteranceDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeItemID = ""
}

// Interrupt performs the state half of barge-in: it captures the active
// item and its elapsed playback time, empties the mark queue, and flags the
// session interrupted. Returns ok=false when nothing is playing, in which
// case the caller must not issue truncate or clear.
func (s *CallSession) Interrupt() (itemID string, elapsedMs int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeItemID == "" {
		return "", 0, false
	}
	itemID = s.activeItemID
	elapsedMs = s.mediaClockMs - s.playbackAnchorMs
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	s.truncatedItemID = s.activeItemID
	s.activeItemID = ""
	s.interrupted = true
	s.pendingMarks = nil
	return itemID, elapsedMs, true
}

// Interrupted reports whether playback is suppressed pending the next
// utterance.
func (s *CallSession) Interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// IsTruncated reports whether itemID was cut by an interrupt. Stragglers
// for it are dropped.
func (s *CallSession) IsTruncated(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemID != "" && itemID == s.truncatedItemID
}

// SetCallerSpeaking records a debounced caller speech transition and
// reports whether the value changed.
func (s *CallSession) SetCallerSpeaking(speaking bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callerSpeaking == speaking {
		return false
	}
	s.callerSpeaking = speaking
	return true
}

// CallerSpeaking reports the debounced caller speech state.
func (s *CallSession) CallerSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callerSpeaking
}

// PushMark appends a sent playback mark to the pending queue.
func (s *CallSession) PushMark(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingMarks = append(s.pendingMarks, name)
}

// AckMark pops the oldest pending mark. The acknowledged name must match
// it; otherwise ErrMarkMismatch is returned and the queue is unchanged. An
// ack with nothing pending is also a mismatch, which happens legitimately
// right after an interrupt cleared the queue.
func (s *CallSession) AckMark(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pendingMarks) == 0 {
		return fmt.Errorf("%w: %q acknowledged with no marks pending", ErrMarkMismatch, name)
	}
	if s.pendingMarks[0] != name {
		return fmt.Errorf("%w: got %q, oldest pending is %q", ErrMarkMismatch, name, s.pendingMarks[0])
	}
	s.pendingMarks = s.pendingMarks[1:]
	return nil
}

// PendingMarks returns the number of unacknowledged marks.
func (s *CallSession) PendingMarks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingMarks)
}
