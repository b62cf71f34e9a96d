package relay

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/voxbridge/voxbridge/pkg/twilio/stream"
)

// fakeConn feeds scripted inbound frames and records outbound traffic.
type fakeConn struct {
	frames chan *stream.Frame

	mu     sync.Mutex
	media  [][]byte
	marks  []string
	clears int

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan *stream.Frame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Next() (*stream.Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) SendMedia(streamSID string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.media = append(c.media, buf)
	return nil
}

func (c *fakeConn) SendMark(streamSID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks = append(c.marks, name)
	return nil
}

func (c *fakeConn) SendClear(streamSID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) clearCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}

func (c *fakeConn) mediaCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.media)
}

func (c *fakeConn) markCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.marks)
}

type truncateCall struct {
	itemID    string
	elapsedMs int64
}

// fakeUplink emits scripted events and records everything sent to it.
// failErr, when set before Run, is yielded as a terminal error once the
// event channel closes.
type fakeUplink struct {
	events  chan *UplinkEvent
	failErr error

	mu        sync.Mutex
	audio     [][]byte
	truncates []truncateCall
	greetings []string

	closeOnce sync.Once
}

func newFakeUplink() *fakeUplink {
	return &fakeUplink{events: make(chan *UplinkEvent, 16)}
}

func (u *fakeUplink) Start(ctx context.Context) error { return nil }

func (u *fakeUplink) Greet(prompt string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.greetings = append(u.greetings, prompt)
	return nil
}

func (u *fakeUplink) SendAudio(payload []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	u.audio = append(u.audio, buf)
	return nil
}

func (u *fakeUplink) Truncate(itemID string, elapsedMs int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.truncates = append(u.truncates, truncateCall{itemID, elapsedMs})
	return nil
}

func (u *fakeUplink) Events(ctx context.Context) iter.Seq2[*UplinkEvent, error] {
	return func(yield func(*UplinkEvent, error) bool) {
		for event := range u.events {
			if !yield(event, nil) {
				return
			}
		}
		if u.failErr != nil {
			yield(nil, u.failErr)
		}
	}
}

func (u *fakeUplink) Close() error {
	u.closeOnce.Do(func() { close(u.events) })
	return nil
}

func (u *fakeUplink) audioCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.audio)
}

func (u *fakeUplink) truncateCalls() []truncateCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]truncateCall(nil), u.truncates...)
}

func mediaFrame(ts int64, payload []byte) *stream.Frame {
	return &stream.Frame{
		Event: stream.EventMedia,
		Media: &stream.MediaPayload{Timestamp: stream.Milliseconds(ts), Payload: payload},
	}
}

func startFrame(sid string) *stream.Frame {
	return &stream.Frame{Event: stream.EventStart, Start: &stream.StartPayload{StreamSID: sid}}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRelayBargeIn(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	relay := New(conn, uplink, Config{ChunkDuration: time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	// Call starts, caller audio at clock 0 flows to the AI.
	conn.frames <- startFrame("CA1")
	conn.frames <- mediaFrame(0, make([]byte, 160))
	waitFor(t, "caller audio forwarded", func() bool { return uplink.audioCount() == 1 })

	// AI begins an utterance; its audio reaches the telephony peer.
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R1", Audio: make([]byte, 16)}
	waitFor(t, "AI audio delivered", func() bool { return conn.mediaCount() > 0 })

	// Caller talks over it at clock 300; the endpoint detects speech.
	conn.frames <- mediaFrame(300, make([]byte, 160))
	waitFor(t, "media clock advance", func() bool { return relay.Session().MediaClock() == 300 })
	uplink.events <- &UplinkEvent{Kind: EventSpeechStarted}

	waitFor(t, "truncate issued", func() bool { return len(uplink.truncateCalls()) == 1 })
	tc := uplink.truncateCalls()[0]
	if tc.itemID != "R1" || tc.elapsedMs != 300 {
		t.Errorf("Truncate(%q, %d); want Truncate(\"R1\", 300)", tc.itemID, tc.elapsedMs)
	}
	waitFor(t, "clear issued", func() bool { return conn.clearCount() == 1 })
	if relay.Session().ActiveItem() != "" {
		t.Errorf("ActiveItem = %q after barge-in; want empty", relay.Session().ActiveItem())
	}
	if !relay.Session().Interrupted() {
		t.Error("Interrupted = false after barge-in")
	}

	// A second speech-start with nothing playing must not re-truncate.
	uplink.events <- &UplinkEvent{Kind: EventSpeechStarted}
	conn.frames <- mediaFrame(400, make([]byte, 160))
	waitFor(t, "second media forwarded", func() bool { return uplink.audioCount() == 3 })
	if got := len(uplink.truncateCalls()); got != 1 {
		t.Errorf("truncate count = %d; want exactly 1", got)
	}
	if got := conn.clearCount(); got != 1 {
		t.Errorf("clear count = %d; want exactly 1", got)
	}

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// fakeRecorder records transcript appends; tests use it to observe that
// the event loop has processed everything sent before a transcript event.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *fakeRecorder) AppendTranscript(streamSID, role, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, role+":"+text)
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestRelayBargeInPreemptsPlayback(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	relay := New(conn, uplink, Config{ChunkDuration: 20 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA5")
	conn.frames <- mediaFrame(0, make([]byte, 160))
	waitFor(t, "caller audio forwarded", func() bool { return uplink.audioCount() == 1 })

	// One second of generated audio followed immediately by speech
	// detection. Truncation must not wait for the backlog to play out.
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R1", Audio: make([]byte, 8000)}
	uplink.events <- &UplinkEvent{Kind: EventSpeechStarted}

	waitFor(t, "truncate issued", func() bool { return len(uplink.truncateCalls()) == 1 })
	if tc := uplink.truncateCalls()[0]; tc.itemID != "R1" {
		t.Errorf("truncated item = %q; want R1", tc.itemID)
	}
	waitFor(t, "clear issued", func() bool { return conn.clearCount() == 1 })

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 8000 bytes is 50 chunks at 20ms. Playback must have been cut off
	// near its start, not drained to completion.
	if got := conn.mediaCount(); got >= 50 {
		t.Errorf("delivered %d chunks of a truncated utterance; want far fewer than 50", got)
	}
}

func TestRelayEndpointSpeechRepeatIgnored(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	recorder := &fakeRecorder{}
	relay := New(conn, uplink, Config{ChunkDuration: time.Millisecond, Recorder: recorder})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA6")
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R1", Audio: make([]byte, 16)}
	waitFor(t, "first utterance active", func() bool { return relay.Session().ActiveItem() == "R1" })

	uplink.events <- &UplinkEvent{Kind: EventSpeechStarted}
	waitFor(t, "first truncate", func() bool { return len(uplink.truncateCalls()) == 1 })

	// Next utterance begins while the caller is still marked speaking.
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R2", Audio: make([]byte, 16)}
	waitFor(t, "second utterance active", func() bool { return relay.Session().ActiveItem() == "R2" })

	// A repeated speech-start with no intervening speech-stop is not a
	// transition; it must not cut the new utterance.
	uplink.events <- &UplinkEvent{Kind: EventSpeechStarted}
	uplink.events <- &UplinkEvent{Kind: EventCallerTranscript, Text: "sync"}
	waitFor(t, "repeat processed", func() bool { return recorder.count() == 1 })
	if got := len(uplink.truncateCalls()); got != 1 {
		t.Fatalf("truncate count after repeated speech-start = %d; want 1", got)
	}
	if got := relay.Session().ActiveItem(); got != "R2" {
		t.Fatalf("ActiveItem = %q after repeated speech-start; want R2", got)
	}

	// A real stop/start transition cuts it.
	uplink.events <- &UplinkEvent{Kind: EventSpeechStopped}
	uplink.events <- &UplinkEvent{Kind: EventSpeechStarted}
	waitFor(t, "second truncate", func() bool { return len(uplink.truncateCalls()) == 2 })
	if tc := uplink.truncateCalls()[1]; tc.itemID != "R2" {
		t.Errorf("second truncate item = %q; want R2", tc.itemID)
	}

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRelayUtteranceDoneItemMismatch(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	relay := New(conn, uplink, Config{ChunkDuration: time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA7")
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R1", Audio: make([]byte, 8)}
	// A done event for some other item, then more R1 audio. The trailing
	// delta proves the mismatched done has been processed once it plays.
	uplink.events <- &UplinkEvent{Kind: EventUtteranceDone, ItemID: "R7"}
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R1", Audio: make([]byte, 8)}

	waitFor(t, "both deltas delivered", func() bool { return conn.mediaCount() == 2 })
	if got := conn.markCount(); got != 0 {
		t.Fatalf("mark count after mismatched done = %d; want 0", got)
	}
	if got := relay.Session().ActiveItem(); got != "R1" {
		t.Fatalf("ActiveItem = %q after mismatched done; want R1", got)
	}

	uplink.events <- &UplinkEvent{Kind: EventUtteranceDone, ItemID: "R1"}
	waitFor(t, "utterance closed", func() bool { return conn.markCount() == 1 })
	waitFor(t, "item cleared", func() bool { return relay.Session().ActiveItem() == "" })

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRelayUplinkFailureIsTransportError(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	uplink.failErr = errors.New("uplink gone")
	relay := New(conn, uplink, Config{})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA8")
	uplink.Close()

	err := <-done
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Run returned %v; want a *TransportError", err)
	}
	if te.Side != "uplink" {
		t.Errorf("Side = %q; want uplink", te.Side)
	}
}

func TestRelayUtteranceMark(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	relay := New(conn, uplink, Config{ChunkDuration: time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA2")
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R1", Audio: make([]byte, 16)}
	uplink.events <- &UplinkEvent{Kind: EventUtteranceDone}

	waitFor(t, "utterance mark", func() bool { return conn.markCount() == 1 })
	waitFor(t, "mark pending", func() bool { return relay.Session().PendingMarks() == 1 })

	// The peer acknowledges the mark; the queue drains.
	conn.mu.Lock()
	name := conn.marks[0]
	conn.mu.Unlock()
	conn.frames <- &stream.Frame{Event: stream.EventMark, Mark: &stream.MarkPayload{Name: name}}
	waitFor(t, "mark acknowledged", func() bool { return relay.Session().PendingMarks() == 0 })

	if relay.Session().ActiveItem() != "" {
		t.Errorf("ActiveItem = %q after done; want empty", relay.Session().ActiveItem())
	}

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRelayGreeting(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	relay := New(conn, uplink, Config{Greeting: "Say hello to the caller."})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA3")
	waitFor(t, "greeting sent", func() bool {
		uplink.mu.Lock()
		defer uplink.mu.Unlock()
		return len(uplink.greetings) == 1
	})

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRelayLocalVADBargeIn(t *testing.T) {
	conn := newFakeConn()
	uplink := newFakeUplink()
	relay := New(conn, uplink, Config{
		ChunkDuration: time.Millisecond,
		LocalVAD:      true,
		VADThreshold:  500,
	})

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	conn.frames <- startFrame("CA4")
	uplink.events <- &UplinkEvent{Kind: EventAudioDelta, ItemID: "R9", Audio: make([]byte, 16)}
	waitFor(t, "AI audio delivered", func() bool { return conn.mediaCount() > 0 })

	// μ-law 0x00 decodes to a large negative sample, so a frame of zero
	// bytes is loud; the local detector must fire on it.
	loud := make([]byte, 160)
	conn.frames <- mediaFrame(500, loud)

	waitFor(t, "local VAD truncate", func() bool { return len(uplink.truncateCalls()) == 1 })
	if tc := uplink.truncateCalls()[0]; tc.itemID != "R9" {
		t.Errorf("truncated item = %q; want R9", tc.itemID)
	}
	if !relay.Session().CallerSpeaking() {
		t.Error("CallerSpeaking = false after loud audio")
	}

	conn.frames <- &stream.Frame{Event: stream.EventStop}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
