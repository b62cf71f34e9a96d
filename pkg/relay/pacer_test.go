package relay

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeSender records outbound media and marks.
type fakeSender struct {
	mu     sync.Mutex
	media  [][]byte
	marks  []string
	onSend func(n int) // called with the send count, before recording
}

func (f *fakeSender) SendMedia(streamSID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onSend != nil {
		f.onSend(len(f.media))
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	f.media = append(f.media, buf)
	return nil
}

func (f *fakeSender) SendMark(streamSID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, name)
	return nil
}

func (f *fakeSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.media)
}

func TestPacerPlayChunks(t *testing.T) {
	sender := &fakeSender{}
	pacer := NewPacer(sender, 5*time.Millisecond, nil)
	sess := NewCallSession()
	sess.Begin("MZ1")

	// 5ms at 8kHz μ-law is 40 bytes; 100 bytes makes chunks of 40, 40, 20.
	payload := make([]byte, 100)
	if err := pacer.Play(context.Background(), sess, "item_1", payload); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if got := sender.sent(); got != 3 {
		t.Fatalf("sent %d chunks; want 3", got)
	}
	if len(sender.media[0]) != 40 || len(sender.media[2]) != 20 {
		t.Errorf("chunk sizes = %d, %d, %d; want 40, 40, 20",
			len(sender.media[0]), len(sender.media[1]), len(sender.media[2]))
	}
}

func TestPacerAbortsOnInterrupt(t *testing.T) {
	sess := NewCallSession()
	sess.Begin("MZ1")
	sess.UtteranceStarted("item_1")

	sender := &fakeSender{}
	sender.onSend = func(n int) {
		if n == 1 { // interrupt after the second chunk goes out
			sess.Interrupt()
		}
	}
	pacer := NewPacer(sender, time.Millisecond, nil)

	payload := make([]byte, 80) // ten 8-byte chunks at 1ms
	if err := pacer.Play(context.Background(), sess, "item_1", payload); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := sender.sent(); got != 2 {
		t.Errorf("sent %d chunks; want 2 (remainder dropped)", got)
	}
}

func TestPacerAbortsWhenItemTruncated(t *testing.T) {
	sess := NewCallSession()
	sess.Begin("MZ1")
	sess.UtteranceStarted("item_1")

	sender := &fakeSender{}
	sender.onSend = func(n int) {
		if n == 1 {
			// The next utterance arrives right after the interrupt,
			// clearing the interrupted flag while item_1 still plays.
			sess.Interrupt()
			sess.UtteranceStarted("item_2")
		}
	}
	pacer := NewPacer(sender, time.Millisecond, nil)

	payload := make([]byte, 80)
	if err := pacer.Play(context.Background(), sess, "item_1", payload); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := sender.sent(); got != 2 {
		t.Errorf("sent %d chunks of a truncated item; want 2", got)
	}
}

func TestPacerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{}
	pacer := NewPacer(sender, time.Millisecond, nil)
	sess := NewCallSession()
	sess.Begin("MZ1")

	if err := pacer.Play(ctx, sess, "item_1", make([]byte, 80)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := sender.sent(); got != 1 {
		t.Errorf("sent %d chunks; want 1 (canceled after first)", got)
	}
}

func TestPacerEndUtterance(t *testing.T) {
	sender := &fakeSender{}
	pacer := NewPacer(sender, time.Millisecond, nil)
	sess := NewCallSession()
	sess.Begin("MZ1")

	if err := pacer.EndUtterance(sess); err != nil {
		t.Fatalf("EndUtterance: %v", err)
	}
	if len(sender.marks) != 1 || !strings.HasPrefix(sender.marks[0], "utt-") {
		t.Fatalf("marks = %v; want one utt- mark", sender.marks)
	}
	if sess.PendingMarks() != 1 {
		t.Errorf("PendingMarks = %d; want 1", sess.PendingMarks())
	}
	if err := sess.AckMark(sender.marks[0]); err != nil {
		t.Errorf("AckMark: %v", err)
	}
}
