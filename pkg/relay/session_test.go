package relay

import (
	"errors"
	"testing"
)

func TestMediaClockMonotonic(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")

	s.ObserveMedia(100)
	s.ObserveMedia(60) // stale, ignored
	if got := s.MediaClock(); got != 100 {
		t.Errorf("MediaClock = %d; want 100", got)
	}

	s.ObserveMedia(160)
	if got := s.MediaClock(); got != 160 {
		t.Errorf("MediaClock = %d; want 160", got)
	}

	s.Begin("MZ2")
	if got := s.MediaClock(); got != 0 {
		t.Errorf("MediaClock after restart = %d; want 0", got)
	}
}

func TestInterruptComputesElapsed(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")

	s.ObserveMedia(500)
	if !s.UtteranceStarted("item_1") {
		t.Fatal("UtteranceStarted returned false")
	}
	s.ObserveMedia(800)

	itemID, elapsed, ok := s.Interrupt()
	if !ok {
		t.Fatal("Interrupt returned ok=false with active item")
	}
	if itemID != "item_1" {
		t.Errorf("itemID = %q; want item_1", itemID)
	}
	if elapsed != 300 {
		t.Errorf("elapsed = %d; want 300", elapsed)
	}
	if s.ActiveItem() != "" {
		t.Errorf("ActiveItem = %q after interrupt; want empty", s.ActiveItem())
	}
	if !s.Interrupted() {
		t.Error("Interrupted = false after interrupt")
	}

	// A second interrupt must be a no-op: exactly one truncate per barge-in.
	if _, _, ok := s.Interrupt(); ok {
		t.Error("second Interrupt returned ok=true")
	}
}

func TestInterruptWithoutActiveItem(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")
	if _, _, ok := s.Interrupt(); ok {
		t.Error("Interrupt with no active item returned ok=true")
	}
	if s.Interrupted() {
		t.Error("Interrupted became true with no active item")
	}
}

func TestTruncatedItemDeltasDropped(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")

	s.UtteranceStarted("item_1")
	s.Interrupt()

	if s.UtteranceStarted("item_1") {
		t.Error("straggler delta for truncated item was accepted")
	}
	if !s.IsTruncated("item_1") {
		t.Error("IsTruncated(item_1) = false")
	}

	// The next utterance clears the interrupted flag and plays normally.
	if !s.UtteranceStarted("item_2") {
		t.Error("next utterance rejected")
	}
	if s.Interrupted() {
		t.Error("Interrupted still true after next utterance started")
	}
}

func TestUtteranceStartAnchorsPlayback(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")
	s.ObserveMedia(1200)

	s.UtteranceStarted("item_1")
	// Second delta of the same item must not move the anchor.
	s.ObserveMedia(1400)
	s.UtteranceStarted("item_1")

	_, elapsed, ok := s.Interrupt()
	if !ok || elapsed != 200 {
		t.Errorf("elapsed = %d (ok=%v); want 200", elapsed, ok)
	}
}

func TestMarkQueueFIFO(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")

	s.PushMark("a")
	s.PushMark("b")
	s.PushMark("c")

	if err := s.AckMark("a"); err != nil {
		t.Errorf("AckMark(a): %v", err)
	}
	if err := s.AckMark("b"); err != nil {
		t.Errorf("AckMark(b): %v", err)
	}
	if err := s.AckMark("c"); err != nil {
		t.Errorf("AckMark(c): %v", err)
	}
	if got := s.PendingMarks(); got != 0 {
		t.Errorf("PendingMarks = %d; want 0", got)
	}
}

func TestMarkQueueOutOfOrder(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")

	s.PushMark("a")
	s.PushMark("b")

	err := s.AckMark("b")
	if !errors.Is(err, ErrMarkMismatch) {
		t.Fatalf("AckMark(b) = %v; want ErrMarkMismatch", err)
	}
	// Queue must be untouched so the correct ack still drains it.
	if err := s.AckMark("a"); err != nil {
		t.Errorf("AckMark(a) after mismatch: %v", err)
	}

	s2 := NewCallSession()
	if !errors.Is(s2.AckMark("x"), ErrMarkMismatch) {
		t.Error("ack with empty queue did not return ErrMarkMismatch")
	}
}

func TestInterruptClearsMarks(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")
	s.UtteranceStarted("item_1")
	s.PushMark("a")
	s.PushMark("b")

	s.Interrupt()
	if got := s.PendingMarks(); got != 0 {
		t.Errorf("PendingMarks after interrupt = %d; want 0", got)
	}
}

func TestCallerSpeakingTransitions(t *testing.T) {
	s := NewCallSession()
	s.Begin("MZ1")

	if !s.SetCallerSpeaking(true) {
		t.Error("first transition to speaking not reported as a change")
	}
	if s.SetCallerSpeaking(true) {
		t.Error("repeated speaking state reported as a change")
	}
	if !s.SetCallerSpeaking(false) {
		t.Error("transition to silent not reported as a change")
	}
}
