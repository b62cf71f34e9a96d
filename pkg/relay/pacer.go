package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxbridge/voxbridge/pkg/audio/transcode"
)

// MediaSender is the outbound half of the telephony connection the pacer
// needs.
type MediaSender interface {
	SendMedia(streamSID string, payload []byte) error
	SendMark(streamSID, name string) error
}

// Pacer delivers AI audio to the telephony peer at real-time cadence. The
// telephony side buffers whatever it is sent, so flooding it would both
// widen barge-in latency (cleared audio the caller never hears still counts
// against the buffer) and desynchronize elapsed-time accounting.
type Pacer struct {
	sender        MediaSender
	chunkDuration time.Duration
	logger        *slog.Logger
}

// NewPacer creates a pacer. A non-positive chunk duration selects
// transcode.DefaultChunkDuration.
func NewPacer(sender MediaSender, chunkDuration time.Duration, logger *slog.Logger) *Pacer {
	if chunkDuration <= 0 {
		chunkDuration = transcode.DefaultChunkDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pacer{sender: sender, chunkDuration: chunkDuration, logger: logger}
}

// Play sends one μ-law payload in paced chunks, sleeping a chunk duration
// between sends. Delivery aborts without error when the session is
// interrupted, the item is truncated, or the context is canceled; the
// remainder of the utterance is dropped. The truncation check is per item:
// an interrupt can be superseded by the next utterance arriving while this
// one is still mid-playback, so the interrupted flag alone is not enough.
func (p *Pacer) Play(ctx context.Context, sess *CallSession, itemID string, payload []byte) error {
	chunks := transcode.Chunk(payload, p.chunkDuration, transcode.TelephonyRate, 1)
	for i, chunk := range chunks {
		if sess.Interrupted() || sess.IsTruncated(itemID) {
			p.logger.Debug("playback aborted by interrupt",
				"stream_sid", sess.StreamSID(), "item_id", itemID,
				"dropped_chunks", len(chunks)-i)
			return nil
		}
		if err := p.sender.SendMedia(sess.StreamSID(), chunk); err != nil {
			return fmt.Errorf("send media: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.chunkDuration):
		}
	}
	return nil
}

// EndUtterance sends a synchronization mark after an utterance and records
// it as pending until the telephony peer acknowledges it.
func (p *Pacer) EndUtterance(sess *CallSession) error {
	name := "utt-" + uuid.NewString()[:8]
	if err := p.sender.SendMark(sess.StreamSID(), name); err != nil {
		return fmt.Errorf("send mark: %w", err)
	}
	sess.PushMark(name)
	return nil
}
