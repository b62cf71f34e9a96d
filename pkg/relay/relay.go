package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/voxbridge/voxbridge/pkg/audio/transcode"
	"github.com/voxbridge/voxbridge/pkg/twilio/stream"
)

// TelephonyConn is the telephony side of a relayed call. *stream.Conn
// satisfies it; tests use fakes.
type TelephonyConn interface {
	Next() (*stream.Frame, error)
	SendMedia(streamSID string, payload []byte) error
	SendMark(streamSID, name string) error
	SendClear(streamSID string) error
	Close() error
}

// Recorder persists call transcripts. Implementations must tolerate
// concurrent appends for different calls.
type Recorder interface {
	AppendTranscript(streamSID, role, text string) error
}

// Config tunes one relayed call.
type Config struct {
	// Greeting, when non-empty, is sent to the AI as soon as the media
	// stream starts so the AI speaks first.
	Greeting string
	// ChunkDuration is the paced delivery interval. Defaults to
	// transcode.DefaultChunkDuration.
	ChunkDuration time.Duration
	// VADThreshold is the local detector's linear RMS speech threshold.
	// Defaults to DefaultVADThreshold.
	VADThreshold float64
	// DebounceWindow spaces accepted speech-start transitions. Defaults to
	// DefaultDebounceWindow.
	DebounceWindow time.Duration
	// LocalVAD additionally runs the relay's own detector on caller audio,
	// triggering barge-in without waiting for the endpoint's speech event.
	LocalVAD bool
	// Recorder, when non-nil, receives both sides' transcripts.
	Recorder Recorder
	// OnCallStart, when non-nil, is invoked once the start frame arrives
	// and the stream identity is known.
	OnCallStart func(streamSID, callSID string)
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Relay wires one telephony media stream to one AI uplink and runs the
// conversation until either side ends it.
//
// Concurrency: the inbound loop owns reads from the telephony socket and
// writes to the uplink's audio input. The outbound side is split in two so
// barge-in latency stays bounded by one chunk duration: the event loop
// consumes uplink events and reacts to speech detection immediately, while
// a separate playback goroutine drains a queue of audio at real-time
// cadence. The AI generates audio faster than real time, so pacing must
// never sit between a speech-started event and the truncate it triggers.
// Barge-in can fire from either the inbound loop or the event loop, so
// CallSession.Interrupt arbitrates: it succeeds exactly once per
// utterance, and both the uplink's send side and the telephony conn's
// write side are internally serialized.
type Relay struct {
	conn     TelephonyConn
	uplink   Uplink
	sess     *CallSession
	pacer    *Pacer
	detector *Detector
	debounce *Debouncer
	config   Config
	logger   *slog.Logger
	greeted  bool
}

// New creates a relay over an accepted telephony connection and a started
// uplink.
func New(conn TelephonyConn, uplink Uplink, config Config) *Relay {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		conn:     conn,
		uplink:   uplink,
		sess:     NewCallSession(),
		pacer:    NewPacer(conn, config.ChunkDuration, logger),
		detector: NewDetector(config.VADThreshold),
		debounce: NewDebouncer(config.DebounceWindow),
		config:   config,
		logger:   logger,
	}
}

// Session exposes the shared call state, mainly for tests and diagnostics.
func (r *Relay) Session() *CallSession {
	return r.sess
}

// Run relays until the telephony stream stops, either peer fails, or ctx is
// canceled. Both connections are closed before Run returns.
func (r *Relay) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- r.inboundLoop(ctx) }()
	go func() { errCh <- r.outboundLoop(ctx) }()

	err := <-errCh
	canceled := parent.Err() != nil
	cancel()
	r.uplink.Close()
	r.conn.Close()
	<-errCh

	if canceled {
		return nil
	}
	return err
}

// inboundLoop consumes telephony frames: caller audio up to the AI, marks
// into the session, stop out of the loop.
func (r *Relay) inboundLoop(ctx context.Context) error {
	for {
		frame, err := r.conn.Next()
		if err != nil {
			var pe *stream.ProtocolError
			if errors.As(err, &pe) {
				r.logger.Warn("dropping malformed frame", "reason", pe.Reason)
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Side: "telephony", Err: err}
		}

		switch frame.Event {
		case stream.EventStart:
			r.sess.Begin(frame.Start.StreamSID)
			r.logger.Info("media stream started",
				"stream_sid", frame.Start.StreamSID, "call_sid", frame.Start.CallSID)
			if r.config.OnCallStart != nil {
				r.config.OnCallStart(frame.Start.StreamSID, frame.Start.CallSID)
			}
			if r.config.Greeting != "" && !r.greeted {
				r.greeted = true
				if err := r.uplink.Greet(r.config.Greeting); err != nil {
					r.logger.Error("greeting failed", "error", err)
				}
			}

		case stream.EventMedia:
			r.handleMedia(frame.Media)

		case stream.EventMark:
			if err := r.sess.AckMark(frame.Mark.Name); err != nil {
				r.logger.Warn("mark protocol violation", "error", err)
			}

		case stream.EventStop:
			r.logger.Info("media stream stopped", "stream_sid", r.sess.StreamSID())
			return nil

		case stream.EventError:
			code, msg := "", ""
			if frame.Error != nil {
				code, msg = frame.Error.Code, frame.Error.Message
			}
			r.logger.Error("telephony stream error", "code", code, "message", msg)

		case stream.EventConnected:
			// Handshake frame, nothing to do.

		default:
			r.logger.Warn("unrecognized frame", "event", frame.Event)
		}
	}
}

// handleMedia advances the media clock, runs local speech detection, and
// forwards the payload to the AI.
func (r *Relay) handleMedia(media *stream.MediaPayload) {
	r.sess.ObserveMedia(int64(media.Timestamp))

	if r.config.LocalVAD {
		if pcm, err := transcode.TelephonyToPCM(media.Payload); err == nil {
			r.observeCallerAudio(pcm)
		}
	}

	if err := r.uplink.SendAudio(media.Payload); err != nil {
		r.logger.Error("forwarding caller audio failed", "error", err)
	}
}

// observeCallerAudio feeds one decoded chunk to the local detector and
// fires barge-in on a debounced speech start.
func (r *Relay) observeCallerAudio(pcm []byte) {
	now := time.Now()
	if r.detector.Speech(pcm) {
		if r.debounce.Started(now) {
			r.sess.SetCallerSpeaking(true)
			r.interrupt("local_vad")
		}
	} else if r.debounce.Stopped(now) {
		r.sess.SetCallerSpeaking(false)
	}
}

// outboundLoop runs the uplink event loop alongside the playback
// goroutine, joining the latter before returning.
func (r *Relay) outboundLoop(ctx context.Context) error {
	queue := newPlayQueue()
	playDone := make(chan error, 1)
	go func() { playDone <- r.playbackLoop(ctx, queue) }()

	err := r.consumeUplink(ctx, queue)
	queue.close()
	playErr := <-playDone
	if err != nil {
		return err
	}
	return playErr
}

// consumeUplink reacts to every uplink event as it arrives: speech events
// into barge-in, transcripts into the recorder, audio and utterance
// boundaries onto the playback queue. It must never block on playback;
// generated audio backs up in the queue, not here.
func (r *Relay) consumeUplink(ctx context.Context, queue *playQueue) error {
	for event, err := range r.uplink.Events(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Side: "uplink", Err: err}
		}

		switch event.Kind {
		case EventAudioDelta:
			if r.sess.IsTruncated(event.ItemID) {
				r.logger.Debug("dropping straggler delta", "item_id", event.ItemID)
				continue
			}
			// Anchor the utterance on arrival, not on playback, so a
			// barge-in can truncate it before its first chunk goes out.
			if !r.sess.UtteranceStarted(event.ItemID) {
				continue
			}
			queue.push(event)

		case EventUtteranceDone:
			queue.push(event)

		case EventSpeechStarted:
			// A repeat with no intervening speech-stop is not a
			// transition and must not re-truncate.
			if r.sess.SetCallerSpeaking(true) {
				r.interrupt("endpoint_vad")
			}

		case EventSpeechStopped:
			r.sess.SetCallerSpeaking(false)

		case EventAssistantTranscript:
			r.logger.Info("assistant said", "text", event.Text)
			r.record("assistant", event.Text)

		case EventCallerTranscript:
			r.logger.Info("caller said", "text", event.Text)
			r.record("caller", event.Text)
		}
	}
	return nil
}

// playbackLoop drains queued audio at real-time cadence. Deltas whose item
// was truncated while they waited are dropped; an utterance boundary emits
// the synchronization mark only for the item still active.
func (r *Relay) playbackLoop(ctx context.Context, queue *playQueue) error {
	for {
		event, ok := queue.pop(ctx)
		if !ok {
			return nil
		}

		switch event.Kind {
		case EventAudioDelta:
			if r.sess.IsTruncated(event.ItemID) {
				r.logger.Debug("dropping truncated delta", "item_id", event.ItemID)
				continue
			}
			if err := r.pacer.Play(ctx, r.sess, event.ItemID, event.Audio); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return &TransportError{Side: "telephony", Err: err}
			}

		case EventUtteranceDone:
			active := r.sess.ActiveItem()
			if active == "" || (event.ItemID != "" && event.ItemID != active) {
				continue
			}
			if err := r.pacer.EndUtterance(r.sess); err != nil {
				r.logger.Error("sending utterance mark failed", "error", err)
			}
			r.sess.UtteranceDone()
		}
	}
}

// interrupt drives barge-in: exactly one truncate and one clear per active
// utterance, regardless of which detector fired first.
func (r *Relay) interrupt(source string) {
	itemID, elapsedMs, ok := r.sess.Interrupt()
	if !ok {
		return
	}
	r.logger.Info("barge-in",
		"source", source, "item_id", itemID, "elapsed_ms", elapsedMs)
	if err := r.uplink.Truncate(itemID, elapsedMs); err != nil {
		// A rejected truncate means the item finished on the AI side
		// first; the clear below still flushes the unheard remainder.
		r.logger.Warn("truncate rejected",
			"error", &TruncateRaceError{ItemID: itemID, Err: err})
	}
	if err := r.conn.SendClear(r.sess.StreamSID()); err != nil {
		r.logger.Error("clear failed", "error", err)
	}
}

func (r *Relay) record(role, text string) {
	if r.config.Recorder == nil {
		return
	}
	if err := r.config.Recorder.AppendTranscript(r.sess.StreamSID(), role, text); err != nil {
		r.logger.Error("recording transcript failed", "role", role, "error", err)
	}
}

// playQueue hands playback work from the event loop to the playback
// goroutine. Unbounded: the AI generates audio faster than real time, and a
// bounded queue would stall the event loop behind pacing, reintroducing the
// barge-in latency the split exists to remove. Single producer, single
// consumer.
type playQueue struct {
	mu     sync.Mutex
	items  []*UplinkEvent
	ready  chan struct{}
	closed bool
}

func newPlayQueue() *playQueue {
	return &playQueue{ready: make(chan struct{}, 1)}
}

func (q *playQueue) push(event *UplinkEvent) {
	q.mu.Lock()
	q.items = append(q.items, event)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *playQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop blocks until an event is available, the queue closes empty, or ctx is
// canceled.
func (q *playQueue) pop(ctx context.Context) (*UplinkEvent, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			event := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return event, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-q.ready:
		}
	}
}
