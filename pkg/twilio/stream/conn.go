// Package stream implements the telephony media stream protocol: JSON frames
// over a WebSocket carrying base64 companded audio, playback marks, and
// buffer control.
package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single outbound frame write.
const DefaultWriteTimeout = 10 * time.Second

// Conn wraps a telephony media stream WebSocket. Reads happen from a single
// goroutine via Next; writes are serialized internally so the paced audio
// sender and the interrupt path can both use it.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

// NewConn wraps an accepted WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, writeTimeout: DefaultWriteTimeout}
}

// Next reads and parses the next inbound frame. A *ProtocolError means the
// frame was malformed but the connection is still usable; any other error is
// terminal.
func (c *Conn) Next() (*Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("stream: read: %w", err)
	}
	return ParseFrame(data)
}

// SendFrame writes one outbound frame.
func (c *Conn) SendFrame(f *Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("stream: set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(f); err != nil {
		return fmt.Errorf("stream: write %s frame: %w", f.Event, err)
	}
	return nil
}

// SendMedia sends one chunk of companded audio to the telephony peer.
func (c *Conn) SendMedia(streamSID string, payload []byte) error {
	return c.SendFrame(NewMediaFrame(streamSID, payload))
}

// SendMark sends a playback synchronization marker.
func (c *Conn) SendMark(streamSID, name string) error {
	return c.SendFrame(NewMarkFrame(streamSID, name))
}

// SendClear tells the telephony peer to drop its buffered playback audio.
func (c *Conn) SendClear(streamSID string) error {
	return c.SendFrame(NewClearFrame(streamSID))
}

// Close closes the underlying WebSocket. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
