package openairt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultURL is the production realtime WebSocket endpoint.
const DefaultURL = "wss://api.openai.com/v1/realtime"

// DefaultModel is used when ConnectConfig does not name one.
const DefaultModel = "gpt-4o-realtime-preview"

// Client dials realtime sessions against one API credential.
type Client struct {
	apiKey           string
	url              string
	handshakeTimeout time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithURL overrides the WebSocket endpoint. Useful for tests and proxies.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithHandshakeTimeout bounds the WebSocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) { c.handshakeTimeout = d }
}

// NewClient creates a realtime API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:           apiKey,
		url:              DefaultURL,
		handshakeTimeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConnectConfig selects the model for a new session.
type ConnectConfig struct {
	Model string
}

// Connect opens a realtime session over WebSocket and starts its reader.
func (c *Client) Connect(ctx context.Context, config *ConnectConfig) (*Session, error) {
	model := DefaultModel
	if config != nil && config.Model != "" {
		model = config.Model
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url+"?model="+model, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    err.Error(),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("openairt: connect: %w", err)
	}

	s := &Session{
		conn:     conn,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}
	go s.readLoop()
	return s, nil
}
