// Package twilio covers the slice of the Twilio REST API the relay needs:
// placing outbound calls and generating the TwiML that points a call's
// media stream at the relay.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the production REST endpoint.
const DefaultBaseURL = "https://api.twilio.com"

// APIError is a non-2xx REST response.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: http %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Client issues REST requests for one account.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the REST endpoint. Useful for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a REST client authenticated with the account SID and
// auth token.
func NewClient(accountSID, authToken string, opts ...Option) *Client {
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallRequest describes an outbound call to place.
type CallRequest struct {
	// To is the destination number in E.164 form.
	To string
	// From is the caller ID, a number owned by the account.
	From string
	// WebhookURL is fetched by Twilio when the call connects; it must
	// return TwiML, typically ConnectStream markup pointing at the relay.
	WebhookURL string
}

// Call is the REST representation of a placed call.
type Call struct {
	SID       string `json:"sid"`
	Status    string `json:"status"`
	To        string `json:"to"`
	From      string `json:"from"`
	Direction string `json:"direction"`
}

// PlaceCall creates an outbound call.
func (c *Client) PlaceCall(ctx context.Context, req *CallRequest) (*Call, error) {
	if req.To == "" || req.From == "" {
		return nil, fmt.Errorf("twilio: call request missing To or From")
	}
	if req.WebhookURL == "" {
		return nil, fmt.Errorf("twilio: call request missing webhook URL")
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Url", req.WebhookURL)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("twilio: build request: %w", err)
	}
	httpReq.SetBasicAuth(c.accountSID, c.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("twilio: place call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("twilio: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}

	var call Call
	if err := json.Unmarshal(body, &call); err != nil {
		return nil, fmt.Errorf("twilio: decode call: %w", err)
	}
	return &call, nil
}
