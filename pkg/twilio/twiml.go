package twilio

import (
	"encoding/xml"
	"fmt"
)

// voiceResponse is the TwiML document root.
type voiceResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     *sayVerb      `xml:"Say,omitempty"`
	Pause   *pauseVerb    `xml:"Pause,omitempty"`
	Connect *connectVerb  `xml:"Connect,omitempty"`
}

type sayVerb struct {
	Text string `xml:",chardata"`
}

type pauseVerb struct {
	Length int `xml:"length,attr"`
}

type connectVerb struct {
	Stream streamNoun `xml:"Stream"`
}

type streamNoun struct {
	URL string `xml:"url,attr"`
}

// ConnectStreamOptions shapes the generated call-answer markup.
type ConnectStreamOptions struct {
	// Say is spoken by Twilio's own voice before the stream opens. Empty
	// skips the verb.
	Say string
	// PauseSeconds inserts a pause after Say. Zero skips the verb.
	PauseSeconds int
}

// ConnectStream renders TwiML instructing Twilio to open a bidirectional
// media stream WebSocket to wsURL. Serve this from the call webhook.
func ConnectStream(wsURL string, opts *ConnectStreamOptions) (string, error) {
	if wsURL == "" {
		return "", fmt.Errorf("twilio: empty stream URL")
	}
	doc := voiceResponse{
		Connect: &connectVerb{Stream: streamNoun{URL: wsURL}},
	}
	if opts != nil {
		if opts.Say != "" {
			doc.Say = &sayVerb{Text: opts.Say}
		}
		if opts.PauseSeconds > 0 {
			doc.Pause = &pauseVerb{Length: opts.PauseSeconds}
		}
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("twilio: render twiml: %w", err)
	}
	return xml.Header + string(body), nil
}
