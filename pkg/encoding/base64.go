// Package encoding provides JSON-serializable encoding types for media
// payloads carried inside text protocol frames.
package encoding

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// StdBase64Data is a byte slice that serializes to/from standard base64 in JSON.
// Telephony media frames and AI audio events both carry audio this way.
type StdBase64Data []byte

// MarshalJSON implements json.Marshaler.
func (b StdBase64Data) MarshalJSON() ([]byte, error) {
	return []byte(`"` + base64.StdEncoding.EncodeToString(b) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *StdBase64Data) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("unmarshal json base64 data: empty data")
	}
	switch data[0] {
	case 'n': // null
		return nil
	case '"':
		if len(data) < 2 || data[len(data)-1] != '"' {
			return errors.New("unmarshal json base64 data: invalid string")
		}
		decoded, err := base64.StdEncoding.DecodeString(string(data[1 : len(data)-1]))
		if err != nil {
			return err
		}
		*b = decoded
		return nil
	default:
		return fmt.Errorf("invalid base64 data: %s", string(data))
	}
}

// String returns the base64-encoded string representation.
func (b StdBase64Data) String() string {
	return base64.StdEncoding.EncodeToString(b)
}
