package relay

import "fmt"

// SessionInitError reports a failure to establish or configure the AI
// session before any audio flowed. Fatal for the call; the telephony
// connection is released without relaying.
type SessionInitError struct {
	Backend string
	Err     error
}

func (e *SessionInitError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("relay: %s session init: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("relay: session init: %v", e.Err)
}

func (e *SessionInitError) Unwrap() error { return e.Err }

// TransportError reports a terminal failure of one side of an established
// relay. Side is "telephony" or "uplink". Both sides are torn down when
// either fails.
type TransportError struct {
	Side string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("relay: %s transport: %v", e.Side, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TruncateRaceError reports a truncate request that lost the race with its
// utterance completing on the AI side. Logged and ignored; the clear frame
// still empties the telephony buffer.
type TruncateRaceError struct {
	ItemID string
	Err    error
}

func (e *TruncateRaceError) Error() string {
	return fmt.Sprintf("relay: truncate raced with completion of item %s: %v", e.ItemID, e.Err)
}

func (e *TruncateRaceError) Unwrap() error { return e.Err }
