package relay

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")

	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "session init with backend",
			err:  &SessionInitError{Backend: "openai", Err: cause},
			want: "relay: openai session init: connection refused",
		},
		{
			name: "session init without backend",
			err:  &SessionInitError{Err: cause},
			want: "relay: session init: connection refused",
		},
		{
			name: "transport",
			err:  &TransportError{Side: "uplink", Err: cause},
			want: "relay: uplink transport: connection refused",
		},
		{
			name: "truncate race",
			err:  &TruncateRaceError{ItemID: "item_7", Err: cause},
			want: "relay: truncate raced with completion of item item_7: connection refused",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q; want %q", got, tc.want)
			}
			if !errors.Is(tc.err, cause) {
				t.Error("errors.Is does not reach the wrapped cause")
			}
		})
	}
}

func TestTransportErrorAs(t *testing.T) {
	err := fmt.Errorf("run: %w", &TransportError{Side: "telephony", Err: errors.New("broken pipe")})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatal("errors.As failed to match *TransportError")
	}
	if te.Side != "telephony" {
		t.Errorf("Side = %q; want telephony", te.Side)
	}
}
