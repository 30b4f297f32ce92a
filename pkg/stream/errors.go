package stream

import (
	"errors"
	"fmt"
)

// ErrStreamUnavailable means the response stream could not be opened: the
// request failed, the status was not successful, or there was no body. The
// turn fails and is not retried.
var ErrStreamUnavailable = errors.New("stream unavailable")

// TransportError is a read failure after streaming began. The turn fails,
// and whatever assistant text already arrived stays in the conversation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedFrameError describes a data line whose payload did not parse.
// It never fails a turn; it is logged when the fragment is given up on.
type MalformedFrameError struct {
	Fragment string
	Reason   string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame (%s): %q", e.Reason, e.Fragment)
}
