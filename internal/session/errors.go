package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send when no live transport exists.
var ErrNotConnected = errors.New("not connected")

// ErrDuplicateMessage is returned by Send when an identical message was
// sent within the duplicate suppression window.
var ErrDuplicateMessage = errors.New("duplicate message suppressed")

// SerializationError wraps a failure to encode an outbound message. A
// developer-facing error; it never changes connection state.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("message serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// TransportError classifies a transport-level failure. Benign errors are
// routine network teardown; real errors are surfaced and trigger the
// reconnect policy.
type TransportError struct {
	Benign bool
	Err    error
}

func (e *TransportError) Error() string {
	kind := "transport error"
	if e.Benign {
		kind = "benign disconnect"
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// classifyTransport wraps a read/write failure as benign or real.
func classifyTransport(err error) *TransportError {
	return &TransportError{Benign: isBenignClose(err), Err: err}
}

// isBenignClose recognizes routine connection teardown: normal close codes
// and the socket-closed errors produced by our own Disconnect.
func isBenignClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
