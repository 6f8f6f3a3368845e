package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is returned when writing before Connect or after Close.
	ErrNotConnected = errors.New("not connected")
	// ErrHandshake is returned when the server rejects the opening handshake.
	ErrHandshake = errors.New("handshake rejected")
	// ErrDialCanceled is returned when the dial context ends first.
	ErrDialCanceled = errors.New("dial canceled")
	// ErrWriteTimeout is returned when the write deadline cannot be set.
	ErrWriteTimeout = errors.New("write timeout")
	// ErrWriteFailed is returned when a frame cannot be written.
	ErrWriteFailed = errors.New("write failed")

	ErrWSNormalClosure    = errors.New("connection closed normally")
	ErrWSAbnormalClosure  = errors.New("connection closed abnormally")
	ErrWSNetworkIssue     = errors.New("network issue")
	ErrWSReadInterrupted  = errors.New("read interrupted")
	ErrWSPayloadCorrupted = errors.New("invalid/corrupted payload")
	ErrWSUnexpectedEOF    = errors.New("unexpected EOF")
	// ErrWSInternalError is the fallback for anything unclassified.
	ErrWSInternalError = errors.New("internal client error")
)

type errClass struct {
	kind  error
	match func(error) bool
}

// Checked in order; the first match wins.
var errClasses = []errClass{
	{ErrDialCanceled, isContextDone},
	{ErrHandshake, func(err error) bool { return errors.Is(err, websocket.ErrBadHandshake) }},
	{ErrWSNormalClosure, func(err error) bool { return websocket.IsCloseError(err, websocket.CloseNormalClosure) }},
	{ErrWSAbnormalClosure, func(err error) bool { return websocket.IsCloseError(err, websocket.CloseAbnormalClosure) }},
	{ErrWSReadInterrupted, isReadInterrupted},
	{ErrWSUnexpectedEOF, isUnexpectedEOF},
	{ErrWSNetworkIssue, isNetError},
	{ErrWSPayloadCorrupted, isPayloadCorrupted},
}

// classifyWSError wraps err with the kind describing it. Both the kind and
// err stay reachable through errors.Is.
func classifyWSError(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range errClasses {
		if c.match(err) {
			return fmt.Errorf("%w: %w", c.kind, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrWSInternalError, err)
}

func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isReadInterrupted(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "close sent")
}

func isUnexpectedEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func isNetError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isPayloadCorrupted(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid UTF-8") ||
		strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "unexpected opcode") ||
		strings.Contains(msg, "read limit exceeded")
}
