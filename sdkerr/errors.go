// Package sdkerr holds the error kinds reported by the client and the
// SDKError type carrying them.
package sdkerr

import (
	"errors"
	"strconv"
	"strings"
)

// general
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrDecodeError   = errors.New("decode error")
)

// ws
var (
	ErrWSConnection = errors.New("websocket connection error")
	ErrWSWrite      = errors.New("websocket write failed")
	ErrWSRead       = errors.New("websocket read failed")
	ErrWSClose      = errors.New("websocket close failed")

	// ErrWSServerError is an error event sent by the server; Code holds its code.
	ErrWSServerError = errors.New("websocket server error")

	// ErrVersionMismatch is a server speaking a protocol version not in the allow-list.
	ErrVersionMismatch = errors.New("protocol version mismatch")
)

// SDKError is built with NewSDKError and the With* setters. errors.Is and
// errors.As look at both the kind and the cause.
type SDKError struct {
	subsys  string
	op      string
	session string
	kind    error
	code    int
	message string
	cause   error
}

func NewSDKError() *SDKError {
	return &SDKError{}
}

func (e *SDKError) Error() string {
	var b strings.Builder
	field := func(name, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
	}

	field("subsys", e.subsys)
	field("op", e.op)
	field("session", e.session)
	if e.kind != nil {
		field("kind", e.kind.Error())
	}
	if e.code != 0 {
		field("code", strconv.Itoa(e.code))
	}
	field("msg", e.message)
	if e.cause != nil {
		field("cause", e.cause.Error())
	}
	return b.String()
}

func (e *SDKError) Is(target error) bool {
	return e.kind != nil && errors.Is(e.kind, target) ||
		e.cause != nil && errors.Is(e.cause, target)
}

func (e *SDKError) As(target any) bool {
	return e.kind != nil && errors.As(e.kind, target) ||
		e.cause != nil && errors.As(e.cause, target)
}

func (e *SDKError) Unwrap() error { return e.cause }

func (e *SDKError) Kind() error     { return e.kind }
func (e *SDKError) Message() string { return e.message }
func (e *SDKError) Cause() error    { return e.cause }
func (e *SDKError) Op() string      { return e.op }
func (e *SDKError) Subsys() string  { return e.subsys }

// Session is the connection session the error happened in, if any.
func (e *SDKError) Session() string { return e.session }

// Code is the server error code, 0 when there is none.
func (e *SDKError) Code() int { return e.code }

func (e *SDKError) WithKind(kind error) *SDKError {
	e.kind = kind
	return e
}

func (e *SDKError) WithMessage(msg string) *SDKError {
	e.message = msg
	return e
}

func (e *SDKError) WithCause(err error) *SDKError {
	e.cause = err
	return e
}

func (e *SDKError) WithOp(op string) *SDKError {
	e.op = op
	return e
}

func (e *SDKError) WithSubsys(subsys string) *SDKError {
	e.subsys = subsys
	return e
}

func (e *SDKError) WithSession(id string) *SDKError {
	e.session = id
	return e
}

func (e *SDKError) WithCode(code int) *SDKError {
	e.code = code
	return e
}
