package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Client is the interface for a websocket client.
type Client interface {
	// Connect dials the server. On success it calls Handler.OnOpen and then
	// starts a reader that delivers every frame to Handler.OnMessage until
	// the connection ends, at which point Handler.OnClose is called once.
	Connect(context.Context) error
	WriteMessage([]byte) error
	// Ready reports whether the connection is open and accepts writes.
	Ready() bool
	Close() error
}

// Handler receives connection events. Calls are made from the client's
// own goroutines.
type Handler interface {
	OnOpen()
	OnMessage(data []byte)
	OnClose(err error)
}

// Conn is an interface for a websocket connection.
type Conn interface {
	Close() error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// Option is a function type for client options.
type Option func(*clientImp)

// Logger is an interface for logging.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type clientImp struct {
	conn    Conn
	handler Handler
	logger  Logger
	dial    func(ctx context.Context, url string) (Conn, error)

	url              string
	mu               sync.Mutex
	closed           bool
	ready            atomic.Bool
	userWriteTimeout time.Duration
	handshakeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a new websocket client for the given URL that reports
// events to h.
//
// By default:
//   - The write timeout is 300 milliseconds.
//   - The handshake timeout is 10 seconds.
//
// Panics if the URL is empty or h is nil.
func NewClient(url string, h Handler, opts ...Option) Client {
	if url == "" {
		panic("url must not be empty")
	}
	if h == nil {
		panic("handler must not be nil")
	}

	c := &clientImp{
		url:              url,
		handler:          h,
		userWriteTimeout: 300 * time.Millisecond,
		handshakeTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dial == nil {
		c.dial = c.dialGorilla
	}
	return c
}

// WithLogger sets the logger for the client.
func WithLogger(l Logger) Option {
	return func(c *clientImp) {
		c.logger = l
	}
}

// WithWriteTimeout sets the write timeout for the client.
// The default is 300 milliseconds.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *clientImp) {
		if d > 0 {
			c.userWriteTimeout = d
		}
	}
}

// WithHandshakeTimeout bounds the opening handshake.
// The default is 10 seconds.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *clientImp) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}
