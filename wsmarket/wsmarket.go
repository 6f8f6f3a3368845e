package wsmarket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanTurko/bitfinex-ws-go/config"
	"github.com/IvanTurko/bitfinex-ws-go/internal/deferq"
	"github.com/IvanTurko/bitfinex-ws-go/internal/expect"
	counter "github.com/IvanTurko/bitfinex-ws-go/internal/sync"
	"github.com/IvanTurko/bitfinex-ws-go/internal/wsutil"
	"github.com/IvanTurko/bitfinex-ws-go/sdkerr"
	"github.com/IvanTurko/bitfinex-ws-go/ws"
)

const subsys = "wsmarket"

// ErrStopped is returned by Connect once the event loop has exited.
var ErrStopped = errors.New("client stopped")

// State is the connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StatePaused
	StateActive
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StatePaused:
		return "paused"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Pending is the outcome of a conversation with the server. It settles when
// the matching reply arrives and never times out on its own; bound the wait
// with the context passed to Await.
type Pending = wsutil.Promise[Event]

// Options configures WSMarket.
type Options = func(*WSMarket)

// WSMarket is a client for a public market data websocket feed.
//
// Every inbound frame and every command is processed one at a time on a
// single event loop started by Connect. Exported methods only schedule work
// on that loop and never wait for the server, so they are safe to call from
// any goroutine, including from subscription callbacks.
type WSMarket struct {
	cfg     config.Config
	factory func(url string, h ws.Handler) ws.Client
	logger  ws.Logger

	now          func() time.Time
	onDisconnect func(err error)
	onLatency    func(latency time.Duration)
	onInvalid    func(err error)

	mbox      *wsutil.Mailbox
	startOnce sync.Once
	loopDone  chan struct{}
	ctx       context.Context

	// owned by the event loop
	epoch    *epoch
	epochSeq uint64
	client   ws.Client
	gen      uint64
	paused   bool
	deferred *deferq.Queue[pendingSend]
	cids     counter.Sequence

	state       atomic.Int32
	pausedState atomic.Bool
}

// NewWSMarket creates a WSMarket that dials cfg.URL with the default
// websocket client. Unset fields of cfg take their defaults.
//
// Panics if cfg is invalid.
func NewWSMarket(cfg config.Config, opts ...Options) *WSMarket {
	var w *WSMarket
	factory := func(url string, h ws.Handler) ws.Client {
		return ws.NewClient(url, h,
			ws.WithLogger(w.logger),
			ws.WithWriteTimeout(w.cfg.WriteTimeout),
			ws.WithHandshakeTimeout(w.cfg.HandshakeTimeout),
		)
	}
	w = NewWSMarketWithFactory(cfg, factory, opts...)
	return w
}

// NewWSMarketWithFactory is like NewWSMarket but builds every transport
// with factory. Useful for tests and custom connection setups.
//
// Panics if cfg is invalid or factory is nil.
func NewWSMarketWithFactory(cfg config.Config, factory func(url string, h ws.Handler) ws.Client, opts ...Options) *WSMarket {
	if factory == nil {
		panic("NewWSMarketWithFactory: factory must not be nil")
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		panic("NewWSMarketWithFactory: " + err.Error())
	}

	w := &WSMarket{
		cfg:     cfg,
		factory: factory,
		now:     time.Now,

		mbox:     wsutil.NewMailbox(),
		loopDone: make(chan struct{}),
		ctx:      context.Background(),

		paused:   true,
		deferred: deferq.New[pendingSend](),
		cids:     counter.NewSequence(),
	}
	w.pausedState.Store(true)
	w.setState(StateDisconnected)
	w.deferred.Reset()
	w.newEpoch()

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WithLogger sets the logger used by the client and its transports.
func WithLogger(l ws.Logger) Options {
	return func(w *WSMarket) {
		w.logger = l
	}
}

// WithOnDisconnect registers a callback for unexpected disconnections.
// The client does not reconnect on its own.
func WithOnDisconnect(f func(err error)) Options {
	return func(w *WSMarket) {
		w.onDisconnect = f
	}
}

// WithPingLatencyHandler registers a callback receiving ping/pong round
// trip times.
func WithPingLatencyHandler(f func(time.Duration)) Options {
	return func(w *WSMarket) {
		w.onLatency = f
	}
}

// WithOnInvalid registers a callback for channel payloads that the typed
// subscriptions (ticker, trades, book) could not decode.
func WithOnInvalid(f func(error)) Options {
	return func(w *WSMarket) {
		w.onInvalid = f
	}
}

// Connect starts the event loop on first use and opens a transport.
// The loop, and every transport it opens, lives until ctx is done.
// Calling Connect while a transport exists does nothing.
func (w *WSMarket) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return w.errFactory("Connect", sdkerr.ErrWSConnection, err)
	}

	w.startOnce.Do(func() {
		w.ctx = ctx
		go func() {
			defer close(w.loopDone)
			w.mbox.Run(ctx)
		}()
	})

	select {
	case <-w.loopDone:
		return w.errFactory("Connect", sdkerr.ErrWSConnection, ErrStopped)
	default:
	}

	w.mbox.Post(func() {
		if w.client != nil {
			w.debugf("connect ignored: transport already exists")
			return
		}
		w.connect()
	})
	return nil
}

// Close requests transport shutdown. Paused state and queued sends are
// kept for a later Connect; subscriptions and pending conversations of the
// closed connection are abandoned and their Pending values never settle.
func (w *WSMarket) Close() {
	w.mbox.Post(w.close)
}

// Restart closes the transport and connects a fresh one. Subscriptions and
// pending conversations of the old connection are abandoned: their Pending
// values never settle.
func (w *WSMarket) Restart() {
	w.mbox.Post(w.restart)
}

// Pause holds every following send until Resume.
func (w *WSMarket) Pause() {
	w.mbox.Post(w.pause)
}

// Resume releases held sends in the order they were made.
func (w *WSMarket) Resume() {
	w.mbox.Post(w.resume)
}

// Send transmits payload, or queues it while the connection is paused or
// not open. Strings and byte slices are sent as is; anything else is
// encoded as JSON.
func (w *WSMarket) Send(payload any) {
	w.mbox.Post(func() {
		w.send(payload)
	})
}

// State returns the current connection state.
func (w *WSMarket) State() State {
	return State(w.state.Load())
}

// Paused reports whether sends are currently being held.
func (w *WSMarket) Paused() bool {
	return w.pausedState.Load()
}

func (w *WSMarket) setState(s State) {
	w.state.Store(int32(s))
}

func (w *WSMarket) errFactory(op string, kind error, cause error) *sdkerr.SDKError {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp(fmt.Sprintf("WSMarket.%s", op)).
		WithKind(kind).
		WithCause(cause)
}

// sessionErr is errFactory tagged with the current epoch's session id.
// Event loop only.
func (w *WSMarket) sessionErr(op string, kind error, cause error) *sdkerr.SDKError {
	return w.errFactory(op, kind, cause).WithSession(w.epoch.session)
}

func (w *WSMarket) debugf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Debugf(format, args...)
	}
}

func (w *WSMarket) errorf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Errorf(format, args...)
	}
}

// epoch is the lifetime of one transport and its registry. It ends when
// the transport is closed, fails, or is replaced by Restart.
type epoch struct {
	id       uint64
	session  string
	registry *expect.Registry[Message]
	subs     map[int64]*subscription
}
