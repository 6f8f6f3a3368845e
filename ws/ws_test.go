package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFake error = errors.New("fake error")

func Test_NewClient(t *testing.T) {
	t.Run("empty url", func(t *testing.T) {
		defer func() {
			r := recover()
			assert.Contains(t, r, "url must not be empty")
		}()
		NewClient("", newRecordingHandler())
	})
	t.Run("nil handler", func(t *testing.T) {
		defer func() {
			r := recover()
			assert.Contains(t, r, "handler must not be nil")
		}()
		NewClient("ws://localhost", nil)
	})
}

func Test_Close(t *testing.T) {
	t.Run("normal flow", func(t *testing.T) {
		t.Parallel()
		c := newFakeClient()
		_ = c.Close()
		assert.True(t, c.conn.(*fakeConn).isClosed(), "conn must be closed")
		assert.False(t, c.Ready())
	})
	t.Run("before connect is a no-op", func(t *testing.T) {
		t.Parallel()
		c := newFakeClient(withConn(nil))
		assert.NoError(t, c.Close())
	})
	t.Run("close during dial drops the new conn", func(t *testing.T) {
		t.Parallel()
		conn := newFakeConn()
		h := newRecordingHandler()
		c := newFakeClient(withConn(nil), withHandler(h))
		c.dial = func(context.Context, string) (Conn, error) {
			_ = c.Close()
			return conn, nil
		}

		err := c.Connect(context.Background())
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.True(t, conn.isClosed())
		assert.False(t, c.Ready())
		assert.Equal(t, 0, h.openCount())
	})
}

func Test_Connect(t *testing.T) {
	t.Run("opens and reads", func(t *testing.T) {
		conn := newFakeConn()
		h := newRecordingHandler()
		c := newFakeClient(withConn(nil), withHandler(h))
		c.dial = func(context.Context, string) (Conn, error) { return conn, nil }

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, c.Connect(ctx))
		assert.True(t, c.Ready())
		assert.Equal(t, 1, h.openCount())

		conn.readCh <- readResp{msgType: websocket.TextMessage, data: []byte("hello")}

		select {
		case msg := <-h.msgCh:
			assert.Equal(t, []byte("hello"), msg)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("dial error", func(t *testing.T) {
		h := newRecordingHandler()
		c := newFakeClient(withConn(nil), withHandler(h))
		c.dial = func(context.Context, string) (Conn, error) {
			return nil, &net.OpError{Op: "dial", Err: errFake}
		}

		err := c.Connect(context.Background())
		assert.ErrorIs(t, err, ErrWSNetworkIssue)
		assert.False(t, c.Ready())
		assert.Equal(t, 0, h.openCount())
	})

	t.Run("context cancel closes conn", func(t *testing.T) {
		conn := newFakeConn()
		h := newRecordingHandler()
		c := newFakeClient(withConn(nil), withHandler(h))
		c.dial = func(context.Context, string) (Conn, error) { return conn, nil }

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, c.Connect(ctx))
		cancel()

		select {
		case err := <-h.closeCh:
			assert.Error(t, err)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for close")
		}
		assert.True(t, conn.isClosed())
		assert.False(t, c.Ready())
	})
}

func Test_startReader(t *testing.T) {
	t.Run("read error", func(t *testing.T) {
		t.Parallel()

		h := newRecordingHandler()
		client := newFakeClient(withHandler(h))
		conn := client.conn.(*fakeConn)
		client.ready.Store(true)

		conn.readCh <- readResp{
			msgType: websocket.TextMessage,
			data:    []byte("bad"),
			err:     errFake,
		}

		go client.startReader(context.Background(), func() bool { return true })

		select {
		case err := <-h.closeCh:
			assert.ErrorIs(t, err, ErrWSInternalError)
			assert.ErrorContains(t, err, errFake.Error())
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for error")
		}
		assert.False(t, client.Ready())
		assert.True(t, conn.isClosed())
	})

	t.Run("normal close from server", func(t *testing.T) {
		t.Parallel()

		h := newRecordingHandler()
		client := newFakeClient(withHandler(h))
		conn := client.conn.(*fakeConn)

		conn.readCh <- readResp{
			msgType: websocket.TextMessage,
			err: &websocket.CloseError{
				Code: websocket.CloseNormalClosure,
				Text: "normal close",
			},
		}

		go client.startReader(context.Background(), func() bool { return true })

		select {
		case err := <-h.closeCh:
			assert.ErrorIs(t, err, ErrWSNormalClosure)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for close")
		}
	})

	t.Run("context cancel", func(t *testing.T) {
		t.Parallel()

		h := newRecordingHandler()
		client := newFakeClient(withHandler(h))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		go client.startReader(ctx, func() bool { return true })

		select {
		case <-h.msgCh:
			t.Fatal("should not receive message after context cancel")
		case err := <-h.closeCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for close")
		}
	})
}

func Test_WriteMessage(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		c := newFakeClient(withConn(nil))
		assert.ErrorIs(t, c.WriteMessage([]byte("x")), ErrNotConnected)
	})
	t.Run("after close", func(t *testing.T) {
		c := newFakeClient()
		c.ready.Store(true)
		_ = c.Close()
		assert.ErrorIs(t, c.WriteMessage([]byte("x")), ErrNotConnected)
	})
	t.Run("writes text frame", func(t *testing.T) {
		c := newFakeClient()
		c.ready.Store(true)
		require.NoError(t, c.WriteMessage([]byte(`{"event":"ping"}`)))

		req := <-c.conn.(*fakeConn).writeCh
		assert.Equal(t, websocket.TextMessage, req.msgType)
		assert.Equal(t, []byte(`{"event":"ping"}`), req.data)
	})
}

func Test_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"info","version":2}`))
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.WriteMessage(mt, data)
		}
	}))
	defer srv.Close()

	h := newRecordingHandler()
	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.Ready())

	select {
	case msg := <-h.msgCh:
		assert.JSONEq(t, `{"event":"info","version":2}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for info")
	}

	require.NoError(t, c.WriteMessage([]byte(`{"event":"ping","cid":1}`)))
	select {
	case msg := <-h.msgCh:
		assert.JSONEq(t, `{"event":"ping","cid":1}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echo")
	}

	require.NoError(t, c.Close())
	select {
	case <-h.closeCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for close")
	}
	assert.False(t, c.Ready())
}

func newFakeClient(opts ...Option) *clientImp {
	c := &clientImp{
		conn:             newFakeConn(),
		handler:          newRecordingHandler(),
		userWriteTimeout: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func withConn(conn Conn) Option {
	return func(c *clientImp) {
		c.conn = conn
	}
}

func withHandler(h Handler) Option {
	return func(c *clientImp) {
		c.handler = h
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	opens   int
	msgCh   chan []byte
	closeCh chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		msgCh:   make(chan []byte, 10),
		closeCh: make(chan error, 1),
	}
}

func (h *recordingHandler) OnOpen() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opens++
}

func (h *recordingHandler) OnMessage(data []byte) { h.msgCh <- data }

func (h *recordingHandler) OnClose(err error) { h.closeCh <- err }

func (h *recordingHandler) openCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

type fakeConn struct {
	readCh  chan readResp
	writeCh chan writeReq

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

type readResp struct {
	msgType int
	data    []byte
	err     error
}

type writeReq struct {
	msgType int
	data    []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readCh:  make(chan readResp, 10),
		writeCh: make(chan writeReq, 10),
		closeCh: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.readCh:
		return r.msgType, r.data, r.err
	case <-c.closeCh:
		return websocket.CloseMessage, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.writeCh <- writeReq{msgType: messageType, data: data}
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closeCh)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ Conn = (*fakeConn)(nil)
var _ Handler = (*recordingHandler)(nil)
