package ws

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

func (c *clientImp) dialGorilla(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect establishes a websocket connection.
func (c *clientImp) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx, c.url)
	if err != nil {
		c.errorf("connect failed: %v", err)
		return classifyWSError(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: closed while dialing", ErrNotConnected)
	}
	c.conn = conn
	c.mu.Unlock()
	c.ready.Store(true)
	c.debugf("connected to %s", c.url)

	c.handler.OnOpen()

	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	go c.startReader(ctx, stop)
	return nil
}

// Ready reports whether the connection accepts writes.
func (c *clientImp) Ready() bool {
	return c.ready.Load()
}

func (c *clientImp) startReader(ctx context.Context, stop func() bool) {
	var cause error
	defer func() {
		stop()
		c.ready.Store(false)
		_ = c.Close()
		c.handler.OnClose(cause)
	}()
	c.debugf("reader started")

	for {
		select {
		case <-ctx.Done():
			c.debugf("reader stopped by ctx")
			cause = ctx.Err()
			return
		default:
			if err := c.readAndHandle(); err != nil {
				cause = err
				return
			}
		}
	}
}

func (c *clientImp) readAndHandle() error {
	msgType, buf, err := c.conn.ReadMessage()
	msgTypeStr := typeMsg(msgType)

	if err != nil {
		c.errorf("recv [%s] error: %v", msgTypeStr, err)
		return classifyWSError(err)
	}

	logWSMessage(c, msgTypeStr, buf)
	c.handler.OnMessage(buf)
	return nil
}

func logWSMessage(c *clientImp, msgTypeStr string, buf []byte) {
	if len(buf) > 0 {
		if utf8.Valid(buf) {
			c.debugf("recv [%s]: %s", msgTypeStr, string(buf))
		} else {
			c.debugf("recv [%s]: <binary> %x", msgTypeStr, buf)
		}
	} else {
		c.debugf("recv [%s]: <empty>", msgTypeStr)
	}
}

// WriteMessage writes a message to the websocket connection.
func (c *clientImp) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.ready.Load() {
		return ErrNotConnected
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.userWriteTimeout)); err != nil {
		c.errorf("set write deadline failed: %v", err)
		return fmt.Errorf("%w: %v", ErrWriteTimeout, err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.errorf("write failed: %v", err)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	c.debugf("sent: %s", string(data))
	return nil
}

// Close closes the websocket connection. Closing a client that never
// connected is a no-op; a dial still in flight is abandoned.
func (c *clientImp) Close() error {
	c.ready.Store(false)

	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		err := conn.Close()
		if err != nil {
			c.errorf("connection close failed: %v", err)
			c.closeErr = classifyWSError(err)
		}
	})
	return c.closeErr
}

func (c *clientImp) debugf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func (c *clientImp) errorf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Errorf(format, args...)
	}
}

func typeMsg(code int) string {
	switch code {
	case websocket.TextMessage:
		return "Text"
	case websocket.BinaryMessage:
		return "Binary"
	case websocket.CloseMessage:
		return "Close"
	case websocket.PingMessage:
		return "Ping"
	case websocket.PongMessage:
		return "Pong"
	default:
		return fmt.Sprintf("Unknown(%d)", code)
	}
}
