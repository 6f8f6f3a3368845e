package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/IvanTurko/bitfinex-ws-go/ws"
)

// MockClient is a ws.Client driven by the test: Open and Deliver call the
// handler the way a live connection would.
type MockClient struct {
	URL        string
	Handler    ws.Handler
	ConnectErr error
	CloseErr   error
	WriteErr   error

	mu        sync.Mutex
	connected int
	ready     bool
	closed    bool
	written   [][]byte
}

func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected++
	return m.ConnectErr
}

func (m *MockClient) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.closed
}

func (m *MockClient) WriteMessage(msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, append([]byte(nil), msg...))
	return nil
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.ready = false
	return m.CloseErr
}

// SetReady flips the ready flag without notifying the handler.
func (m *MockClient) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// Open marks the client ready and reports OnOpen.
func (m *MockClient) Open() {
	m.SetReady(true)
	m.Handler.OnOpen()
}

// Deliver reports an inbound frame.
func (m *MockClient) Deliver(data string) {
	m.Handler.OnMessage([]byte(data))
}

// Drop marks the client closed and reports OnClose(err).
func (m *MockClient) Drop(err error) {
	m.mu.Lock()
	m.closed = true
	m.ready = false
	m.mu.Unlock()
	m.Handler.OnClose(err)
}

// Written returns a copy of every frame written so far.
func (m *MockClient) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.written))
	for i, b := range m.written {
		out[i] = string(b)
	}
	return out
}

func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockClient) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// MockFactory records every client it builds.
type MockFactory struct {
	ConnectErr error

	mu      sync.Mutex
	clients []*MockClient
}

func (f *MockFactory) New(url string, h ws.Handler) ws.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &MockClient{URL: url, Handler: h, ConnectErr: f.ConnectErr}
	f.clients = append(f.clients, c)
	return c
}

// Clients returns the clients built so far, oldest first.
func (f *MockFactory) Clients() []*MockClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockClient(nil), f.clients...)
}

// Last returns the newest client, or nil.
func (f *MockFactory) Last() *MockClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		return nil
	}
	return f.clients[len(f.clients)-1]
}

// Logger collects log lines.
type Logger struct {
	mu     sync.Mutex
	Debugs []string
	Errors []string
}

func (l *Logger) Debugf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, fmt.Sprintf(format, args...))
}

func (l *Logger) ErrorLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Errors...)
}

func (l *Logger) DebugLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Debugs...)
}

var (
	_ ws.Client = (*MockClient)(nil)
	_ ws.Logger = (*Logger)(nil)
)
