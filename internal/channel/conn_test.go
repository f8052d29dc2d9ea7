package channel

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

type written struct {
	messageType int
	data        []byte
}

// fakeTransport records writes. When gate is non-nil every WriteMessage waits on it.
type fakeTransport struct {
	mu       sync.Mutex
	messages []written
	pings    int
	closed   bool
	writeErr error
	gate     chan struct{}
	wrote    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{wrote: make(chan struct{}, 64)}
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, written{messageType: messageType, data: data})
	f.wrote <- struct{}{}
	return nil
}

func (f *fakeTransport) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.PingMessage {
		f.pings++
	}
	return nil
}

func (f *fakeTransport) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) snapshot() []written {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]written{}, f.messages...)
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitWrites(t *testing.T, f *fakeTransport, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.wrote:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for write %d of %d", i+1, n)
		}
	}
}

func waitDone(t *testing.T, c channel.Channel) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("connection %s did not shut down", c.ID())
	}
}

func testInfo() channel.Info {
	return channel.Info{Port: 8080, Tenant: "default", SubscriberPath: "/chat"}
}

func TestConn_WritePreservesOrder(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConn("conn-1", testInfo(), transport, Options{PingInterval: -1})
	defer conn.Close()

	require.NoError(t, conn.Write(channel.NewTextFrame("one")))
	require.NoError(t, conn.Write(channel.NewBinaryFrame([]byte{0x02})))
	require.NoError(t, conn.Write(channel.NewTextFrame("three")))
	waitWrites(t, transport, 3)

	got := transport.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, websocket.TextMessage, got[0].messageType)
	assert.Equal(t, "one", string(got[0].data))
	assert.Equal(t, websocket.BinaryMessage, got[1].messageType)
	assert.Equal(t, []byte{0x02}, got[1].data)
	assert.Equal(t, "three", string(got[2].data))
}

func TestConn_ConcurrentWriters(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConn("conn-1", testInfo(), transport, Options{QueueSize: 64, PingInterval: -1})
	defer conn.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				assert.NoError(t, conn.Write(channel.NewTextFrame("x")))
			}
		}()
	}
	wg.Wait()

	waitWrites(t, transport, 32)
	assert.Len(t, transport.snapshot(), 32)
}

func TestConn_QueueFull(t *testing.T) {
	transport := newFakeTransport()
	transport.gate = make(chan struct{})
	conn := NewConn("conn-1", testInfo(), transport, Options{QueueSize: 1, PingInterval: -1})
	defer func() {
		close(transport.gate)
		conn.Close()
	}()

	// First frame is taken by the actor and blocks in the transport, second fills the queue
	require.NoError(t, conn.Write(channel.NewTextFrame("first")))
	require.Eventually(t, func() bool { return len(conn.frames) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Write(channel.NewTextFrame("second")))

	err := conn.Write(channel.NewTextFrame("third"))
	assert.ErrorIs(t, err, channel.ErrQueueFull)
}

func TestConn_WriteAfterClose(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConn("conn-1", testInfo(), transport, Options{PingInterval: -1})

	require.NoError(t, conn.Close())
	waitDone(t, conn)

	assert.ErrorIs(t, conn.Write(channel.NewTextFrame("late")), channel.ErrClosed)
	assert.True(t, transport.isClosed())
	assert.NoError(t, conn.Close(), "Close must be idempotent")
}

func TestConn_LinkClosePropagates(t *testing.T) {
	source := NewConn("source", testInfo(), newFakeTransport(), Options{PingInterval: -1})
	targetTransport := newFakeTransport()
	target := NewConn("target", testInfo(), targetTransport, Options{PingInterval: -1})

	source.LinkClose(target)
	require.NoError(t, source.Close())

	waitDone(t, source)
	waitDone(t, target)
	assert.True(t, targetTransport.isClosed())
}

func TestConn_LinkCloseAfterShutdownClosesTarget(t *testing.T) {
	source := NewConn("source", testInfo(), newFakeTransport(), Options{PingInterval: -1})
	require.NoError(t, source.Close())
	waitDone(t, source)

	target := NewConn("target", testInfo(), newFakeTransport(), Options{PingInterval: -1})
	source.LinkClose(target)
	waitDone(t, target)
}

func TestConn_LinkCloseDoesNotWaitOnWrite(t *testing.T) {
	transport := newFakeTransport()
	transport.gate = make(chan struct{})
	source := NewConn("source", testInfo(), transport, Options{PingInterval: -1})
	targetTransport := newFakeTransport()
	target := NewConn("target", testInfo(), targetTransport, Options{PingInterval: -1})

	// The actor takes the frame and parks inside the transport write
	require.NoError(t, source.Write(channel.NewTextFrame("slow")))
	require.Eventually(t, func() bool { return len(source.frames) == 0 }, time.Second, 5*time.Millisecond)

	linked := make(chan struct{})
	go func() {
		source.LinkClose(target)
		close(linked)
	}()

	select {
	case <-linked:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("LinkClose waited on an in-flight transport write")
	}

	close(transport.gate)
	require.NoError(t, source.Close())
	waitDone(t, source)
	waitDone(t, target)
	assert.True(t, targetTransport.isClosed())
}

func TestConn_MutualLinks(t *testing.T) {
	a := NewConn("a", testInfo(), newFakeTransport(), Options{PingInterval: -1})
	b := NewConn("b", testInfo(), newFakeTransport(), Options{PingInterval: -1})

	a.LinkClose(b)
	b.LinkClose(a)
	require.NoError(t, b.Close())

	waitDone(t, a)
	waitDone(t, b)
}

func TestConn_LinkCloseIgnoresSelfAndNil(t *testing.T) {
	conn := NewConn("conn-1", testInfo(), newFakeTransport(), Options{PingInterval: -1})
	conn.LinkClose(nil)
	conn.LinkClose(conn)

	require.NoError(t, conn.Write(channel.NewTextFrame("still open")))
	require.NoError(t, conn.Close())
	waitDone(t, conn)
}

func TestConn_WriteErrorShutsDown(t *testing.T) {
	transport := newFakeTransport()
	transport.writeErr = errors.New("broken pipe")
	conn := NewConn("conn-1", testInfo(), transport, Options{PingInterval: -1})

	require.NoError(t, conn.Write(channel.NewTextFrame("doomed")))
	waitDone(t, conn)
	assert.True(t, transport.isClosed())
}

func TestConn_Pings(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConn("conn-1", testInfo(), transport, Options{PingInterval: 10 * time.Millisecond})
	defer conn.Close()

	assert.Eventually(t, func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return transport.pings >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConn_Info(t *testing.T) {
	info := channel.Info{Port: 9000, Tenant: "acme", BroadcastLevel: channel.ExclusiveBroadcast, SubscriberPath: "/feed"}
	conn := NewConn("conn-1", info, newFakeTransport(), Options{PingInterval: -1})
	defer conn.Close()

	assert.Equal(t, "conn-1", conn.ID())
	assert.Equal(t, info, conn.Info())
}

func TestOptions_SetDefaults(t *testing.T) {
	opts := Options{}
	opts.SetDefaults()

	assert.Equal(t, 256, opts.QueueSize)
	assert.Equal(t, 10*time.Second, opts.WriteTimeout)
	assert.Equal(t, 30*time.Second, opts.PingInterval)
	assert.NotNil(t, opts.Logger)

	disabled := Options{PingInterval: -1}
	disabled.SetDefaults()
	assert.Equal(t, time.Duration(-1), disabled.PingInterval)
}
