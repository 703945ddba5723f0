package mentor

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionsRegister(t *testing.T) {
	c := NewConnections()
	conn := &websocket.Conn{}

	c.Register(testKey, conn)

	assert.Same(t, conn, c.Get(testKey))
	assert.Equal(t, 1, c.Count())
}

func TestConnectionsUnregister(t *testing.T) {
	c := NewConnections()
	conn := &websocket.Conn{}

	c.Register(testKey, conn)
	c.Unregister(testKey, conn)

	assert.Nil(t, c.Get(testKey))
	assert.Zero(t, c.Count())
}

func TestConnectionsUnregisterStale(t *testing.T) {
	c := NewConnections()
	first := &websocket.Conn{}
	second := &websocket.Conn{}
	other := Key{UserID: testKey.UserID, TabID: "tab-2"}

	c.Register(testKey, first)
	c.Register(other, second)

	// A stale unregister for another tab must not drop this one.
	c.Unregister(other, first)
	c.Unregister(testKey, first)

	assert.Same(t, second, c.Get(other))
	assert.Nil(t, c.Get(testKey))
	assert.Equal(t, 1, c.Count())
}

func TestConnectionsConcurrentAccess(t *testing.T) {
	c := NewConnections()
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			c.Register(Key{UserID: "concurrent", TabID: "tab-" + strconv.Itoa(i)}, &websocket.Conn{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := range 1000 {
			c.Get(Key{UserID: "concurrent", TabID: "tab-" + strconv.Itoa(i)})
		}
	}()
	wg.Wait()

	assert.Equal(t, 1000, c.Count())
}

func TestConnectionsNotifyEndedWithoutConnection(t *testing.T) {
	c := NewConnections()
	assert.NotPanics(t, func() { c.NotifyEnded(testKey, idleEndedNote) })
}

func TestReapedInterviewNotifiesWebSocket(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)
	conn, ctx := dialMentor(t, f)

	// The pong guarantees the connection is registered.
	require.Equal(t, wsTypePong, roundTrip(t, ctx, conn, wsMessage{Type: wsTypePing}).Type)

	f.clock.Advance(time.Hour)
	require.Equal(t, 1, f.svc.ReapIdle(context.Background(), 30*time.Minute))

	var reply wsReply
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	assert.Equal(t, wsTypeStatus, reply.Type)
	assert.Equal(t, idleEndedNote, reply.Content)
	require.NotNil(t, reply.Status)
	assert.False(t, reply.Status.Active)
}
