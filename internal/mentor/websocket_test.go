package mentor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/leetmentor/internal/identity"
)

func dialMentor(t *testing.T, f handlerFixture) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	header := http.Header{}
	header.Set(testUserHeader, testKey.UserID)
	header.Set(identity.TabHeaderName, testKey.TabID)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mentor"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, msg wsMessage) wsReply {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
	var reply wsReply
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	return reply
}

func TestWebSocketPingAndStatus(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	conn, ctx := dialMentor(t, f)

	assert.Equal(t, wsTypePong, roundTrip(t, ctx, conn, wsMessage{Type: wsTypePing}).Type)

	reply := roundTrip(t, ctx, conn, wsMessage{Type: wsTypeStatus})
	assert.Equal(t, wsTypeStatus, reply.Type)
	require.NotNil(t, reply.Status)
	assert.False(t, reply.Status.Active)

	reply = roundTrip(t, ctx, conn, wsMessage{Type: "dance"})
	assert.Equal(t, wsTypeError, reply.Type)
}

func TestWebSocketChatStreamsChunks(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)
	conn, ctx := dialMentor(t, f)

	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: wsTypeChat, Content: "Should I use a hash map?"}))

	var text strings.Builder
	for {
		var reply wsReply
		require.NoError(t, wsjson.Read(ctx, conn, &reply))
		if reply.Type == wsTypeDone {
			require.NotNil(t, reply.Status)
			assert.Equal(t, 2, reply.Status.MessageCount)
			break
		}
		require.Equal(t, wsTypeChunk, reply.Type, reply.Error)
		text.WriteString(reply.Content)
	}
	assert.Equal(t, "What is the input size?", text.String())
}

func TestWebSocketHintAndPhase(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	conn, ctx := dialMentor(t, f)

	reply := roundTrip(t, ctx, conn, wsMessage{Type: wsTypeHint})
	assert.Equal(t, wsTypeError, reply.Type)
	assert.Equal(t, ErrNoActiveSession.Error(), reply.Error)

	f.start(t)
	reply = roundTrip(t, ctx, conn, wsMessage{Type: wsTypePhase, Phase: "approach_discussion"})
	assert.Equal(t, wsTypeStatus, reply.Type)
	assert.NotEmpty(t, reply.Content)

	reply = roundTrip(t, ctx, conn, wsMessage{Type: wsTypeHint})
	assert.Equal(t, wsTypeHint, reply.Type)
	require.NotNil(t, reply.Hint)
	assert.Equal(t, "What would be the simplest approach?", reply.Hint.Hint)
}

func TestWebSocketOriginCheck(t *testing.T) {
	h := NewWebSocketHandler(nil, nil, []string{"chrome-extension://*"}, false)

	req := httptest.NewRequest(http.MethodGet, "/ws/mentor", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, h.checkOrigin(req))
}
