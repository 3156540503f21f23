package server

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"socialnet/internal/models"
	"socialnet/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the env's app on a loopback port and returns its address.
func (e *testEnv) listen() string {
	e.t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(e.t, err)
	go func() { _ = e.app.Listener(ln) }()
	e.t.Cleanup(func() { _ = e.app.Shutdown() })
	return ln.Addr().String()
}

func readEvent(t *testing.T, conn *websocket.Conn) notifications.ChatMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg notifications.ChatMessage
	require.NoError(t, json.Unmarshal(raw, &msg), "frame: %s", raw)
	return msg
}

func TestWebSocketChat_DeliversMessagesToParticipants(t *testing.T) {
	for _, withRedis := range []bool{false, true} {
		env := newTestEnv(t, withRedis)
		if withRedis {
			env.srv.StartBackground()
			t.Cleanup(func() { env.srv.shutdownFn() })
		}
		addr := env.listen()

		aliceToken, alice := env.register("alice")
		bobToken, bob := env.register("bob")

		conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws/chat?token="+aliceToken, nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		defer func() { _ = conn.Close() }()

		hello := readEvent(t, conn)
		assert.Equal(t, notifications.EventConnected, hello.Type)
		require.Eventually(t, func() bool { return env.srv.chatHub.IsUserOnline(alice.ID) }, time.Second, 10*time.Millisecond)

		if withRedis {
			// The subscriber goroutine must be attached before the publish.
			require.Eventually(t, func() bool { return env.mr.PubSubNumPat() > 0 }, 2*time.Second, 10*time.Millisecond)
		}

		var conv models.Conversation
		require.Equal(t, http.StatusCreated, env.doJSON(http.MethodPost, "/api/conversations", bobToken, fiber.Map{"targetId": alice.ID}, &conv))
		require.Equal(t, http.StatusOK, env.status(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", bobToken, fiber.Map{"text": "hi"}))

		event := readEvent(t, conn)
		assert.Equal(t, notifications.EventMessage, event.Type)
		assert.Equal(t, conv.ID, event.ConversationID)
		payload, ok := event.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, bob.ID, payload["senderId"])
		assert.Equal(t, "hi", payload["text"])

		var views []ConversationView
		require.Equal(t, http.StatusOK, env.doJSON(http.MethodGet, "/api/conversations", bobToken, nil, &views))
		require.Len(t, views, 1)
		assert.Equal(t, conv.ID, views[0].ID)
		assert.True(t, views[0].PeerOnline, "alice has a socket open")

		require.Equal(t, http.StatusOK, env.doJSON(http.MethodGet, "/api/conversations", aliceToken, nil, &views))
		require.Len(t, views, 1)
		assert.False(t, views[0].PeerOnline, "bob never connected")
	}
}

func TestWebSocketChat_ConnectionLimitSendsErrorFrame(t *testing.T) {
	env := newTestEnv(t, false)
	addr := env.listen()
	token, _ := env.register("alice")

	for i := 0; i < 20; i++ {
		conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws/chat?token="+token, nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		t.Cleanup(func() { _ = conn.Close() })

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var event notifications.ChatMessage
		require.NoError(t, json.Unmarshal(raw, &event), "frame: %s", raw)
		if event.Type == notifications.EventConnected {
			continue
		}

		var body models.ErrorResponse
		require.NoError(t, json.Unmarshal(raw, &body), "frame: %s", raw)
		assert.Equal(t, models.CodeForbidden, body.Code)
		assert.Equal(t, notifications.ErrConnectionLimit.Error(), body.Error)
		return
	}
	t.Fatal("connection limit never reached")
}

func TestWebSocketChat_Gating(t *testing.T) {
	t.Run("flag off", func(t *testing.T) {
		env := newTestEnv(t, false, withFlags("realtime_chat=off"))
		token, _ := env.register("alice")

		status, _ := env.do(http.MethodGet, "/api/ws/chat", token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("plain http", func(t *testing.T) {
		env := newTestEnv(t, false)
		token, _ := env.register("alice")

		status, _ := env.do(http.MethodGet, "/api/ws/chat", token, nil)
		assert.Equal(t, http.StatusUpgradeRequired, status)
	})

	t.Run("unauthenticated dial", func(t *testing.T) {
		env := newTestEnv(t, false)
		addr := env.listen()

		_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws/chat", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
