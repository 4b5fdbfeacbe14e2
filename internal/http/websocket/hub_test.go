package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/hbomb79/mediagetter/internal/http/websocket"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type wireMessage struct {
	Title     string         `json:"title"`
	Arguments map[string]any `json:"arguments"`
	Id        int            `json:"id"`
	Type      int            `json:"type"`
}

func startHub(t *testing.T, hub *websocket.SocketHub) string {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Start(ctx)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.UpgradeToSocket))
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		srv.Close()
	})

	// Wait for the hub to come online before accepting connections
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode != http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *gorilla.Conn {
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func read(t *testing.T, conn *gorilla.Conn) wireMessage {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func Test_Hub_WelcomesClientsWithConnectionPayload(t *testing.T) {
	t.Parallel()
	hub := websocket.New().WithConnectionCallback(func() map[string]any {
		return map[string]any{"acquisitions": []string{"a", "b"}}
	})
	conn := dial(t, startHub(t, hub))

	msg := read(t, conn)
	assert.Equal(t, websocket.TitleConnectionEstablished, msg.Title)
	assert.Equal(t, int(websocket.Welcome), msg.Type)
	assert.NotEmpty(t, msg.Arguments["client"])
	assert.Equal(t, []any{"a", "b"}, msg.Arguments["acquisitions"])
}

func Test_Hub_BroadcastsToAllClients(t *testing.T) {
	t.Parallel()
	hub := websocket.New()
	url := startHub(t, hub)

	clients := []*gorilla.Conn{dial(t, url), dial(t, url)}
	for _, c := range clients {
		read(t, c)
	}

	hub.Send(&websocket.SocketMessage{Title: "HELLO", Body: map[string]any{"n": 1}, Type: websocket.Update})
	for _, c := range clients {
		msg := read(t, c)
		assert.Equal(t, "HELLO", msg.Title)
		assert.Equal(t, int(websocket.Update), msg.Type)
		assert.EqualValues(t, 1, msg.Arguments["n"])
	}
}

func Test_Hub_DispatchesCommands(t *testing.T) {
	t.Parallel()
	hub := websocket.New().BindCommand("ECHO", func(hub *websocket.SocketHub, command *websocket.SocketMessage) error {
		if err := command.ValidateArguments(map[string]string{"text": "string"}); err != nil {
			return err
		}

		hub.Send(command.FormReply("ECHO_REPLY", map[string]any{"text": command.Body["text"]}, websocket.Response))
		return nil
	})
	conn := dial(t, startHub(t, hub))
	read(t, conn)

	tests := []struct {
		summary string
		command wireMessage
		title   string
	}{
		{summary: "bound command", command: wireMessage{Title: "ECHO", Id: 7, Type: int(websocket.Command), Arguments: map[string]any{"text": "hi"}}, title: "ECHO_REPLY"},
		{summary: "handler failure", command: wireMessage{Title: "ECHO", Id: 8, Type: int(websocket.Command), Arguments: map[string]any{}}, title: "COMMAND_FAILURE"},
		{summary: "unknown command", command: wireMessage{Title: "NOPE", Id: 9, Type: int(websocket.Command)}, title: "COMMAND_FAILURE"},
	}

	// Sequential, as each reply is read from the same connection
	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.command))

			reply := read(t, conn)
			assert.Equal(t, tt.title, reply.Title)
			assert.Equal(t, tt.command.Id, reply.Id)
		})
	}
}

func Test_Hub_SendWhileOfflineIsDropped(t *testing.T) {
	t.Parallel()
	hub := websocket.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Send(&websocket.SocketMessage{Title: "IGNORED"})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on an offline hub")
	}
}

func Test_SocketMessage_ValidateArguments(t *testing.T) {
	t.Parallel()
	msg := &websocket.SocketMessage{Body: map[string]any{"name": "x", "count": float64(2), "empty": ""}}

	assert.NoError(t, msg.ValidateArguments(map[string]string{"name": "string", "count": "number"}))
	assert.Error(t, msg.ValidateArguments(map[string]string{"missing": "string"}))
	assert.Error(t, msg.ValidateArguments(map[string]string{"empty": "string"}))
	assert.Error(t, msg.ValidateArguments(map[string]string{"name": "number"}))
	assert.Error(t, msg.ValidateArguments(map[string]string{"name": "bool"}))
}
