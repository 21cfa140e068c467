/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushClosesSlowClient(t *testing.T) {
	c := &Client{id: "slow", send: make(chan any, 2)}

	assert.True(t, c.push(Message{Event: "a"}))
	assert.True(t, c.push(Message{Event: "b"}))
	assert.False(t, c.push(Message{Event: "c"}))
	assert.False(t, c.push(Message{Event: "d"}))

	var got []string
	for m := range c.send {
		got = append(got, m.(Message).Event)
	}
	assert.Equal(t, []string{"a", "b"}, got)

	c.close()
}

func TestCloseIsIdempotent(t *testing.T) {
	c := &Client{id: "c", send: make(chan any, 1)}

	c.close()
	c.close()

	assert.False(t, c.push(Message{Event: "late"}))
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.corsOrigin = "https://games.example"
	up := upgrader(cfg)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, up.CheckOrigin(r))

	r.Header.Set("Origin", "https://games.example")
	assert.True(t, up.CheckOrigin(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, up.CheckOrigin(r))
}

func dialWS(t *testing.T, s *apiServer) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

// await reads frames until one carries event.
func await(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))

	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Event == event {
			return env
		}
	}
}

func TestWebsocketSession(t *testing.T) {
	s := newAPIServer(t)

	a := dialWS(t, s)
	send(t, a, evJoinDrawingRoom, joinPayload{RoomID: "R1", PlayerData: PlayerData{Name: "A", Avatar: "cat"}})

	var players []Player
	require.NoError(t, json.Unmarshal(await(t, a, evDrawingPlayersUpdate).Data, &players))
	require.Len(t, players, 1)
	assert.Equal(t, "A", players[0].Name)
	assert.Equal(t, "cat", players[0].Avatar)

	b := dialWS(t, s)
	send(t, b, evRequestRoomCounts, nil)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(await(t, b, evInitialRoomCounts).Data, &counts))
	assert.Equal(t, map[string]int{"R1": 1}, counts)

	send(t, b, evJoinDrawingRoom, joinPayload{RoomID: "R1", PlayerData: PlayerData{Name: "B"}})

	var joined Player
	require.NoError(t, json.Unmarshal(await(t, a, evPlayerJoined).Data, &joined))
	assert.Equal(t, "B", joined.Name)

	// Closing a socket is the same as leaving.
	require.NoError(t, b.Close())

	var left playerLeft
	require.NoError(t, json.Unmarshal(await(t, a, evPlayerLeft).Data, &left))
	assert.Equal(t, "B", left.Name)

	require.Eventually(t, func() bool {
		return s.hub.roomCounts()["R1"] == 1
	}, waitFor, 5*time.Millisecond)
}

func TestWebsocketIgnoresGarbage(t *testing.T) {
	s := newAPIServer(t)
	a := dialWS(t, s)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, a, "no-such-event", map[string]string{"roomId": "R1"})
	send(t, a, evRequestRoomCounts, nil)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(await(t, a, evInitialRoomCounts).Data, &counts))
	assert.Empty(t, counts)
}
