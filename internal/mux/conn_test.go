package mux

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSConnSkipsShortFrames(t *testing.T) {
	valid := Message{Object: 9, Component: 2, Payload: []byte("ok")}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
		_ = ws.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = ws.WriteMessage(websocket.BinaryMessage, valid.Encode())
		// Wait for the client to hang up.
		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	c := NewWSConn(ws)
	defer c.Close()

	got, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, valid.Object, got.Object)
	assert.Equal(t, valid.Component, got.Component)
	assert.Equal(t, "ok", string(got.Payload))
}
