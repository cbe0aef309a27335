package client

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Rooms/internal/mux"
)

// Dial connects to a directory server websocket, e.g.
// ws://host:8080/api/ws/signal. The caller still has to start Run.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(mux.NewWSConn(ws), opts...), nil
}
