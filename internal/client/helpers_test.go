package client

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
)

// recorder turns notifications into comparable strings.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func record(c *Client) *recorder {
	r := &recorder{}
	c.OnJoinedRoom.Subscribe(func(room domain.RoomInfo) { r.add("joined:" + room.UUID) })
	c.OnLeftRoom.Subscribe(func(room domain.RoomInfo) { r.add("left:" + room.UUID) })
	c.OnJoinRejected.Subscribe(func(a protocol.RejectedArgs) { r.add("rejected:" + a.Code) })
	c.OnRoomUpdated.Subscribe(func(room domain.RoomInfo) { r.add("room:" + room.UUID) })
	c.OnPeerAdded.Subscribe(func(p domain.PeerInfo) { r.add("added:" + p.UUID) })
	c.OnPeerUpdated.Subscribe(func(p domain.PeerInfo) { r.add("updated:" + p.UUID) })
	c.OnPeerRemoved.Subscribe(func(p domain.PeerInfo) { r.add("removed:" + p.UUID) })
	return r
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

// take returns and forgets everything recorded so far.
func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *recorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// pipeHarness runs a Client against a scripted server end of a pipe.
type pipeHarness struct {
	t   *testing.T
	c   *Client
	srv mux.Conn
	rec *recorder
	run chan error
}

func newPipeHarness(t *testing.T) *pipeHarness {
	t.Helper()
	cli, srv := mux.Pipe()
	h := &pipeHarness{t: t, c: New(cli, WithPeerUUID("me")), srv: srv, run: make(chan error, 1)}
	h.rec = record(h.c)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.run <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.run
	})
	return h
}

func (h *pipeHarness) recv() protocol.Envelope {
	h.t.Helper()
	m, err := h.srv.ReadMessage()
	require.NoError(h.t, err)
	require.True(h.t, protocol.IsDirectory(m))
	env, err := protocol.Decode(m.Payload)
	require.NoError(h.t, err)
	return env
}

func (h *pipeHarness) send(typ string, args any) {
	h.t.Helper()
	m, err := protocol.NewFrame(typ, args)
	require.NoError(h.t, err)
	require.NoError(h.t, h.srv.WriteMessage(m))
}

// sync waits until the client has processed everything sent before it.
func (h *pipeHarness) sync() {
	h.t.Helper()
	done := async(func() (PingResult, error) { return h.c.Ping(context.Background()) })
	env := h.recv()
	require.Equal(h.t, protocol.TypePing, env.Type)
	h.send(protocol.TypePingResponse, protocol.PingResponseArgs{SessionID: "sid-1"})
	r := <-done
	require.NoError(h.t, r.err)
}

// join drives one Join round trip answered with a snapshot.
func (h *pipeHarness) join(room domain.RoomInfo, peers ...domain.PeerInfo) protocol.JoinArgs {
	h.t.Helper()
	done := async(func() (domain.RoomInfo, error) { return h.c.JoinByUUID(context.Background(), room.UUID) })
	env := h.recv()
	require.Equal(h.t, protocol.TypeJoin, env.Type)
	var args protocol.JoinArgs
	require.NoError(h.t, env.Bind(&args))

	roster := append([]domain.PeerInfo{{UUID: "me"}}, peers...)
	h.send(protocol.TypeSetRoom, protocol.SetRoomArgs{Room: room, Peers: roster})
	r := <-done
	require.NoError(h.t, r.err)
	require.Equal(h.t, room.UUID, r.val.UUID)
	return args
}

func async[T any](f func() (T, error)) chan reply[T] {
	ch := make(chan reply[T], 1)
	go func() {
		v, err := f()
		ch <- reply[T]{val: v, err: err}
	}()
	return ch
}

func peer(id string, kv ...string) domain.PeerInfo {
	p := domain.PeerInfo{UUID: id}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Properties.Set(kv[i], kv[i+1])
	}
	return p
}

func room(id string) domain.RoomInfo {
	return domain.RoomInfo{UUID: id, Name: fmt.Sprintf("room %s", id), JoinCode: "ab12"}
}
