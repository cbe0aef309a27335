package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
)

func TestJoinSnapshotNotifiesOnce(t *testing.T) {
	h := newPipeHarness(t)
	assert.Equal(t, NotJoined, h.c.State())

	args := h.join(room("r1"), peer("p1"), peer("p2"))
	assert.Equal(t, "me", args.Peer.UUID)
	assert.Equal(t, h.c.Me().Endpoint(), args.Peer.Endpoint)

	assert.Equal(t, []string{"joined:r1", "added:p1", "added:p2"}, h.rec.take())
	assert.Equal(t, Joined, h.c.State())
	peers := h.c.Peers()
	require.Len(t, peers, 2)
	assert.Equal(t, "p1", peers[0].UUID)

	_, ok := h.c.GetPeer("me")
	assert.False(t, ok, "self is not a remote peer")
}

func TestSwitchRoomRemovesOldPeers(t *testing.T) {
	h := newPipeHarness(t)
	h.join(room("r1"), peer("p1"), peer("p2"))
	h.rec.take()

	h.join(room("r2"), peer("p2"), peer("p3"))
	assert.Equal(t, []string{"removed:p1", "joined:r2", "added:p3"}, h.rec.take())
	assert.Equal(t, "r2", h.c.Room().UUID)
}

func TestRejectedJoinRestoresState(t *testing.T) {
	h := newPipeHarness(t)
	h.join(room("r1"), peer("p1"))
	h.rec.take()

	done := async(func() (domain.RoomInfo, error) { return h.c.JoinByCode(context.Background(), "zzzz") })
	env := h.recv()
	require.Equal(t, protocol.TypeJoin, env.Type)
	h.send(protocol.TypeRejected, protocol.RejectedArgs{Identifier: "zzzz", Kind: protocol.KindJoinCode, Code: protocol.CodeNotFound, Reason: "room not found"})

	r := <-done
	assert.ErrorIs(t, r.err, ErrNotFound)
	assert.Equal(t, []string{"rejected:not_found"}, h.rec.take())
	assert.Equal(t, Joined, h.c.State())
	assert.Equal(t, "r1", h.c.Room().UUID)

	done = async(func() (domain.RoomInfo, error) { return h.c.JoinByUUID(context.Background(), "r9") })
	h.recv()
	h.send(protocol.TypeRejected, protocol.RejectedArgs{Code: protocol.CodeRateLimited, Reason: "slow down"})
	r = <-done
	assert.ErrorIs(t, r.err, ErrRejected)
}

func TestDeltas(t *testing.T) {
	h := newPipeHarness(t)
	h.join(room("r1"), peer("p1", "color", "red"))
	h.rec.take()

	h.send(protocol.TypeUpdatePeer, protocol.UpdatePeerArgs{Peer: peer("p2")})
	h.send(protocol.TypeUpdatePeer, protocol.UpdatePeerArgs{Peer: peer("p1", "color", "blue")})
	h.send(protocol.TypeUpdatePeer, protocol.UpdatePeerArgs{Peer: peer("me", "x", "y")})
	h.send(protocol.TypePeerRemoved, protocol.PeerRemovedArgs{UUID: "p2"})
	h.send(protocol.TypePeerRemoved, protocol.PeerRemovedArgs{UUID: "ghost"})
	updated := room("r1")
	updated.Properties.Set("topic", "go")
	h.send(protocol.TypeUpdateRoom, protocol.UpdateRoomArgs{Room: updated})
	h.send(protocol.TypeUpdateRoom, protocol.UpdateRoomArgs{Room: room("other")})
	h.sync()

	assert.Equal(t, []string{"added:p2", "updated:p1", "removed:p2", "room:r1"}, h.rec.take())
	p1, ok := h.c.GetPeer("p1")
	require.True(t, ok)
	assert.Equal(t, "blue", p1.Properties["color"])
	v, ok := h.c.GetRoomProperty("topic")
	assert.True(t, ok)
	assert.Equal(t, "go", v)
	_, ok = h.c.GetRoomProperty("missing")
	assert.False(t, ok)
}

func TestLeave(t *testing.T) {
	h := newPipeHarness(t)
	h.join(room("r1"), peer("p1"), peer("p2"))
	h.rec.take()

	done := async(func() (struct{}, error) { return struct{}{}, h.c.Leave(context.Background()) })
	env := h.recv()
	var args protocol.JoinArgs
	require.NoError(t, env.Bind(&args))
	assert.True(t, args.IsLeave())
	h.send(protocol.TypeSetRoom, protocol.SetRoomArgs{Peers: []domain.PeerInfo{}})
	require.NoError(t, (<-done).err)

	assert.Equal(t, []string{"removed:p1", "removed:p2", "left:r1"}, h.rec.take())
	assert.Equal(t, NotJoined, h.c.State())
	assert.Empty(t, h.c.Peers())
	assert.True(t, h.c.Room().IsZero())
}

func TestSetRoomPropertyIsARequest(t *testing.T) {
	h := newPipeHarness(t)
	assert.ErrorIs(t, h.c.SetRoomProperty("topic", "go"), ErrNotJoined)

	h.join(room("r1"))
	require.NoError(t, h.c.SetRoomProperty("topic", "go"))
	env := h.recv()
	require.Equal(t, protocol.TypeUpdateRoomProperties, env.Type)
	var args protocol.UpdateRoomPropertiesArgs
	require.NoError(t, env.Bind(&args))
	assert.Equal(t, "r1", args.Room)
	assert.Equal(t, map[string]string{"topic": "go"}, args.Properties)

	_, ok := h.c.GetRoomProperty("topic")
	assert.False(t, ok, "cache waits for the server")
}

func TestLocalPeerProperties(t *testing.T) {
	h := newPipeHarness(t)
	me := h.c.Me()
	assert.Equal(t, "me", me.UUID())

	// Not in a room: applied locally, carried by the next join.
	require.NoError(t, me.SetProperty("color", "red"))
	v, ok := me.GetProperty("color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)

	args := h.join(room("r1"))
	assert.Equal(t, "red", args.Peer.Properties["color"])
	h.rec.take()

	require.NoError(t, me.SetProperty("color", "red"))
	require.NoError(t, me.SetProperty("never", ""))
	require.NoError(t, me.SetProperty("color", "blue"))
	env := h.recv()
	require.Equal(t, protocol.TypeUpdatePeerProperties, env.Type)
	var upd protocol.UpdatePeerPropertiesArgs
	require.NoError(t, env.Bind(&upd))
	assert.Equal(t, map[string]string{"color": "blue"}, upd.Properties)

	h.sync()
	assert.Empty(t, h.rec.take(), "own changes are not notified")
}

func TestDiscoverRooms(t *testing.T) {
	h := newPipeHarness(t)
	done := async(func() ([]domain.RoomInfo, error) { return h.c.DiscoverRooms(context.Background(), "AB12") })
	env := h.recv()
	require.Equal(t, protocol.TypeRequestRooms, env.Type)
	var args protocol.RequestRoomsArgs
	require.NoError(t, env.Bind(&args))
	assert.Equal(t, "AB12", args.JoinCode)

	h.send(protocol.TypeRoomsResponse, protocol.RoomsResponseArgs{Rooms: []domain.RoomInfo{room("r1")}, JoinCode: "AB12"})
	r := <-done
	require.NoError(t, r.err)
	require.Len(t, r.val, 1)
	assert.Equal(t, "r1", r.val[0].UUID)
	assert.Equal(t, NotJoined, h.c.State())
}

func TestPendingRequestFailsOnClose(t *testing.T) {
	h := newPipeHarness(t)
	done := async(func() (domain.RoomInfo, error) { return h.c.JoinByName(context.Background(), "lobby", true) })
	env := h.recv()
	require.Equal(t, protocol.TypeJoin, env.Type)
	require.NoError(t, h.srv.Close())

	r := <-done
	assert.ErrorIs(t, r.err, ErrClosed)
	assert.Error(t, <-h.run)
	h.run <- nil // let cleanup finish
	assert.Equal(t, NotJoined, h.c.State())

	_, err := h.c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectionLossLeavesRoom(t *testing.T) {
	h := newPipeHarness(t)
	h.join(room("r1"), peer("p1"), peer("p2"))
	h.rec.take()

	require.NoError(t, h.srv.Close())
	assert.Error(t, <-h.run)
	h.run <- nil // let cleanup finish

	assert.Equal(t, NotJoined, h.c.State())
	assert.True(t, h.c.Room().IsZero())
	assert.Empty(t, h.c.Peers())
	_, ok := h.c.GetPeer("p1")
	assert.False(t, ok)
	assert.Equal(t, []string{"removed:p1", "removed:p2", "left:r1"}, h.rec.take())
}

func TestPeerPropertyWhileJoiningIsRelayed(t *testing.T) {
	h := newPipeHarness(t)
	done := async(func() (domain.RoomInfo, error) { return h.c.JoinByUUID(context.Background(), "r1") })
	env := h.recv()
	require.Equal(t, protocol.TypeJoin, env.Type)
	var args protocol.JoinArgs
	require.NoError(t, env.Bind(&args))
	assert.Empty(t, args.Peer.Properties)
	require.Equal(t, Joining, h.c.State())

	require.NoError(t, h.c.Me().SetProperty("mic", "on"))
	env = h.recv()
	require.Equal(t, protocol.TypeUpdatePeerProperties, env.Type)
	var upd protocol.UpdatePeerPropertiesArgs
	require.NoError(t, env.Bind(&upd))
	assert.Equal(t, map[string]string{"mic": "on"}, upd.Properties)

	h.send(protocol.TypeSetRoom, protocol.SetRoomArgs{Room: room("r1"), Peers: []domain.PeerInfo{peer("me", "mic", "on")}})
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, Joined, h.c.State())
}

func TestServerErrorFailsMatchingRequest(t *testing.T) {
	h := newPipeHarness(t)

	found := async(func() ([]domain.RoomInfo, error) { return h.c.DiscoverRooms(context.Background(), "") })
	require.Equal(t, protocol.TypeRequestRooms, h.recv().Type)
	h.send(protocol.TypeError, protocol.ErrorArgs{Request: protocol.TypeRequestRooms, Reason: "bad args"})
	r := <-found
	assert.ErrorIs(t, r.err, ErrRequestFailed)

	joined := async(func() (domain.RoomInfo, error) { return h.c.JoinByUUID(context.Background(), "r1") })
	require.Equal(t, protocol.TypeJoin, h.recv().Type)
	h.send(protocol.TypeError, protocol.ErrorArgs{Request: protocol.TypeJoin, Reason: "boom"})
	jr := <-joined
	assert.ErrorIs(t, jr.err, ErrRequestFailed)
	assert.Equal(t, NotJoined, h.c.State())

	// Errors for notifications leave the queues alone; later answers still pair up.
	h.send(protocol.TypeError, protocol.ErrorArgs{Request: protocol.TypeUpdatePeerProperties, Reason: "late"})
	h.sync()
	h.join(room("r2"))
}

func TestApplicationMessagesAreRouted(t *testing.T) {
	h := newPipeHarness(t)
	got := make(chan []byte, 1)
	h.c.Router().Register(h.c.Me().Endpoint(), 3, mux.HandlerFunc(func(m mux.Message) { got <- m.Payload }))

	require.NoError(t, h.srv.WriteMessage(mux.Message{Object: h.c.Me().Endpoint(), Component: 3, Payload: []byte("hi")}))
	assert.Equal(t, []byte("hi"), <-got)

	require.NoError(t, h.c.Send(mux.Message{Object: 42 << 20, Component: 1, Payload: []byte("out")}))
	m, err := h.srv.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("out"), m.Payload)

	assert.ErrorIs(t, h.c.Send(mux.Message{Object: protocol.DirectoryObject, Component: protocol.DirectoryComponent}), protocol.ErrMalformedMessage)
}

func TestEventUnsubscribe(t *testing.T) {
	var ev Event[int]
	var got []int
	unsub := ev.Subscribe(func(v int) { got = append(got, v) })
	ev.Subscribe(func(v int) { got = append(got, v*10) })

	ev.emit(1)
	unsub()
	unsub()
	ev.emit(2)
	assert.Equal(t, []int{1, 10, 20}, got)
}
