package client

import (
	"fmt"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
)

// handleDirectory runs on the processing goroutine. Cache changes happen
// under the lock; notifications fire after it is released.
func (c *Client) handleDirectory(m mux.Message) {
	env, err := protocol.Decode(m.Payload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("bad directory message")
		return
	}

	switch env.Type {
	case protocol.TypeSetRoom:
		var args protocol.SetRoomArgs
		if c.bind(env, &args) {
			c.onSetRoom(args)
		}
	case protocol.TypeRejected:
		var args protocol.RejectedArgs
		if c.bind(env, &args) {
			c.onRejected(args)
		}
	case protocol.TypeUpdateRoom:
		var args protocol.UpdateRoomArgs
		if c.bind(env, &args) {
			c.onUpdateRoom(args.Room)
		}
	case protocol.TypeUpdatePeer:
		var args protocol.UpdatePeerArgs
		if c.bind(env, &args) {
			c.onUpdatePeer(args.Peer)
		}
	case protocol.TypePeerRemoved:
		var args protocol.PeerRemovedArgs
		if c.bind(env, &args) {
			c.onPeerRemoved(args.UUID)
		}
	case protocol.TypePingResponse:
		var args protocol.PingResponseArgs
		if c.bind(env, &args) {
			c.mu.Lock()
			ch, ok := c.pings.pop()
			c.mu.Unlock()
			resolve(ch, ok, args.SessionID, nil)
		}
	case protocol.TypeRoomsResponse:
		var args protocol.RoomsResponseArgs
		if c.bind(env, &args) {
			c.mu.Lock()
			ch, ok := c.finds.pop()
			c.mu.Unlock()
			resolve(ch, ok, args, nil)
		}
	case protocol.TypeError:
		var args protocol.ErrorArgs
		if c.bind(env, &args) {
			c.onError(args)
		}
	default:
		c.logger.Warn().Str("type", env.Type).Msg("unknown directory message")
	}
}

func (c *Client) bind(env protocol.Envelope, v any) bool {
	if err := env.Bind(v); err != nil {
		c.logger.Warn().Err(err).Str("type", env.Type).Msg("bad directory message")
		return false
	}
	return true
}

func (c *Client) onSetRoom(args protocol.SetRoomArgs) {
	c.mu.Lock()
	prev := c.room
	known := c.peers
	knownOrder := c.order

	c.room = args.Room.Clone()
	c.peers = make(map[domain.PeerID]domain.PeerInfo, len(args.Peers))
	c.order = c.order[:0:0]

	var added []domain.PeerInfo
	if !c.room.IsZero() {
		for _, p := range args.Peers {
			if p.UUID == c.me.uuid {
				continue
			}
			if _, dup := c.peers[p.UUID]; dup {
				continue
			}
			c.peers[p.UUID] = p.Clone()
			c.order = append(c.order, p.UUID)
			if _, ok := known[p.UUID]; !ok {
				added = append(added, p.Clone())
			}
		}
	}
	var removed []domain.PeerInfo
	for _, id := range knownOrder {
		if _, ok := c.peers[id]; !ok {
			removed = append(removed, known[id])
		}
	}

	ch, ok := c.joins.pop()
	c.state = c.settledLocked()
	room := c.room.Clone()
	c.mu.Unlock()

	for _, p := range removed {
		c.OnPeerRemoved.emit(p)
	}
	if room.IsZero() {
		c.logger.Info().Msg("left room")
		if !prev.IsZero() {
			c.OnLeftRoom.emit(prev)
		}
	} else {
		c.logger.Info().Str("room", room.UUID).Int("peers", len(args.Peers)).Msg("joined room")
		c.OnJoinedRoom.emit(room)
		for _, p := range added {
			c.OnPeerAdded.emit(p)
		}
	}
	resolve(ch, ok, room, nil)
}

func (c *Client) onRejected(args protocol.RejectedArgs) {
	c.mu.Lock()
	ch, ok := c.joins.pop()
	c.state = c.settledLocked()
	c.mu.Unlock()

	c.logger.Info().Str("kind", string(args.Kind)).Str("identifier", args.Identifier).Str("code", args.Code).Msg("join rejected")
	c.OnJoinRejected.emit(args)

	err := fmt.Errorf("%w: %s", ErrRejected, args.Reason)
	if args.Code == protocol.CodeNotFound {
		err = fmt.Errorf("%s %q: %w", args.Kind, args.Identifier, ErrNotFound)
	}
	resolve(ch, ok, domain.RoomInfo{}, err)
}

func (c *Client) onUpdateRoom(room domain.RoomInfo) {
	c.mu.Lock()
	if c.room.IsZero() || c.room.UUID != room.UUID {
		c.mu.Unlock()
		c.logger.Debug().Str("room", room.UUID).Msg("update for another room ignored")
		return
	}
	c.room = room.Clone()
	c.mu.Unlock()
	c.OnRoomUpdated.emit(room)
}

func (c *Client) onUpdatePeer(p domain.PeerInfo) {
	if p.UUID == c.me.uuid {
		return
	}
	c.mu.Lock()
	if c.room.IsZero() {
		c.mu.Unlock()
		return
	}
	_, known := c.peers[p.UUID]
	c.peers[p.UUID] = p.Clone()
	if !known {
		c.order = append(c.order, p.UUID)
	}
	c.mu.Unlock()

	if known {
		c.OnPeerUpdated.emit(p)
	} else {
		c.OnPeerAdded.emit(p)
	}
}

func (c *Client) onPeerRemoved(id domain.PeerID) {
	c.mu.Lock()
	p, ok := c.peers[id]
	if ok {
		delete(c.peers, id)
		for i, o := range c.order {
			if o == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
	if ok {
		c.OnPeerRemoved.emit(p)
	}
}

// onError fails the oldest waiter of the request type the error names.
// Errors for notifications only get logged.
func (c *Client) onError(args protocol.ErrorArgs) {
	c.logger.Warn().Str("request", args.Request).Str("reason", args.Reason).Msg("server reported an error")
	err := fmt.Errorf("%s: %w: %s", args.Request, ErrRequestFailed, args.Reason)

	c.mu.Lock()
	switch args.Request {
	case protocol.TypeJoin:
		ch, ok := c.joins.pop()
		c.state = c.settledLocked()
		c.mu.Unlock()
		resolve(ch, ok, domain.RoomInfo{}, err)
	case protocol.TypePing:
		ch, ok := c.pings.pop()
		c.mu.Unlock()
		resolve(ch, ok, "", err)
	case protocol.TypeRequestRooms:
		ch, ok := c.finds.pop()
		c.mu.Unlock()
		resolve(ch, ok, protocol.RoomsResponseArgs{}, err)
	default:
		c.mu.Unlock()
	}
}
