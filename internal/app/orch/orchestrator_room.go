package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/journal"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/rs/zerolog/log"
)

// A resolved room can be torn down before the join lands; resolution is
// retried this many times.
const maxJoinAttempts = 3

// Join moves sid into the room args names, creating it when needed. The room
// itself sends the snapshot to the joiner. A leave request returns the zero
// RoomInfo. On error the session's membership is unchanged.
func (o *Orchestrator) Join(sid core.SessionID, args protocol.JoinArgs) (domain.RoomInfo, error) {
	if err := args.Validate(); err != nil {
		return domain.RoomInfo{}, err
	}
	if args.IsLeave() {
		o.Leave(sid)
		return domain.RoomInfo{}, nil
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.RoomInfo{}, fmt.Errorf("session %s: %w", sid, domain.ErrNoSuchPeer)
	}

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		room, created, err := o.Rooms.Resolve(args)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				o.record(journal.Event{Type: journal.JoinRejected, Session: string(sid), Peer: args.Peer.UUID})
			}
			return domain.RoomInfo{}, err
		}
		if created {
			o.record(journal.Event{Type: journal.RoomCreated, Room: room.ID()})
		}

		if current, _, inRoom := o.Registry.RoomOf(sid); inRoom && current != room {
			o.leave(sid, current)
		}

		res, err := room.Join(sess, args.Peer)
		if errors.Is(err, domain.ErrNoSuchRoom) {
			log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", room.ID()).Msg("room torn down during join, retrying")
			continue
		}
		if err != nil {
			return domain.RoomInfo{}, err
		}

		for _, evicted := range res.Evicted {
			o.Registry.RemoveRoom(evicted.ID(), room)
		}
		o.Registry.UpdateRoom(sid, room)
		if !res.Rejoined {
			o.record(journal.Event{Type: journal.PeerJoined, Room: room.ID(), Peer: args.Peer.UUID, Session: string(sid)})
		}
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", room.ID()).Bool("rejoined", res.Rejoined).Msg("joined room")

		info := room.Info()
		o.applyPolicy(room, res.PublishResult)
		return info, nil
	}
	return domain.RoomInfo{}, fmt.Errorf("join %s %q: %w", args.Kind, args.Identifier, domain.ErrNoSuchRoom)
}

// Leave removes sid from its room, if any. Membership ends; the connection stays.
func (o *Orchestrator) Leave(sid core.SessionID) {
	room, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	o.leave(sid, room)
}

func (o *Orchestrator) leave(sid core.SessionID, room core.RoomService) {
	res := room.Leave(sid)
	o.Registry.RemoveRoom(sid, room)
	if !res.Found {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", room.ID()).Msg("leave: no such peer")
		return
	}
	o.record(journal.Event{Type: journal.PeerLeft, Room: room.ID(), Peer: res.Peer.UUID, Session: string(sid)})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", room.ID()).Msg("left room")

	if res.Empty && o.Rooms.RemoveIfEmpty(room) {
		o.record(journal.Event{Type: journal.RoomDestroyed, Room: room.ID()})
	}
	o.applyPolicy(room, res.PublishResult)
}

// OnDisconnect is an implicit Leave followed by forgetting the session.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.Leave(sid)
	o.Registry.Unbind(sid)
}

// KickBySID removes the member right away and cancels its transport.
func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.Leave(sid)
	o.Registry.Cancel(sid)
}

// UpdateRoomProperties applies a batch to the session's current room. The
// room broadcasts the result to every member, the requester included.
func (o *Orchestrator) UpdateRoomProperties(sid core.SessionID, args protocol.UpdateRoomPropertiesArgs) error {
	if err := args.Validate(); err != nil {
		return err
	}
	room, _, ok := o.Registry.RoomOf(sid)
	if !ok || room.ID() != args.Room {
		return fmt.Errorf("update room %s: %w", args.Room, domain.ErrNoSuchRoom)
	}
	res, err := room.UpdateProperties(sid, args.Properties)
	if err != nil {
		return err
	}
	if len(res.Changed) > 0 {
		o.record(journal.Event{Type: journal.RoomPropertiesChanged, Room: room.ID(), Session: string(sid), Keys: res.Changed})
	}
	o.applyPolicy(room, res.PublishResult)
	return nil
}

// UpdatePeerProperties applies a batch to the session's own peer and relays
// it to the other members.
func (o *Orchestrator) UpdatePeerProperties(sid core.SessionID, args protocol.UpdatePeerPropertiesArgs) error {
	room, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return fmt.Errorf("update peer of %s: %w", sid, domain.ErrNoSuchRoom)
	}
	res, err := room.UpdatePeer(sid, args.Properties)
	if err != nil {
		return err
	}
	if len(res.Changed) > 0 {
		o.record(journal.Event{Type: journal.PeerPropertiesChanged, Room: room.ID(), Session: string(sid), Keys: res.Changed})
	}
	o.applyPolicy(room, res.PublishResult)
	return nil
}
