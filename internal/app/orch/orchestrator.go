// Package orch implements the directory server operations on top of the
// session registry and the room manager.
package orch

import (
	"context"

	"github.com/dkeye/Rooms/internal/app"
	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/journal"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Journal  journal.Journal
}

// OnFrame relays application data to the sender's room mates.
func (o *Orchestrator) OnFrame(sid core.SessionID, data core.Frame) {
	room, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("frame outside a room dropped")
		return
	}
	res, err := room.Forward(sid, data)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("forward")
		return
	}
	o.applyPolicy(room, res)
}

// Ping answers with the session id; it does not depend on membership.
func (o *Orchestrator) Ping(sid core.SessionID) protocol.PingResponseArgs {
	return protocol.PingResponseArgs{SessionID: string(sid)}
}

// DiscoverRooms lists published rooms, optionally only the one with joinCode.
func (o *Orchestrator) DiscoverRooms(joinCode string) []domain.RoomInfo {
	return o.Rooms.Published(joinCode)
}

func (o *Orchestrator) applyPolicy(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Str("room", room.ID()).Msg("member cannot keep up, kicking")
			o.KickBySID(slow.ID())
		case app.NoAction:
		}
	}
}

func (o *Orchestrator) record(ev journal.Event) {
	if o.Journal == nil {
		return
	}
	o.Journal.Record(context.Background(), ev)
}
