package signal

import (
	"errors"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/rs/zerolog/log"
)

// handleJoin always answers: the room sends the snapshot on success, a leave
// gets an empty SetRoom, anything else is Rejected.
func (ctl *SignalWSController) handleJoin(sid core.SessionID, conn *WsSignalConn, env protocol.Envelope) {
	var p protocol.JoinArgs
	if err := env.Bind(&p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.reject(conn, p, protocol.CodeMalformed, err)
		return
	}
	if !ctl.JoinLimiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join rate limited")
		ctl.reject(conn, p, protocol.CodeRateLimited, errors.New("too many join requests"))
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("kind", string(p.Kind)).Str("identifier", p.Identifier).Msg("join")
	_, err := ctl.Orch.Join(sid, p)
	switch {
	case err == nil:
		if p.IsLeave() {
			ctl.send(conn, protocol.TypeSetRoom, protocol.SetRoomArgs{Peers: []domain.PeerInfo{}})
		}
	case errors.Is(err, domain.ErrNotFound):
		ctl.reject(conn, p, protocol.CodeNotFound, err)
	case errors.Is(err, protocol.ErrMalformedMessage):
		ctl.reject(conn, p, protocol.CodeMalformed, err)
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
		ctl.reject(conn, p, protocol.CodeUnavailable, err)
	}
}

func (ctl *SignalWSController) reject(conn *WsSignalConn, p protocol.JoinArgs, code string, err error) {
	ctl.send(conn, protocol.TypeRejected, protocol.RejectedArgs{
		Identifier: p.Identifier,
		Kind:       p.Kind,
		Code:       code,
		Reason:     err.Error(),
	})
}

func (ctl *SignalWSController) handleUpdateRoomProperties(sid core.SessionID, conn *WsSignalConn, env protocol.Envelope) {
	var p protocol.UpdateRoomPropertiesArgs
	if err := env.Bind(&p); err != nil {
		ctl.sendError(conn, env.Type, err)
		return
	}
	err := ctl.Orch.UpdateRoomProperties(sid, p)
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrMalformedMessage):
		ctl.sendError(conn, env.Type, err)
	default:
		// Stale requests for a room the session already left are expected.
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("update room properties ignored")
	}
}

func (ctl *SignalWSController) handleRequestRooms(conn *WsSignalConn, env protocol.Envelope) {
	var p protocol.RequestRoomsArgs
	if err := env.Bind(&p); err != nil {
		// The client pairs responses with requests in order, so it still gets one.
		log.Warn().Err(err).Str("module", "signal").Msg("bad rooms request")
		ctl.send(conn, protocol.TypeRoomsResponse, protocol.RoomsResponseArgs{Rooms: []domain.RoomInfo{}})
		return
	}
	rooms := ctl.Orch.DiscoverRooms(p.JoinCode)
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	ctl.send(conn, protocol.TypeRoomsResponse, protocol.RoomsResponseArgs{Rooms: rooms, JoinCode: p.JoinCode})
}
