package signal

import (
	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleUpdatePeerProperties(sid core.SessionID, conn *WsSignalConn, env protocol.Envelope) {
	var p protocol.UpdatePeerPropertiesArgs
	if err := env.Bind(&p); err != nil {
		ctl.sendError(conn, env.Type, err)
		return
	}
	if err := ctl.Orch.UpdatePeerProperties(sid, p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("update peer properties ignored")
	}
}
