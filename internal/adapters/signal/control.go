package signal

import (
	"errors"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/protocol"
)

var errUnknownType = errors.New("unknown message type")

// handlePing answers with the id of this connection's session.
func (ctl *SignalWSController) handlePing(sid core.SessionID, conn *WsSignalConn) {
	ctl.send(conn, protocol.TypePingResponse, ctl.Orch.Ping(sid))
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, request string, err error) {
	ctl.send(conn, protocol.TypeError, protocol.ErrorArgs{Request: request, Reason: err.Error()})
}
