package signal

import (
	"context"
	"time"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var tick <-chan time.Time
	if ctl.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	// Closing the socket unblocks the read pump.
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case <-c.done:
			log.Debug().Str("module", "signal").Msg("writePump connection closed")
			return
		case <-c.wake:
			for _, data := range c.pending() {
				// A peer that cannot take a frame within writeWait is gone.
				if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
					return
				}
				if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
					log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
					return
				}
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		ctl.JoinLimiter.Forget(sid)
		cancel()
		c.Close()
	}()

	if ctl.PingPeriod > 0 {
		pongWait := ctl.PingPeriod * 10 / 9
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		if ctx.Err() != nil {
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		}
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if mt != websocket.BinaryMessage {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Int("type", mt).Msg("non-binary message ignored")
			continue
		}
		ctl.handleFrame(sid, c, data)
	}
}

func (ctl *SignalWSController) handleFrame(sid core.SessionID, c *WsSignalConn, data []byte) {
	m, err := mux.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		ctl.sendError(c, "", err)
		return
	}
	if !protocol.IsDirectory(m) {
		ctl.Orch.OnFrame(sid, core.Frame(data))
		return
	}

	env, err := protocol.Decode(m.Payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad envelope")
		ctl.sendError(c, "", err)
		return
	}

	switch env.Type {
	case protocol.TypeJoin:
		ctl.handleJoin(sid, c, env)
	case protocol.TypeUpdateRoomProperties:
		ctl.handleUpdateRoomProperties(sid, c, env)
	case protocol.TypeUpdatePeerProperties:
		ctl.handleUpdatePeerProperties(sid, c, env)
	case protocol.TypeRequestRooms:
		ctl.handleRequestRooms(c, env)
	case protocol.TypePing:
		ctl.handlePing(sid, c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, env.Type, errUnknownType)
	}
}

func (ctl *SignalWSController) send(c core.SignalConnection, typ string, args any) {
	m, err := protocol.NewFrame(typ, args)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", typ).Msg("send encode")
		return
	}
	if err := c.TrySend(m.Encode()); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", typ).Msg("send dropped")
	}
}
