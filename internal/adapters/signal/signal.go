package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Rooms/internal/app/orch"
	"github.com/dkeye/Rooms/internal/config"
	"github.com/dkeye/Rooms/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalWSController terminates directory websockets. One instance serves
// every connection.
type SignalWSController struct {
	Orch        *orch.Orchestrator
	ReadLimit   int64
	PingPeriod  time.Duration
	SendBuffer  int
	JoinLimiter *RoomRateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:        o,
		ReadLimit:   cfg.ReadLimit,
		PingPeriod:  cfg.PingPeriod,
		SendBuffer:  cfg.SendBuffer,
		JoinLimiter: NewRoomRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval),
	}
}

// defaultSendQueue caps the frames waiting for one connection. Reaching it
// means the peer stopped reading; a slow but live peer is bounded by the
// write deadline instead.
const defaultSendQueue = 4096

// WsSignalConn queues frames for the write pump. TrySend never blocks and
// only fails once the connection is closed or the queue is full.
type WsSignalConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	queue  []core.Frame
	limit  int
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newWsSignalConn(ws *websocket.Conn, limit int) *WsSignalConn {
	if limit <= 0 {
		limit = defaultSendQueue
	}
	return &WsSignalConn{
		conn:  ws,
		limit: limit,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if len(c.queue) >= c.limit {
		return ErrBackpressure
	}
	c.queue = append(c.queue, f)
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// pending hands every queued frame to the caller in send order.
func (c *WsSignalConn) pending() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.queue = nil
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the pumps. ctx must outlive
// the request; the pumps stop when it is done or the session is kicked.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := newWsSignalConn(ws, ctl.SendBuffer)

	sess := core.NewMemberSession(sid, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn, cancel)
}
