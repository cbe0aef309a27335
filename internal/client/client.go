// Package client is the participant side of the room directory. A Client
// keeps a read cache of its current room and raises ordered notifications
// as the server reports changes. Notifications run one at a time on the
// goroutines of Run; blocking calls must not be made from inside them.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
)

var (
	ErrNotJoined = errors.New("not joined to a room")
	ErrRejected  = errors.New("join rejected")
	ErrClosed    = errors.New("client closed")
	// ErrRequestFailed is returned when the server answers a request with Error.
	ErrRequestFailed = errors.New("request failed")
	// ErrNotFound is returned when a join identifier does not resolve.
	ErrNotFound = domain.ErrNotFound
)

type State int

const (
	NotJoined State = iota
	Joining
	Joined
)

func (s State) String() string {
	switch s {
	case NotJoined:
		return "not_joined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type options struct {
	logger    zerolog.Logger
	peerUUID  domain.PeerID
	inboxSize int
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPeerUUID fixes the local peer id; by default a random uuid is used.
func WithPeerUUID(id domain.PeerID) Option {
	return func(o *options) { o.peerUUID = id }
}

func WithInboxSize(n int) Option {
	return func(o *options) { o.inboxSize = n }
}

type Client struct {
	conn   mux.Conn
	router *mux.Router
	logger zerolog.Logger
	inbox  chan mux.Message
	me     *LocalPeer

	OnJoinedRoom   Event[domain.RoomInfo]
	OnLeftRoom     Event[domain.RoomInfo]
	OnJoinRejected Event[protocol.RejectedArgs]
	OnRoomUpdated  Event[domain.RoomInfo]
	OnPeerAdded    Event[domain.PeerInfo]
	OnPeerUpdated  Event[domain.PeerInfo]
	OnPeerRemoved  Event[domain.PeerInfo]

	// reqMu keeps request order on the wire equal to waiter order.
	reqMu sync.Mutex

	mu     sync.RWMutex
	state  State
	room   domain.RoomInfo
	peers  map[domain.PeerID]domain.PeerInfo
	order  []domain.PeerID
	joins  pending[domain.RoomInfo]
	pings  pending[string]
	finds  pending[protocol.RoomsResponseArgs]
	closed bool
	done   chan struct{}
}

// New wraps an established connection. Nothing is read until Run.
func New(conn mux.Conn, opts ...Option) *Client {
	o := options{
		logger:    log.Logger,
		peerUUID:  uuid.NewString(),
		inboxSize: 256,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{
		conn:   conn,
		router: mux.NewRouter(),
		logger: o.logger.With().Str("module", "client").Str("peer", o.peerUUID).Logger(),
		inbox:  make(chan mux.Message, max(o.inboxSize, 1)),
		peers:  make(map[domain.PeerID]domain.PeerInfo),
		done:   make(chan struct{}),
	}
	c.me = newLocalPeer(c, o.peerUUID, mux.NewNetworkID())
	c.router.Register(protocol.DirectoryObject, protocol.DirectoryComponent, mux.HandlerFunc(c.handleDirectory))
	return c
}

// Run reads and processes messages until the connection closes or ctx
// ends. Pending requests then fail with ErrClosed and the client leaves its
// room locally, firing OnPeerRemoved and OnLeftRoom.
func (c *Client) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(c.inbox)
		for {
			m, err := c.conn.ReadMessage()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return fmt.Errorf("read: %w", err)
			}
			select {
			case c.inbox <- m:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for m := range c.inbox {
			if !c.router.Dispatch(m) {
				c.logger.Debug().Stringer("object", m.Object).Uint16("component", uint16(m.Component)).Msg("unrouted message dropped")
			}
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		_ = c.conn.Close()
		return nil
	})

	err := g.Wait()
	c.shutdown()
	return err
}

// Close tears the connection down; Run returns soon after.
func (c *Client) Close() error {
	return c.conn.Close()
}

// shutdown runs once the processing goroutine is gone. The cache is dropped
// the way a leave drops it, so nobody is left looking at a frozen room.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)

	prev := c.room
	removed := make([]domain.PeerInfo, 0, len(c.order))
	for _, id := range c.order {
		removed = append(removed, c.peers[id])
	}
	c.room = domain.RoomInfo{}
	c.peers = make(map[domain.PeerID]domain.PeerInfo)
	c.order = nil
	c.state = NotJoined
	c.mu.Unlock()

	for _, p := range removed {
		c.OnPeerRemoved.emit(p)
	}
	if !prev.IsZero() {
		c.logger.Info().Str("room", prev.UUID).Msg("connection closed, left room")
		c.OnLeftRoom.emit(prev)
	}
}

// Router routes application messages. The directory channel is taken.
func (c *Client) Router() *mux.Router { return c.router }

// Send writes an application message on the shared connection.
func (c *Client) Send(m mux.Message) error {
	if protocol.IsDirectory(m) {
		return fmt.Errorf("send: %w: reserved channel", protocol.ErrMalformedMessage)
	}
	return c.conn.WriteMessage(m)
}

func (c *Client) Me() *LocalPeer { return c.me }

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Room returns the current room, or the zero RoomInfo.
func (c *Client) Room() domain.RoomInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room.Clone()
}

func (c *Client) GetRoomProperty(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room.Properties.Get(key)
}

// GetPeer looks up a remote peer of the current room.
func (c *Client) GetPeer(id domain.PeerID) (domain.PeerInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[id]
	if !ok {
		return domain.PeerInfo{}, false
	}
	return p.Clone(), true
}

// Peers returns the remote peers in the order they became known.
func (c *Client) Peers() []domain.PeerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.PeerInfo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.peers[id].Clone())
	}
	return out
}

// settledLocked is the state once no answer is outstanding for the
// current room.
func (c *Client) settledLocked() State {
	switch {
	case c.joins.len() > 0:
		return Joining
	case c.room.IsZero():
		return NotJoined
	default:
		return Joined
	}
}
