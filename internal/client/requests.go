package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/protocol"
)

type reply[T any] struct {
	val T
	err error
}

// pending is a FIFO of requests awaiting their answer. The server answers
// one connection's requests in order, so the head is always the match.
type pending[T any] struct {
	q []chan reply[T]
}

func (p *pending[T]) push() chan reply[T] {
	ch := make(chan reply[T], 1)
	p.q = append(p.q, ch)
	return ch
}

func (p *pending[T]) pop() (chan reply[T], bool) {
	if len(p.q) == 0 {
		return nil, false
	}
	ch := p.q[0]
	p.q = p.q[1:]
	return ch, true
}

func (p *pending[T]) len() int { return len(p.q) }

func resolve[T any](ch chan reply[T], ok bool, v T, err error) {
	if ok {
		ch <- reply[T]{val: v, err: err}
	}
}

// request sends one directory message and waits for the answer matched by
// q. args builds the message and prepare updates the state; both run in the
// same locked section, so nothing observes the new state before the message
// is built from it.
func request[T any](ctx context.Context, c *Client, q *pending[T], typ string, args func() any, prepare func()) (T, error) {
	var zero T

	c.reqMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.reqMu.Unlock()
		return zero, ErrClosed
	}
	frame, err := protocol.NewFrame(typ, args())
	if err != nil {
		c.mu.Unlock()
		c.reqMu.Unlock()
		return zero, err
	}
	ch := q.push()
	if prepare != nil {
		prepare()
	}
	c.mu.Unlock()
	err = c.conn.WriteMessage(frame)
	c.reqMu.Unlock()
	if err != nil {
		return zero, fmt.Errorf("send %s: %w", typ, err)
	}

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.done:
		return zero, ErrClosed
	}
}

// notify sends a directory message that has no answer.
func (c *Client) notify(typ string, args any) error {
	frame, err := protocol.NewFrame(typ, args)
	if err != nil {
		return err
	}
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if err := c.conn.WriteMessage(frame); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// Join asks to enter the room args names and blocks until the snapshot or
// the rejection arrives. The local peer is filled in from Me. An empty name
// is a leave request.
func (c *Client) Join(ctx context.Context, args protocol.JoinArgs) (domain.RoomInfo, error) {
	leave := args.IsLeave()
	build := func() any {
		args.Peer = c.me.info()
		return args
	}
	return request(ctx, c, &c.joins, protocol.TypeJoin, build, func() {
		if !leave {
			c.state = Joining
		}
	})
}

func (c *Client) JoinByUUID(ctx context.Context, id domain.RoomID) (domain.RoomInfo, error) {
	return c.Join(ctx, protocol.JoinArgs{Identifier: id, Kind: protocol.KindUUID})
}

// JoinByName always creates a new room called name.
func (c *Client) JoinByName(ctx context.Context, name string, publish bool) (domain.RoomInfo, error) {
	return c.Join(ctx, protocol.JoinArgs{Identifier: name, Kind: protocol.KindName, Publish: publish})
}

func (c *Client) JoinByCode(ctx context.Context, code string) (domain.RoomInfo, error) {
	return c.Join(ctx, protocol.JoinArgs{Identifier: code, Kind: protocol.KindJoinCode})
}

func (c *Client) Leave(ctx context.Context) error {
	_, err := c.Join(ctx, protocol.JoinArgs{Kind: protocol.KindName})
	return err
}

type PingResult struct {
	SessionID string
	RTT       time.Duration
}

// Ping works with or without a room.
func (c *Client) Ping(ctx context.Context) (PingResult, error) {
	start := time.Now()
	sid, err := request(ctx, c, &c.pings, protocol.TypePing, func() any { return protocol.PingArgs{} }, nil)
	if err != nil {
		return PingResult{}, err
	}
	return PingResult{SessionID: sid, RTT: time.Since(start)}, nil
}

// DiscoverRooms lists published rooms, narrowed to joinCode when it is set.
func (c *Client) DiscoverRooms(ctx context.Context, joinCode string) ([]domain.RoomInfo, error) {
	resp, err := request(ctx, c, &c.finds, protocol.TypeRequestRooms, func() any {
		return protocol.RequestRoomsArgs{JoinCode: joinCode}
	}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// SetRoomProperty asks the server to change a room property. The cache is
// updated when the change comes back; an empty value deletes the key.
func (c *Client) SetRoomProperty(key, value string) error {
	return c.SetRoomProperties(map[string]string{key: value})
}

func (c *Client) SetRoomProperties(update map[string]string) error {
	c.mu.RLock()
	state, room := c.state, c.room.UUID
	c.mu.RUnlock()
	if state != Joined {
		return ErrNotJoined
	}
	return c.notify(protocol.TypeUpdateRoomProperties, protocol.UpdateRoomPropertiesArgs{Room: room, Properties: update})
}
