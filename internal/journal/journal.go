// Package journal records directory events for offline inspection.
package journal

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	RoomCreated           EventType = "room.created"
	RoomDestroyed         EventType = "room.destroyed"
	PeerJoined            EventType = "peer.joined"
	PeerLeft              EventType = "peer.left"
	RoomPropertiesChanged EventType = "room.properties"
	PeerPropertiesChanged EventType = "peer.properties"
	JoinRejected          EventType = "join.rejected"
)

type Event struct {
	Type      EventType `json:"type"`
	Room      string    `json:"room,omitempty"`
	Peer      string    `json:"peer,omitempty"`
	Session   string    `json:"session,omitempty"`
	Keys      []string  `json:"keys,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

type Journal interface {
	Record(ctx context.Context, ev Event)
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
func (Nop) Close() error                  { return nil }

// Memory keeps events in a slice.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Record(_ context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stamp(ev))
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types returns the recorded event types in order.
func (m *Memory) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

func stamp(ev Event) Event {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	return ev
}
