package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStampsAndOrders(t *testing.T) {
	var m Memory
	m.Record(context.Background(), Event{Type: RoomCreated, Room: "r"})
	m.Record(context.Background(), Event{Type: PeerJoined, Room: "r", Peer: "p", Timestamp: 42})

	assert.Equal(t, []EventType{RoomCreated, PeerJoined}, m.Types())
	events := m.Events()
	require.Len(t, events, 2)
	assert.NotZero(t, events[0].Timestamp)
	assert.Equal(t, int64(42), events[1].Timestamp)
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
