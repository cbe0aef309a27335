package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Rooms/internal/core"
)

func TestRoomRateLimiterWindow(t *testing.T) {
	rl := NewRoomRateLimiter(2, time.Second)
	clock := time.Unix(1000, 0)
	rl.now = func() time.Time { return clock }

	sid := core.SessionID("s-1")
	assert.True(t, rl.Allow(sid))
	assert.True(t, rl.Allow(sid))
	assert.False(t, rl.Allow(sid))
	assert.True(t, rl.Allow("s-2"), "limits are per session")

	clock = clock.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow(sid))

	rl.Forget(sid)
	assert.NotContains(t, rl.history, sid)
}

func TestRoomRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RoomRateLimiter
	assert.True(t, nilLimiter.Allow("s-1"))
	nilLimiter.Forget("s-1")

	rl := NewRoomRateLimiter(0, time.Second)
	for range 10 {
		assert.True(t, rl.Allow("s-1"))
	}
}
