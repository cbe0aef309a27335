package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
)

var errFull = errors.New("full")

// fakeSignal records frames instead of writing them to a socket.
type fakeSignal struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
}

func (f *fakeSignal) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return errFull
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {}

// drain decodes and forgets every recorded directory message.
func (f *fakeSignal) drain(t *testing.T) []protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	frames := f.frames
	f.frames = nil
	f.mu.Unlock()

	out := make([]protocol.Envelope, 0, len(frames))
	for _, fr := range frames {
		m, err := mux.Decode(fr)
		require.NoError(t, err)
		env, err := protocol.Decode(m.Payload)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func types(envs []protocol.Envelope) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Type)
	}
	return out
}

type testMember struct {
	session MemberSession
	signal  *fakeSignal
	peer    domain.PeerInfo
}

func newTestMember(sid, peerID string) *testMember {
	sig := &fakeSignal{}
	return &testMember{
		session: NewMemberSession(SessionID(sid), sig),
		signal:  sig,
		peer:    domain.PeerInfo{UUID: peerID},
	}
}

func bind[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, env.Bind(&v))
	return v
}
