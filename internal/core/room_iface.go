package core

import (
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/protocol"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

func (p *PublishResult) merge(o PublishResult) {
	p.SendTo += o.SendTo
	p.Dropped = append(p.Dropped, o.Dropped...)
}

type JoinResult struct {
	PublishResult
	// Rejoined is set when the session already was a member; the roster is unchanged.
	Rejoined bool
	// Evicted lists sessions whose member carried the same peer uuid and was replaced.
	Evicted []MemberSession
}

type LeaveResult struct {
	PublishResult
	Peer  domain.PeerInfo
	Found bool
	Empty bool
}

type UpdateResult struct {
	PublishResult
	Changed []string
}

// RoomService is the core-facing API of a room. Every method runs under the
// room's own lock, so all members observe mutations in one order.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	Info() domain.RoomInfo
	Peers() []domain.PeerInfo
	MemberCount() int

	Join(ms MemberSession, peer domain.PeerInfo) (JoinResult, error)
	Leave(sid SessionID) LeaveResult
	UpdateProperties(sid SessionID, update map[string]string) (UpdateResult, error)
	UpdatePeer(sid SessionID, update map[string]string) (UpdateResult, error)
	Forward(from SessionID, data Frame) (PublishResult, error)
}

type RoomManager interface {
	// Resolve finds or creates the room a join request names.
	Resolve(args protocol.JoinArgs) (room RoomService, created bool, err error)
	Get(id domain.RoomID) (RoomService, bool)
	// RemoveIfEmpty tears the room down when nobody is left in it.
	RemoveIfEmpty(room RoomService) bool
	Published(joinCode string) []domain.RoomInfo
	List() []domain.RoomInfo
	Len() int
}
