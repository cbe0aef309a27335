package core

import (
	"maps"
	"sync"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/rs/zerolog/log"
)

type member struct {
	session MemberSession
	peer    domain.PeerInfo
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	mu      sync.Mutex
	info    domain.RoomInfo
	order   []SessionID
	members map[SessionID]*member
	closed  bool
}

func NewRoomService(info domain.RoomInfo) RoomService {
	return newRoom(info)
}

func newRoom(info domain.RoomInfo) *roomImpl {
	return &roomImpl{
		info:    info.Clone(),
		members: make(map[SessionID]*member),
	}
}

// ID is fixed at creation and needs no lock.
func (r *roomImpl) ID() domain.RoomID { return r.info.UUID }

func (r *roomImpl) Info() domain.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info.Clone()
}

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Peers returns the roster in join order.
func (r *roomImpl) Peers() []domain.PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *roomImpl) rosterLocked() []domain.PeerInfo {
	out := make([]domain.PeerInfo, 0, len(r.order))
	for _, sid := range r.order {
		out = append(out, r.members[sid].peer.Clone())
	}
	return out
}

func (r *roomImpl) Join(ms MemberSession, peer domain.PeerInfo) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, domain.ErrNoSuchRoom
	}

	sid := ms.ID()
	res := JoinResult{}

	if m, ok := r.members[sid]; ok {
		if m.peer.UUID == peer.UUID {
			res.Rejoined = true
			if m.peer.Endpoint != peer.Endpoint || !maps.Equal(m.peer.Properties, peer.Properties) {
				m.peer = peer.Clone()
				res.merge(r.broadcastLocked(sid, protocol.TypeUpdatePeer, protocol.UpdatePeerArgs{Peer: m.peer.Clone()}))
			}
			res.merge(r.sendSnapshotLocked(ms))
			log.Info().Str("module", "core.room").Str("room", r.info.UUID).Str("sid", string(sid)).Msg("member rejoined")
			return res, nil
		}
		// The session switched identity; the old peer leaves first.
		res.merge(r.removeLocked(sid))
	}

	for _, osid := range r.order {
		old := r.members[osid]
		if old.peer.UUID == peer.UUID {
			res.merge(r.removeLocked(osid))
			res.Evicted = append(res.Evicted, old.session)
			// The replaced session is told it is no longer in a room.
			if f, ok := encode(protocol.TypeSetRoom, protocol.SetRoomArgs{Peers: []domain.PeerInfo{}}); ok {
				r.sendLocked(old.session, f, &res.PublishResult)
			}
			log.Info().Str("module", "core.room").Str("room", r.info.UUID).Str("sid", string(osid)).Str("peer", peer.UUID).Msg("member replaced by new session")
			break
		}
	}

	m := &member{session: ms, peer: peer.Clone()}
	r.members[sid] = m
	r.order = append(r.order, sid)

	// The snapshot goes out before any delta that follows the join.
	res.merge(r.sendSnapshotLocked(ms))
	res.merge(r.broadcastLocked(sid, protocol.TypeUpdatePeer, protocol.UpdatePeerArgs{Peer: m.peer.Clone()}))

	log.Info().Str("module", "core.room").Str("room", r.info.UUID).Str("sid", string(sid)).Str("peer", peer.UUID).Int("members", len(r.members)).Msg("member added")
	return res, nil
}

func (r *roomImpl) Leave(sid SessionID) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sid]
	if !ok {
		return LeaveResult{}
	}
	res := LeaveResult{Peer: m.peer.Clone(), Found: true}
	res.merge(r.removeLocked(sid))
	res.Empty = len(r.members) == 0
	log.Info().Str("module", "core.room").Str("room", r.info.UUID).Str("sid", string(sid)).Int("members", len(r.members)).Msg("member removed")
	return res
}

// removeLocked drops sid from the roster and tells everyone else.
func (r *roomImpl) removeLocked(sid SessionID) PublishResult {
	m := r.members[sid]
	delete(r.members, sid)
	for i, s := range r.order {
		if s == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return r.broadcastLocked("", protocol.TypePeerRemoved, protocol.PeerRemovedArgs{UUID: m.peer.UUID})
}

func (r *roomImpl) UpdateProperties(sid SessionID, update map[string]string) (UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[sid]; !ok {
		return UpdateResult{}, domain.ErrNoSuchPeer
	}
	res := UpdateResult{Changed: r.info.Properties.Merge(update)}
	if len(res.Changed) == 0 {
		return res, nil
	}
	// The requester hears about its own change too, so every member applies
	// room properties in the same order.
	res.merge(r.broadcastLocked("", protocol.TypeUpdateRoom, protocol.UpdateRoomArgs{Room: r.info.Clone()}))
	return res, nil
}

func (r *roomImpl) UpdatePeer(sid SessionID, update map[string]string) (UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sid]
	if !ok {
		return UpdateResult{}, domain.ErrNoSuchPeer
	}
	res := UpdateResult{Changed: m.peer.Properties.Merge(update)}
	if len(res.Changed) == 0 {
		return res, nil
	}
	res.merge(r.broadcastLocked(sid, protocol.TypeUpdatePeer, protocol.UpdatePeerArgs{Peer: m.peer.Clone()}))
	return res, nil
}

func (r *roomImpl) Forward(from SessionID, data Frame) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[from]; !ok {
		return PublishResult{}, domain.ErrNoSuchPeer
	}
	res := PublishResult{}
	for _, sid := range r.order {
		if sid == from {
			continue
		}
		r.sendLocked(r.members[sid].session, data, &res)
	}
	return res, nil
}

// tryClose marks an empty room as torn down.
func (r *roomImpl) tryClose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) sendSnapshotLocked(ms MemberSession) PublishResult {
	res := PublishResult{}
	f, ok := encode(protocol.TypeSetRoom, protocol.SetRoomArgs{Room: r.info.Clone(), Peers: r.rosterLocked()})
	if ok {
		r.sendLocked(ms, f, &res)
	}
	return res
}

// broadcastLocked sends to every member except skip.
func (r *roomImpl) broadcastLocked(skip SessionID, typ string, args any) PublishResult {
	res := PublishResult{}
	f, ok := encode(typ, args)
	if !ok {
		return res
	}
	for _, sid := range r.order {
		if sid == skip {
			continue
		}
		r.sendLocked(r.members[sid].session, f, &res)
	}
	log.Debug().Str("module", "core.room").Str("room", r.info.UUID).Str("type", typ).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) sendLocked(ms MemberSession, f Frame, res *PublishResult) {
	if err := ms.Signal().TrySend(f); err != nil {
		res.Dropped = append(res.Dropped, ms)
		return
	}
	res.SendTo++
}

func encode(typ string, args any) (Frame, bool) {
	m, err := protocol.NewFrame(typ, args)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("type", typ).Msg("encode frame")
		return nil, false
	}
	return m.Encode(), true
}
