package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// roomManager indexes live rooms by uuid and by join code.
// Lock order is manager, then room.
type roomManager struct {
	mu     sync.Mutex
	byUUID map[domain.RoomID]*roomImpl
	byCode map[string]*roomImpl
	codes  *JoinCodeGenerator
}

func NewRoomManager(codes *JoinCodeGenerator) RoomManager {
	if codes == nil {
		codes = NewJoinCodeGenerator(DefaultJoinCodeLength)
	}
	return &roomManager{
		byUUID: make(map[domain.RoomID]*roomImpl),
		byCode: make(map[string]*roomImpl),
		codes:  codes,
	}
}

func (m *roomManager) Resolve(args protocol.JoinArgs) (RoomService, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch args.Kind {
	case protocol.KindJoinCode:
		if r, ok := m.byCode[NormalizeJoinCode(args.Identifier)]; ok {
			return r, false, nil
		}
		return nil, false, fmt.Errorf("join code %q: %w", args.Identifier, domain.ErrNotFound)
	case protocol.KindUUID:
		if r, ok := m.byUUID[args.Identifier]; ok {
			return r, false, nil
		}
		return m.createLocked(args.Identifier, args.Name, args.Publish)
	case protocol.KindName:
		// A name never resolves to an existing room.
		return m.createLocked(uuid.NewString(), args.Identifier, args.Publish)
	default:
		return nil, false, fmt.Errorf("%w: join kind %q", protocol.ErrMalformedMessage, args.Kind)
	}
}

func (m *roomManager) createLocked(id domain.RoomID, name string, publish bool) (RoomService, bool, error) {
	code, err := m.codes.Next(func(c string) bool {
		_, taken := m.byCode[c]
		return taken
	})
	if err != nil {
		return nil, false, fmt.Errorf("create room %s: %w", id, err)
	}
	r := newRoom(domain.RoomInfo{
		UUID:     id,
		Name:     name,
		JoinCode: code,
		Publish:  publish,
	})
	m.byUUID[id] = r
	m.byCode[code] = r
	log.Info().Str("module", "core.rooms").Str("room", id).Str("name", name).Str("joincode", code).Bool("publish", publish).Msg("room created")
	return r, true, nil
}

func (m *roomManager) Get(id domain.RoomID) (RoomService, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byUUID[id]
	if !ok {
		return nil, false
	}
	return r, true
}

func (m *roomManager) RemoveIfEmpty(room RoomService) bool {
	r, ok := room.(*roomImpl)
	if !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// uuid and join code never change after creation.
	id, code := r.info.UUID, r.info.JoinCode
	if m.byUUID[id] != r {
		return false
	}
	if !r.tryClose() {
		return false
	}
	delete(m.byUUID, id)
	delete(m.byCode, code)
	log.Info().Str("module", "core.rooms").Str("room", id).Str("joincode", code).Msg("room destroyed")
	return true
}

// Published lists discoverable rooms sorted by name, narrowed to the room
// with the given join code when one is supplied.
func (m *roomManager) Published(joinCode string) []domain.RoomInfo {
	joinCode = NormalizeJoinCode(joinCode)

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RoomInfo, 0)
	for _, r := range m.byUUID {
		info := r.Info()
		if !info.Publish {
			continue
		}
		if joinCode != "" && info.JoinCode != joinCode {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}

// List returns every room, published or not, sorted by uuid.
func (m *roomManager) List() []domain.RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RoomInfo, 0, len(m.byUUID))
	for _, r := range m.byUUID {
		out = append(out, r.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

func (m *roomManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUUID)
}
