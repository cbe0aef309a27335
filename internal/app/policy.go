package app

import "github.com/dkeye/Rooms/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy disconnects members whose send queue is full. A dropped
// directory frame would leave the member's cache diverged; after reconnecting
// it gets a fresh snapshot.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	return KickMember
}
