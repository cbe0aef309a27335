package protocol

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dkeye/Rooms/internal/domain"
)

type JoinKind string

const (
	KindUUID     JoinKind = "uuid"
	KindName     JoinKind = "name"
	KindJoinCode JoinKind = "joincode"
)

// Rejection codes.
const (
	CodeNotFound    = "not_found"
	CodeMalformed   = "malformed"
	CodeRateLimited = "rate_limited"
	CodeUnavailable = "unavailable"
)

type JoinArgs struct {
	Identifier string          `json:"identifier"`
	Kind       JoinKind        `json:"kind" validate:"required,oneof=uuid name joincode"`
	Name       string          `json:"name,omitempty" validate:"max=256"`
	Publish    bool            `json:"publish"`
	Peer       domain.PeerInfo `json:"peer"`
}

// IsLeave reports the explicit "no room" request: an empty name.
func (a JoinArgs) IsLeave() bool {
	return a.Kind == KindName && a.Identifier == ""
}

var validate = validator.New()

func (a JoinArgs) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: join: %v", ErrMalformedMessage, err)
	}
	if a.Peer.UUID == "" {
		return fmt.Errorf("%w: join: missing peer uuid", ErrMalformedMessage)
	}
	if a.Identifier == "" && !a.IsLeave() {
		return fmt.Errorf("%w: join: empty %s", ErrMalformedMessage, a.Kind)
	}
	return nil
}

type SetRoomArgs struct {
	Room  domain.RoomInfo   `json:"room"`
	Peers []domain.PeerInfo `json:"peers"`
}

type RejectedArgs struct {
	Identifier string   `json:"identifier"`
	Kind       JoinKind `json:"kind"`
	Code       string   `json:"code"`
	Reason     string   `json:"reason"`
}

type UpdateRoomArgs struct {
	Room domain.RoomInfo `json:"room"`
}

type UpdatePeerArgs struct {
	Peer domain.PeerInfo `json:"peer"`
}

type PeerRemovedArgs struct {
	UUID domain.PeerID `json:"uuid"`
}

// UpdateRoomPropertiesArgs carries a property batch; an empty value deletes.
type UpdateRoomPropertiesArgs struct {
	Room       domain.RoomID     `json:"room" validate:"required"`
	Properties map[string]string `json:"properties" validate:"required"`
}

func (a UpdateRoomPropertiesArgs) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: update room properties: %v", ErrMalformedMessage, err)
	}
	return nil
}

type UpdatePeerPropertiesArgs struct {
	Properties map[string]string `json:"properties"`
}

type PingArgs struct{}

type PingResponseArgs struct {
	SessionID string `json:"sessionId"`
}

type RequestRoomsArgs struct {
	JoinCode string `json:"joincode,omitempty"`
}

type RoomsResponseArgs struct {
	Rooms    []domain.RoomInfo `json:"rooms"`
	JoinCode string            `json:"joincode,omitempty"`
}

type ErrorArgs struct {
	Request string `json:"request,omitempty"`
	Reason  string `json:"reason"`
}
