// Package protocol defines the directory messages exchanged between the
// room server and its clients on the reserved multiplexer channel.
package protocol

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dkeye/Rooms/internal/mux"
)

// The reserved channel used by the directory on both ends.
const (
	DirectoryObject    mux.NetworkID   = 1
	DirectoryComponent mux.ComponentID = 1
)

const (
	TypeJoin                 = "Join"
	TypeSetRoom              = "SetRoom"
	TypeRejected             = "Rejected"
	TypeUpdateRoom           = "UpdateRoom"
	TypeUpdatePeer           = "UpdatePeer"
	TypePeerRemoved          = "PeerRemoved"
	TypeUpdateRoomProperties = "UpdateRoomProperties"
	TypeUpdatePeerProperties = "UpdatePeerProperties"
	TypePing                 = "Ping"
	TypePingResponse         = "PingResponse"
	TypeRequestRooms         = "RequestRooms"
	TypeRoomsResponse        = "RoomsResponse"
	TypeError                = "Error"
)

var ErrMalformedMessage = errors.New("malformed message")

// Envelope is the tagged record carried in every directory frame.
type Envelope struct {
	Type string          `json:"type"`
	Args json.RawMessage `json:"args,omitempty"`
}

func Encode(typ string, args any) ([]byte, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Args: raw})
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return env, nil
}

// Bind unmarshals the envelope arguments into v.
func (e Envelope) Bind(v any) error {
	if len(e.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Args, v); err != nil {
		return fmt.Errorf("%w: %s args: %v", ErrMalformedMessage, e.Type, err)
	}
	return nil
}

// NewFrame encodes a directory message onto the reserved channel.
func NewFrame(typ string, args any) (mux.Message, error) {
	payload, err := Encode(typ, args)
	if err != nil {
		return mux.Message{}, err
	}
	return mux.Message{Object: DirectoryObject, Component: DirectoryComponent, Payload: payload}, nil
}

// IsDirectory reports whether m travels on the reserved channel.
func IsDirectory(m mux.Message) bool {
	return m.Object == DirectoryObject && m.Component == DirectoryComponent
}
