// Package mux frames opaque payloads tagged with an (object, component) pair
// and routes them to exactly one registered handler.
package mux

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
)

// HeaderLen is the size of the object id plus the component id.
const HeaderLen = 10

var ErrShortFrame = errors.New("frame shorter than header")

// NetworkID addresses an object on the other side of a connection.
type NetworkID uint64

// ComponentID addresses a component within an object.
type ComponentID uint16

func (id NetworkID) String() string {
	return fmt.Sprintf("%08x-%08x", uint32(id>>32), uint32(id))
}

// NewNetworkID returns a random id above the reserved range.
func NewNetworkID() NetworkID {
	for {
		id := NetworkID(rand.Uint64())
		if id > reservedIDs {
			return id
		}
	}
}

// ids at or below this value are reserved for server-side services.
const reservedIDs = 1 << 16

type Message struct {
	Object    NetworkID
	Component ComponentID
	Payload   []byte
}

func (m Message) Encode() []byte {
	b := make([]byte, HeaderLen+len(m.Payload))
	binary.BigEndian.PutUint64(b[0:8], uint64(m.Object))
	binary.BigEndian.PutUint16(b[8:10], uint16(m.Component))
	copy(b[HeaderLen:], m.Payload)
	return b
}

// Decode parses a frame. The payload aliases b.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderLen {
		return Message{}, fmt.Errorf("decode %d bytes: %w", len(b), ErrShortFrame)
	}
	return Message{
		Object:    NetworkID(binary.BigEndian.Uint64(b[0:8])),
		Component: ComponentID(binary.BigEndian.Uint16(b[8:10])),
		Payload:   b[HeaderLen:],
	}, nil
}
