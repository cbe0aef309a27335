package domain

import "github.com/dkeye/Rooms/internal/mux"

type PeerID = string

// PeerInfo is one participant's identity and metadata within a room.
type PeerInfo struct {
	UUID PeerID `json:"uuid"`
	// Endpoint is the peer's session object on the multiplexer.
	Endpoint   mux.NetworkID `json:"networkId"`
	Properties Properties    `json:"properties,omitempty"`
}

func (p PeerInfo) Clone() PeerInfo {
	p.Properties = p.Properties.Clone()
	return p
}
