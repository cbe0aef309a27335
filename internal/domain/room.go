// Package domain contains the directory entities without transport logic.
package domain

import "errors"

var (
	ErrNotFound   = errors.New("room not found")
	ErrNoSuchRoom = errors.New("no such room")
	ErrNoSuchPeer = errors.New("no such peer")
)

type RoomID = string

// RoomInfo is the replicated description of a room.
type RoomInfo struct {
	UUID       RoomID     `json:"uuid"`
	Name       string     `json:"name"`
	JoinCode   string     `json:"joincode"`
	Publish    bool       `json:"publish"`
	Properties Properties `json:"properties,omitempty"`
}

// IsZero reports the "no room" value sent when a peer leaves.
func (r RoomInfo) IsZero() bool { return r.UUID == "" }

func (r RoomInfo) Clone() RoomInfo {
	r.Properties = r.Properties.Clone()
	return r
}
