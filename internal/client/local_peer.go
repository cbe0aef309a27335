package client

import (
	"sync"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/dkeye/Rooms/internal/mux"
	"github.com/dkeye/Rooms/internal/protocol"
)

// LocalPeer is this client's own peer. Its properties are authoritative
// locally and never come back as notifications.
type LocalPeer struct {
	c        *Client
	uuid     domain.PeerID
	endpoint mux.NetworkID

	mu    sync.RWMutex
	props domain.Properties
}

func newLocalPeer(c *Client, id domain.PeerID, endpoint mux.NetworkID) *LocalPeer {
	return &LocalPeer{c: c, uuid: id, endpoint: endpoint}
}

func (p *LocalPeer) UUID() domain.PeerID { return p.uuid }

// Endpoint is the object id application data for this peer is addressed to.
func (p *LocalPeer) Endpoint() mux.NetworkID { return p.endpoint }

func (p *LocalPeer) GetProperty(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.props.Get(key)
}

func (p *LocalPeer) Properties() domain.Properties {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.props.Clone()
}

// SetProperty applies the change at once and relays it when the client is
// in, or entering, a room. Otherwise the value travels with the next Join.
// A Join snapshots the properties in the same locked section that moves the
// state to Joining, so a change is either in the snapshot or relayed.
func (p *LocalPeer) SetProperty(key, value string) error {
	p.mu.Lock()
	changed := p.props.Set(key, value)
	p.mu.Unlock()
	if !changed || p.c.State() == NotJoined {
		return nil
	}
	return p.c.notify(protocol.TypeUpdatePeerProperties, protocol.UpdatePeerPropertiesArgs{
		Properties: map[string]string{key: value},
	})
}

func (p *LocalPeer) info() domain.PeerInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.PeerInfo{UUID: p.uuid, Endpoint: p.endpoint, Properties: p.props.Clone()}
}
