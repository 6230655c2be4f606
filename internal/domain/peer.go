// Package domain contains the entities shared across layers.
package domain

import "sync"

// PeerID identifies one live signaling connection. A reconnect is a new
// PeerID and a fresh join.
type PeerID string

// Peer tracks one connection's room membership and the media objects it
// owns. A peer belongs to exactly one room for its whole lifetime.
//
// Membership fields are written by other peers' goroutines too (host
// promotion runs on the departing peer's goroutine), so they live behind
// the peer's own mutex and are reached through the locked accessors.
type Peer struct {
	ID PeerID

	mu          sync.Mutex
	roomName    RoomName
	displayName string
	email       string
	isHost      bool

	// media object ids, guarded by the registry lock
	TransportIDs []string
	ProducerIDs  []string
	ConsumerIDs  []string
}

func NewPeer(id PeerID, room RoomName, displayName, email string) *Peer {
	return &Peer{
		ID:          id,
		roomName:    room,
		displayName: displayName,
		email:       email,
	}
}

// EnterRoom claims room membership exactly once. Returns false if the peer
// already belongs to a room, so concurrent joins cannot both win.
func (p *Peer) EnterRoom(room RoomName, displayName, email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.roomName != "" {
		return false
	}
	p.roomName = room
	p.displayName = displayName
	p.email = email
	return true
}

// ExitRoom reverts EnterRoom, for join paths that fail after claiming
// membership.
func (p *Peer) ExitRoom() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roomName = ""
	p.isHost = false
}

func (p *Peer) Room() RoomName {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomName
}

func (p *Peer) Host() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isHost
}

func (p *Peer) SetHost(host bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isHost = host
}

func (p *Peer) Participant() Participant {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Participant{
		PeerID:      p.ID,
		DisplayName: p.displayName,
		Email:       p.email,
		IsHost:      p.isHost,
	}
}
