package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

// Room owns one room's membership. Insertion order of peerIDs decides who
// inherits host status when the current host disconnects.
type Room struct {
	name   domain.RoomName
	router media.Router

	mu           sync.Mutex
	peerIDs      []domain.PeerID
	participants []domain.Participant
}

func newRoom(name domain.RoomName, router media.Router) *Room {
	return &Room{name: name, router: router}
}

func (r *Room) Name() domain.RoomName { return r.name }
func (r *Room) Router() media.Router  { return r.router }

// AddPeer appends the peer to the room. The first peer to join becomes
// host. Returns whether the peer is host and the roster after the join.
func (r *Room) AddPeer(peer *domain.Peer) (isHost bool, roster []domain.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	isHost = len(r.peerIDs) == 0
	peer.SetHost(isHost)
	r.peerIDs = append(r.peerIDs, peer.ID)
	r.participants = append(r.participants, peer.Participant())
	log.Info().
		Str("module", "app.room").
		Str("room", string(r.name)).
		Str("peer", string(peer.ID)).
		Bool("host", isHost).
		Msg("peer joined")
	return isHost, r.snapshotLocked()
}

// RemovePeer drops the peer from the room. If the departing peer was host,
// the next peer in join order is promoted and returned.
func (r *Room) RemovePeer(id domain.PeerID) (removed bool, promoted *domain.Participant, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasHost := false
	for i, pid := range r.peerIDs {
		if pid == id {
			r.peerIDs = append(r.peerIDs[:i], r.peerIDs[i+1:]...)
			removed = true
			break
		}
	}
	for i, p := range r.participants {
		if p.PeerID == id {
			wasHost = p.IsHost
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}
	if !removed {
		return false, nil, len(r.peerIDs) == 0
	}

	if wasHost && len(r.peerIDs) > 0 {
		next := r.peerIDs[0]
		for i := range r.participants {
			if r.participants[i].PeerID == next {
				r.participants[i].IsHost = true
				p := r.participants[i]
				promoted = &p
				break
			}
		}
	}
	log.Info().
		Str("module", "app.room").
		Str("room", string(r.name)).
		Str("peer", string(id)).
		Bool("was_host", wasHost).
		Msg("peer left")
	return removed, promoted, len(r.peerIDs) == 0
}

// Participants is a read-only roster snapshot.
func (r *Room) Participants() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) PeerIDs() []domain.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PeerID, len(r.peerIDs))
	copy(out, r.peerIDs)
	return out
}

func (r *Room) PeerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peerIDs)
}

func (r *Room) snapshotLocked() []domain.Participant {
	out := make([]domain.Participant, len(r.participants))
	copy(out, r.participants)
	return out
}
