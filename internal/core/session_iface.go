package core

import "github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"

// PeerSession binds a peer's meta-data to its signaling endpoint.
// This is what the registry stores and the dispatcher fans out to.
type PeerSession interface {
	Meta() *domain.Peer
	Signal() SignalConnection
}

type peerSession struct {
	meta *domain.Peer
	conn SignalConnection
}

func NewPeerSession(meta *domain.Peer, conn SignalConnection) PeerSession {
	return &peerSession{meta: meta, conn: conn}
}

func (s *peerSession) Meta() *domain.Peer       { return s.meta }
func (s *peerSession) Signal() SignalConnection { return s.conn }
