package app

import (
	"context"
	"sync"

	"github.com/jiyeyuran/mediasoup-go"
	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/core"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

// TransportRecord tracks one transport allocation. IsReceive distinguishes a
// peer's outbound transport from its inbound ones (one per consumed
// producer).
type TransportRecord struct {
	PeerID    domain.PeerID
	RoomName  domain.RoomName
	Transport media.Transport
	IsReceive bool
}

type ProducerRecord struct {
	PeerID   domain.PeerID
	RoomName domain.RoomName
	Producer media.Producer
	AppData  mediasoup.H
}

type ConsumerRecord struct {
	PeerID   domain.PeerID
	RoomName domain.RoomName
	Consumer media.Consumer
	AppData  mediasoup.H
}

type peerEntry struct {
	session core.PeerSession
	cancel  context.CancelFunc
}

// Registry is the authoritative in-memory map of rooms, peers and media
// bookkeeping. Its mutex guards only the maps; each Room carries its own
// lock for membership mutation, so no single lock spans all rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*Room
	peers map[domain.PeerID]*peerEntry

	transports map[string]*TransportRecord
	producers  map[string]*ProducerRecord
	consumers  map[string]*ConsumerRecord

	// producer ids in creation order, so discovery lists are stable
	producerOrder []string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:      make(map[domain.RoomName]*Room),
		peers:      make(map[domain.PeerID]*peerEntry),
		transports: make(map[string]*TransportRecord),
		producers:  make(map[string]*ProducerRecord),
		consumers:  make(map[string]*ConsumerRecord),
	}
}

// BindSignal registers a freshly connected peer's session before it joins
// any room.
func (r *Registry) BindSignal(id domain.PeerID, sess core.PeerSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[id] = &peerEntry{session: sess, cancel: cancel}
	log.Info().Str("module", "app.registry").Str("peer", string(id)).Msg("bound signal")
}

func (r *Registry) GetSession(id domain.PeerID) (core.PeerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.peers[id]; ok {
		return e.session, true
	}
	return nil, false
}

func (r *Registry) Unbind(id domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
	log.Info().Str("module", "app.registry").Str("peer", string(id)).Msg("unbound peer")
}

// Cancel tears down the peer's connection context, which unwinds its pumps.
func (r *Registry) Cancel(id domain.PeerID) bool {
	r.mu.RLock()
	e, ok := r.peers[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	return true
}

// GetOrCreateRoom returns the room, creating it and its routing context on
// first join. The router factory runs outside the registry lock so an
// in-flight engine call never blocks unrelated rooms; a lost creation race
// closes the extra router.
func (r *Registry) GetOrCreateRoom(name domain.RoomName, factory func() (media.Router, error)) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[name]
	r.mu.RUnlock()
	if ok {
		return room, nil
	}

	router, err := factory()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if room, ok = r.rooms[name]; ok {
		r.mu.Unlock()
		router.Close()
		return room, nil
	}
	room = newRoom(name, router)
	r.rooms[name] = room
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("room", string(name)).Msg("room created")
	return room, nil
}

func (r *Registry) GetRoom(name domain.RoomName) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	return room, ok
}

// RemoveRoom drops the room from live memory and closes its routing
// context so short-lived rooms do not leak engine resources.
func (r *Registry) RemoveRoom(name domain.RoomName) {
	r.mu.Lock()
	room, ok := r.rooms[name]
	delete(r.rooms, name)
	r.mu.Unlock()
	if !ok {
		return
	}
	if router := room.Router(); router != nil {
		router.Close()
	}
	log.Info().Str("module", "app.registry").Str("room", string(name)).Msg("room removed")
}

func (r *Registry) AddTransport(id string, rec *TransportRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[id] = rec
	if e, ok := r.peers[rec.PeerID]; ok {
		meta := e.session.Meta()
		meta.TransportIDs = append(meta.TransportIDs, id)
	}
}

func (r *Registry) GetTransport(id string) (*TransportRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.transports[id]
	return rec, ok
}

func (r *Registry) RemoveTransport(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.transports, id)
}

// SendTransport returns the peer's send-direction transport record.
func (r *Registry) SendTransport(id string) (*TransportRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.transports[id]
	if !ok || rec.IsReceive {
		return nil, false
	}
	return rec, true
}

func (r *Registry) AddProducer(id string, rec *ProducerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[id] = rec
	r.producerOrder = append(r.producerOrder, id)
	if e, ok := r.peers[rec.PeerID]; ok {
		meta := e.session.Meta()
		meta.ProducerIDs = append(meta.ProducerIDs, id)
	}
}

func (r *Registry) GetProducer(id string) (*ProducerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.producers[id]
	return rec, ok
}

func (r *Registry) RemoveProducer(id string) (*ProducerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.producers[id]
	if !ok {
		return nil, false
	}
	delete(r.producers, id)
	for i, pid := range r.producerOrder {
		if pid == id {
			r.producerOrder = append(r.producerOrder[:i], r.producerOrder[i+1:]...)
			break
		}
	}
	return rec, true
}

// ProducersInRoom lists producers in a room excluding the given peer's own,
// in creation order.
func (r *Registry) ProducersInRoom(room domain.RoomName, exclude domain.PeerID) []*ProducerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ProducerRecord, 0, len(r.producerOrder))
	for _, id := range r.producerOrder {
		rec := r.producers[id]
		if rec.RoomName != room || rec.PeerID == exclude {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (r *Registry) AddConsumer(id string, rec *ConsumerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers[id] = rec
	if e, ok := r.peers[rec.PeerID]; ok {
		meta := e.session.Meta()
		meta.ConsumerIDs = append(meta.ConsumerIDs, id)
	}
}

func (r *Registry) GetConsumer(id string) (*ConsumerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.consumers[id]
	return rec, ok
}

func (r *Registry) RemoveConsumer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.consumers, id)
}

// PeerRecords snapshots every media record owned by a peer, for disconnect
// cleanup.
func (r *Registry) PeerRecords(id domain.PeerID) (transports []*TransportRecord, producers []*ProducerRecord, consumers []*ConsumerRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[id]
	if !ok {
		return nil, nil, nil
	}
	meta := e.session.Meta()
	for _, tid := range meta.TransportIDs {
		if rec, ok := r.transports[tid]; ok {
			transports = append(transports, rec)
		}
	}
	for _, pid := range meta.ProducerIDs {
		if rec, ok := r.producers[pid]; ok {
			producers = append(producers, rec)
		}
	}
	for _, cid := range meta.ConsumerIDs {
		if rec, ok := r.consumers[cid]; ok {
			consumers = append(consumers, rec)
		}
	}
	return transports, producers, consumers
}
