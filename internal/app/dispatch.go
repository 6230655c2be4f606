package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

// Envelope is one signaling message on the wire, in either direction.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Dispatcher fans named events out to peers. Delivery failures
// (backpressure, closed socket) are logged, never propagated: per-peer
// failures must not affect the rest of the room.
type Dispatcher interface {
	Broadcast(room domain.RoomName, event string, payload any)
	BroadcastExcept(room domain.RoomName, except domain.PeerID, event string, payload any)
	Send(peer domain.PeerID, event string, payload any)
}

type registryDispatcher struct {
	reg *Registry
}

func NewDispatcher(reg *Registry) Dispatcher {
	return &registryDispatcher{reg: reg}
}

func (d *registryDispatcher) Broadcast(room domain.RoomName, event string, payload any) {
	d.fanOut(room, "", event, payload)
}

func (d *registryDispatcher) BroadcastExcept(room domain.RoomName, except domain.PeerID, event string, payload any) {
	d.fanOut(room, except, event, payload)
}

func (d *registryDispatcher) fanOut(room domain.RoomName, except domain.PeerID, event string, payload any) {
	rm, ok := d.reg.GetRoom(room)
	if !ok {
		return
	}
	frame, err := marshalEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Str("event", event).Msg("marshal event")
		return
	}
	for _, id := range rm.PeerIDs() {
		if id == except {
			continue
		}
		sess, ok := d.reg.GetSession(id)
		if !ok {
			continue
		}
		if err := sess.Signal().TrySend(frame); err != nil {
			log.Warn().
				Err(err).
				Str("module", "app.dispatch").
				Str("event", event).
				Str("peer", string(id)).
				Msg("dropped broadcast frame")
		}
	}
}

func (d *registryDispatcher) Send(peer domain.PeerID, event string, payload any) {
	sess, ok := d.reg.GetSession(peer)
	if !ok {
		log.Warn().Str("module", "app.dispatch").Str("event", event).Str("peer", string(peer)).Msg("send to unknown peer")
		return
	}
	frame, err := marshalEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Str("event", event).Msg("marshal event")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().
			Err(err).
			Str("module", "app.dispatch").
			Str("event", event).
			Str("peer", string(peer)).
			Msg("dropped frame")
	}
}

func marshalEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: event, Data: payload})
}
