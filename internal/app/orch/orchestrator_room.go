package orch

import (
	"github.com/jiyeyuran/mediasoup-go"
	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

// JoinResult is what a newcomer gets back: a capabilities blob for its local
// device plus a roster snapshot. Incumbents get a participant-joined delta
// instead.
type JoinResult struct {
	RtpCapabilities mediasoup.RtpCapabilities `json:"rtpCapabilities"`
	IsHost          bool                      `json:"isHost"`
	Participants    []domain.Participant      `json:"participants"`
	RoomName        domain.RoomName           `json:"roomName"`
}

// JoinRoom registers the peer into the room, creating the room and its
// routing context on first join. The first peer becomes host.
func (o *Orchestrator) JoinRoom(id domain.PeerID, room domain.RoomName, displayName, email string) (*JoinResult, error) {
	sess, ok := o.Registry.GetSession(id)
	if !ok {
		return nil, ErrNoSession
	}
	meta := sess.Meta()
	if !meta.EnterRoom(room, displayName, email) {
		return nil, ErrAlreadyInRoom
	}

	rm, err := o.Registry.GetOrCreateRoom(room, func() (media.Router, error) {
		return o.Engine.CreateRouter()
	})
	if err != nil {
		meta.ExitRoom()
		return nil, err
	}

	isHost, roster := rm.AddPeer(meta)

	o.Dispatch.BroadcastExcept(room, id, app.EvtParticipantJoined, meta.Participant())

	return &JoinResult{
		RtpCapabilities: rm.Router().RtpCapabilities(),
		IsHost:          isHost,
		Participants:    roster,
		RoomName:        room,
	}, nil
}

// Participants returns a roster snapshot, callable at any time.
func (o *Orchestrator) Participants(room domain.RoomName) ([]domain.Participant, error) {
	rm, ok := o.Registry.GetRoom(room)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm.Participants(), nil
}

// Disconnect tears a peer down: media first, then membership. A disconnect
// for a peer we never registered is a no-op; the registry stays
// self-consistent.
func (o *Orchestrator) Disconnect(id domain.PeerID) {
	sess, ok := o.Registry.GetSession(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("peer", string(id)).Msg("disconnect for unknown peer")
		return
	}
	o.cleanupMedia(id)

	if room := sess.Meta().Room(); room != "" {
		o.leaveRoom(id, room)
	}
	o.Registry.Unbind(id)
}

func (o *Orchestrator) leaveRoom(id domain.PeerID, room domain.RoomName) {
	rm, ok := o.Registry.GetRoom(room)
	if !ok {
		return
	}
	removed, promoted, empty := rm.RemovePeer(id)
	if !removed {
		return
	}

	o.Dispatch.Broadcast(room, app.EvtParticipantLeft, participantLeftPayload{PeerID: id})
	if promoted != nil {
		if sess, ok := o.Registry.GetSession(promoted.PeerID); ok {
			sess.Meta().SetHost(true)
		}
		o.Dispatch.Send(promoted.PeerID, app.EvtHostChanged, hostChangedPayload{IsHost: true})
		log.Info().
			Str("module", "orch").
			Str("room", string(room)).
			Str("peer", string(promoted.PeerID)).
			Msg("host promoted")
	}

	if empty {
		// Quiz state must not outlive its room, and must not wait for its
		// natural timer to fire.
		if o.Quiz != nil {
			o.Quiz.ForceEnd(room)
		}
		o.Registry.RemoveRoom(room)
	}
}

type participantLeftPayload struct {
	PeerID domain.PeerID `json:"socketId"`
}

type hostChangedPayload struct {
	IsHost bool `json:"isHost"`
}
