package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

var errBadPayload = errors.New("bad_payload")

func (ctl *SignalWSController) handleJoinRoom(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		RoomName string `json:"roomName"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomName == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad joinRoom payload")
		ctl.sendError(conn, "joinRoom", errBadPayload)
		return
	}

	res, err := ctl.Orch.JoinRoom(peerID, domain.RoomName(p.RoomName), p.Username, p.Email)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("peer", string(peerID)).Msg("joinRoom")
		ctl.sendError(conn, "joinRoom", err)
		return
	}
	log.Info().
		Str("module", "signal").
		Str("peer", string(peerID)).
		Str("room", p.RoomName).
		Bool("host", res.IsHost).
		Msg("joined room")
	ctl.sendEvent(conn, app.EvtRoomJoined, res)
}

func (ctl *SignalWSController) handleGetRtpCapabilities(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomName == "" {
		ctl.sendError(conn, "getRtpCapabilities", errBadPayload)
		return
	}
	caps, err := ctl.Orch.RoutingCapabilities(domain.RoomName(p.RoomName))
	if err != nil {
		ctl.sendError(conn, "getRtpCapabilities", err)
		return
	}
	ctl.sendEvent(conn, app.EvtRtpCapabilities, map[string]any{"rtpCapabilities": caps})
}

type chatMsg struct {
	Msg      string        `json:"msg"`
	SocketID domain.PeerID `json:"socketId"`
	Sender   string        `json:"sender"`
	Email    string        `json:"email"`
}

// handleSendMsg relays room-scoped chat. The fan-out includes the sender,
// matching what the client renders.
func (ctl *SignalWSController) handleSendMsg(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		Msg    string `json:"msg"`
		Sender string `json:"sender"`
		Email  string `json:"email"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "sendMsg", errBadPayload)
		return
	}
	sess, ok := ctl.Orch.Registry.GetSession(peerID)
	if !ok {
		return
	}
	room := sess.Meta().Room()
	if room == "" {
		return
	}
	ctl.Orch.Dispatch.Broadcast(room, app.EvtNewMsg, []chatMsg{{
		Msg:      p.Msg,
		SocketID: peerID,
		Sender:   p.Sender,
		Email:    p.Email,
	}})
}

// handleCameraState relays a mute/unmute UI change to the rest of the room.
func (ctl *SignalWSController) handleCameraState(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		UserID  string `json:"userId"`
		IsMuted bool   `json:"isMuted"`
		Media   string `json:"media"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "cameraStateChanged", errBadPayload)
		return
	}
	sess, ok := ctl.Orch.Registry.GetSession(peerID)
	if !ok {
		return
	}
	room := sess.Meta().Room()
	if room == "" {
		return
	}
	ctl.Orch.Dispatch.BroadcastExcept(room, peerID, app.EvtCameraState, p)
}
