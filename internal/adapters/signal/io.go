package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, peerID domain.PeerID, c *wsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("peer", string(peerID)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, peerID domain.PeerID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("peer", string(peerID)).Msg("readPump closing")
		ctl.Orch.Disconnect(peerID)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("peer", string(peerID)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(peerID, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(peerID domain.PeerID, c *wsSignalConn, data []byte) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "joinRoom":
		ctl.handleJoinRoom(peerID, c, env.Data)
	case "getRtpCapabilities":
		ctl.handleGetRtpCapabilities(peerID, c, env.Data)
	case "createWebRtcTransport":
		ctl.handleCreateTransport(peerID, c, env.Data)
	case "transport-connect":
		ctl.handleTransportConnect(peerID, c, env.Data)
	case "transport-recv-connect":
		ctl.handleTransportRecvConnect(peerID, c, env.Data)
	case "transport-produce":
		ctl.handleTransportProduce(peerID, c, env.Data)
	case "consume":
		ctl.handleConsume(peerID, c, env.Data)
	case "consumer-resume":
		ctl.handleConsumerResume(peerID, c, env.Data)
	case "getProducers":
		ctl.handleGetProducers(peerID, c)
	case "producer-close":
		ctl.handleProducerClose(peerID, c, env.Data)
	case "join-quiz":
		ctl.handleJoinQuiz(peerID, c, env.Data)
	case "quick-start":
		ctl.handleQuickStart(peerID, c)
	case "next-question":
		ctl.handleNextQuestion(peerID, c, env.Data)
	case "quiz-completion":
		ctl.handleQuizCompletion(peerID, c, env.Data)
	case "sendMsg":
		ctl.handleSendMsg(peerID, c, env.Data)
	case "cameraStateChanged":
		ctl.handleCameraState(peerID, c, env.Data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}
