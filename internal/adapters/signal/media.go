package signal

import (
	"encoding/json"

	"github.com/jiyeyuran/mediasoup-go"
	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app/orch"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

func (ctl *SignalWSController) handleCreateTransport(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		Consumer bool `json:"consumer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "createWebRtcTransport", errBadPayload)
		return
	}
	info, err := ctl.Orch.CreateTransport(peerID, p.Consumer)
	if err != nil {
		ctl.sendError(conn, "createWebRtcTransport", err)
		return
	}
	ctl.sendEvent(conn, app.EvtTransportCreated, transportCreatedPayload{
		Params:   info,
		Consumer: p.Consumer,
	})
}

type transportCreatedPayload struct {
	Params   media.TransportInfo `json:"params"`
	Consumer bool                `json:"consumer"`
}

func (ctl *SignalWSController) handleTransportConnect(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		TransportID    string                   `json:"transportId"`
		DtlsParameters mediasoup.DtlsParameters `json:"dtlsParameters"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.TransportID == "" {
		ctl.sendError(conn, "transport-connect", errBadPayload)
		return
	}
	if err := ctl.Orch.ConnectTransport(p.TransportID, p.DtlsParameters); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("peer", string(peerID)).Msg("transport-connect")
		ctl.sendError(conn, "transport-connect", err)
	}
}

func (ctl *SignalWSController) handleTransportRecvConnect(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		TransportID    string                   `json:"serverConsumerTransportId"`
		DtlsParameters mediasoup.DtlsParameters `json:"dtlsParameters"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.TransportID == "" {
		ctl.sendError(conn, "transport-recv-connect", errBadPayload)
		return
	}
	if err := ctl.Orch.ConnectRecvTransport(p.TransportID, p.DtlsParameters); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("peer", string(peerID)).Msg("transport-recv-connect")
		ctl.sendError(conn, "transport-recv-connect", err)
	}
}

func (ctl *SignalWSController) handleTransportProduce(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		TransportID   string                  `json:"transportId"`
		Kind          mediasoup.MediaKind     `json:"kind"`
		RtpParameters mediasoup.RtpParameters `json:"rtpParameters"`
		AppData       mediasoup.H             `json:"appData"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.TransportID == "" {
		ctl.sendError(conn, "transport-produce", errBadPayload)
		return
	}
	producerID, othersExist, err := ctl.Orch.Produce(peerID, p.TransportID, p.Kind, p.RtpParameters, p.AppData)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("peer", string(peerID)).Msg("transport-produce")
		ctl.sendError(conn, "transport-produce", err)
		return
	}
	ctl.sendEvent(conn, app.EvtProduced, producedPayload{
		ID:             producerID,
		ProducersExist: othersExist,
	})
}

type producedPayload struct {
	ID             string `json:"id"`
	ProducersExist bool   `json:"producersExist"`
}

func (ctl *SignalWSController) handleConsume(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		RemoteProducerID string                    `json:"remoteProducerId"`
		RtpCapabilities  mediasoup.RtpCapabilities `json:"rtpCapabilities"`
		TransportID      string                    `json:"serverConsumerTransportId"`
		AppData          mediasoup.H               `json:"appData"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RemoteProducerID == "" {
		ctl.sendError(conn, "consume", errBadPayload)
		return
	}
	params, err := ctl.Orch.Consume(peerID, p.RemoteProducerID, p.TransportID, p.RtpCapabilities, p.AppData)
	if err != nil {
		// Capability mismatch goes back to the single requesting peer as an
		// error field on the reply, never a broadcast.
		ctl.sendEvent(conn, app.EvtConsumed, consumedPayload{Error: err.Error()})
		return
	}
	ctl.sendEvent(conn, app.EvtConsumed, consumedPayload{Params: params})
}

type consumedPayload struct {
	Params *orch.ConsumeParams `json:"params,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func (ctl *SignalWSController) handleConsumerResume(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		ConsumerID string `json:"serverConsumerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ConsumerID == "" {
		ctl.sendError(conn, "consumer-resume", errBadPayload)
		return
	}
	if err := ctl.Orch.ResumeConsumer(p.ConsumerID); err != nil {
		ctl.sendError(conn, "consumer-resume", err)
	}
}

func (ctl *SignalWSController) handleGetProducers(peerID domain.PeerID, conn *wsSignalConn) {
	list, err := ctl.Orch.ListProducers(peerID)
	if err != nil {
		ctl.sendError(conn, "getProducers", err)
		return
	}
	ctl.sendEvent(conn, app.EvtProducers, map[string]any{"producerList": list})
}

func (ctl *SignalWSController) handleProducerClose(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		ProducerID string `json:"producerId"`
		RoomName   string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ProducerID == "" {
		ctl.sendError(conn, "producer-close", errBadPayload)
		return
	}
	if err := ctl.Orch.CloseProducer(p.ProducerID); err != nil {
		ctl.sendError(conn, "producer-close", err)
	}
}
