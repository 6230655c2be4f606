package orch

import (
	"github.com/jiyeyuran/mediasoup-go"
	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

// ProducerInfo is the discovery view of a remote stream: enough for a peer
// to decide whether and how to consume it.
type ProducerInfo struct {
	ProducerID string      `json:"producerId"`
	AppData    mediasoup.H `json:"appData"`
}

// ConsumeParams is the consumer bootstrap blob returned to the one
// requesting peer.
type ConsumeParams struct {
	ID            string                  `json:"id"`
	ProducerID    string                  `json:"producerId"`
	Kind          mediasoup.MediaKind     `json:"kind"`
	RtpParameters mediasoup.RtpParameters `json:"rtpParameters"`
}

// RoutingCapabilities returns the room router's codec descriptor, used by
// the client to initialize its local device.
func (o *Orchestrator) RoutingCapabilities(room domain.RoomName) (mediasoup.RtpCapabilities, error) {
	rm, ok := o.Registry.GetRoom(room)
	if !ok {
		return mediasoup.RtpCapabilities{}, ErrRoomNotFound
	}
	return rm.Router().RtpCapabilities(), nil
}

// CreateTransport allocates a transport on the peer's room router and
// returns its ICE/DTLS bootstrap parameters verbatim from the engine.
func (o *Orchestrator) CreateTransport(id domain.PeerID, isReceive bool) (media.TransportInfo, error) {
	sess, ok := o.Registry.GetSession(id)
	if !ok {
		return media.TransportInfo{}, ErrNoSession
	}
	room := sess.Meta().Room()
	if room == "" {
		return media.TransportInfo{}, ErrNotInRoom
	}
	rm, ok := o.Registry.GetRoom(room)
	if !ok {
		return media.TransportInfo{}, ErrRoomNotFound
	}

	transport, err := rm.Router().CreateTransport()
	if err != nil {
		return media.TransportInfo{}, err
	}
	o.Registry.AddTransport(transport.ID(), &app.TransportRecord{
		PeerID:    id,
		RoomName:  room,
		Transport: transport,
		IsReceive: isReceive,
	})
	log.Info().
		Str("module", "orch").
		Str("peer", string(id)).
		Str("transport", transport.ID()).
		Bool("receive", isReceive).
		Msg("transport created")
	return transport.Info(), nil
}

// ConnectTransport forwards the remote DTLS fingerprint to the peer's
// send-direction transport. A second connect is passed straight through;
// the engine's own behavior governs the result.
func (o *Orchestrator) ConnectTransport(transportID string, dtls mediasoup.DtlsParameters) error {
	rec, ok := o.Registry.SendTransport(transportID)
	if !ok {
		return ErrTransportNotFound
	}
	return rec.Transport.Connect(dtls)
}

// ConnectRecvTransport is the receive-direction counterpart.
func (o *Orchestrator) ConnectRecvTransport(transportID string, dtls mediasoup.DtlsParameters) error {
	rec, ok := o.Registry.GetTransport(transportID)
	if !ok || !rec.IsReceive {
		return ErrTransportNotFound
	}
	return rec.Transport.Connect(dtls)
}

// Produce creates a producer on the given transport and informs every other
// peer in the room with a targeted new-producer message. Returns whether
// other producers already exist so the caller can eagerly fetch them.
func (o *Orchestrator) Produce(id domain.PeerID, transportID string, kind mediasoup.MediaKind, rtp mediasoup.RtpParameters, appData mediasoup.H) (producerID string, othersExist bool, err error) {
	rec, ok := o.Registry.SendTransport(transportID)
	if !ok {
		return "", false, ErrTransportNotFound
	}

	producer, err := rec.Transport.Produce(kind, rtp, appData)
	if err != nil {
		return "", false, err
	}
	o.Registry.AddProducer(producer.ID(), &app.ProducerRecord{
		PeerID:   id,
		RoomName: rec.RoomName,
		Producer: producer,
		AppData:  appData,
	})
	log.Info().
		Str("module", "orch").
		Str("peer", string(id)).
		Str("producer", producer.ID()).
		Str("kind", string(kind)).
		Msg("producer created")

	// One targeted message per peer, not a broadcast: each peer decides
	// individually whether and how to consume.
	rm, ok := o.Registry.GetRoom(rec.RoomName)
	if ok {
		info := ProducerInfo{ProducerID: producer.ID(), AppData: appData}
		for _, pid := range rm.PeerIDs() {
			if pid == id {
				continue
			}
			o.Dispatch.Send(pid, app.EvtNewProducer, info)
		}
	}

	others := o.Registry.ProducersInRoom(rec.RoomName, id)
	return producer.ID(), len(others) > 0, nil
}

// ListProducers lets a newly joined peer discover existing streams instead
// of waiting for new-producer notifications.
func (o *Orchestrator) ListProducers(id domain.PeerID) ([]ProducerInfo, error) {
	sess, ok := o.Registry.GetSession(id)
	if !ok {
		return nil, ErrNoSession
	}
	room := sess.Meta().Room()
	if room == "" {
		return nil, ErrNotInRoom
	}
	recs := o.Registry.ProducersInRoom(room, id)
	out := make([]ProducerInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ProducerInfo{ProducerID: rec.Producer.ID(), AppData: rec.AppData})
	}
	return out, nil
}

// Consume validates that the room router can deliver the producer to the
// caller's capabilities and creates a paused consumer: media is held back
// until the client explicitly resumes.
func (o *Orchestrator) Consume(id domain.PeerID, remoteProducerID, recvTransportID string, caps mediasoup.RtpCapabilities, appData mediasoup.H) (*ConsumeParams, error) {
	sess, ok := o.Registry.GetSession(id)
	if !ok {
		return nil, ErrNoSession
	}
	room := sess.Meta().Room()
	rm, ok := o.Registry.GetRoom(room)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if !rm.Router().CanConsume(remoteProducerID, caps) {
		return nil, ErrCannotConsume
	}
	rec, ok := o.Registry.GetTransport(recvTransportID)
	if !ok || !rec.IsReceive {
		return nil, ErrTransportNotFound
	}

	consumer, err := rec.Transport.Consume(remoteProducerID, caps, appData)
	if err != nil {
		return nil, err
	}
	o.Registry.AddConsumer(consumer.ID(), &app.ConsumerRecord{
		PeerID:   id,
		RoomName: room,
		Consumer: consumer,
		AppData:  appData,
	})
	log.Info().
		Str("module", "orch").
		Str("peer", string(id)).
		Str("consumer", consumer.ID()).
		Str("producer", remoteProducerID).
		Msg("consumer created (paused)")
	return &ConsumeParams{
		ID:            consumer.ID(),
		ProducerID:    consumer.ProducerID(),
		Kind:          consumer.Kind(),
		RtpParameters: consumer.RtpParameters(),
	}, nil
}

// ResumeConsumer unpauses a previously created consumer.
func (o *Orchestrator) ResumeConsumer(consumerID string) error {
	rec, ok := o.Registry.GetConsumer(consumerID)
	if !ok {
		return ErrConsumerNotFound
	}
	return rec.Consumer.Resume()
}

// CloseProducer closes the engine-side producer and tells every other peer
// it is gone so they can tear down the matching consumer and tile.
func (o *Orchestrator) CloseProducer(producerID string) error {
	rec, ok := o.Registry.RemoveProducer(producerID)
	if !ok {
		return ErrProducerNotFound
	}
	rec.Producer.Close()
	o.Dispatch.BroadcastExcept(rec.RoomName, rec.PeerID, app.EvtProducerClosed, ProducerInfo{
		ProducerID: producerID,
		AppData:    rec.AppData,
	})
	log.Info().
		Str("module", "orch").
		Str("peer", string(rec.PeerID)).
		Str("producer", producerID).
		Msg("producer closed")
	return nil
}

// cleanupMedia closes everything the peer owns. A failed close of one
// object never blocks cleanup of the rest.
func (o *Orchestrator) cleanupMedia(id domain.PeerID) {
	transports, producers, consumers := o.Registry.PeerRecords(id)

	for _, rec := range producers {
		pid := rec.Producer.ID()
		if _, ok := o.Registry.RemoveProducer(pid); !ok {
			continue
		}
		rec.Producer.Close()
		o.Dispatch.BroadcastExcept(rec.RoomName, id, app.EvtProducerClosed, ProducerInfo{
			ProducerID: pid,
			AppData:    rec.AppData,
		})
	}
	for _, rec := range consumers {
		rec.Consumer.Close()
		o.Registry.RemoveConsumer(rec.Consumer.ID())
	}
	for _, rec := range transports {
		rec.Transport.Close()
		o.Registry.RemoveTransport(rec.Transport.ID())
	}
	if len(transports)+len(producers)+len(consumers) > 0 {
		log.Info().
			Str("module", "orch").
			Str("peer", string(id)).
			Int("transports", len(transports)).
			Int("producers", len(producers)).
			Int("consumers", len(consumers)).
			Msg("media cleaned up")
	}
}
