// Package media is the boundary to the external media engine. The
// coordinator never encodes or relays packets itself; it only obtains opaque
// router/transport/producer/consumer handles here and forwards their
// bootstrap parameters between clients and the engine.
package media

import "github.com/jiyeyuran/mediasoup-go"

// TransportInfo is the ICE/DTLS bootstrap blob a client needs to connect a
// transport, returned verbatim from the engine.
type TransportInfo struct {
	ID             string                   `json:"id"`
	IceParameters  mediasoup.IceParameters  `json:"iceParameters"`
	IceCandidates  []mediasoup.IceCandidate `json:"iceCandidates"`
	DtlsParameters mediasoup.DtlsParameters `json:"dtlsParameters"`
}

// Engine is one media worker process.
type Engine interface {
	// CreateRouter allocates a per-room routing context.
	CreateRouter() (Router, error)
	// OnDied registers a callback fired when the worker process exits
	// unexpectedly. Treated as fatal by the caller.
	OnDied(func())
	Close()
}

// Router mediates which producers a consumer may access within one room.
type Router interface {
	RtpCapabilities() mediasoup.RtpCapabilities
	CreateTransport() (Transport, error)
	CanConsume(producerID string, caps mediasoup.RtpCapabilities) bool
	Close()
}

// Transport carries one direction of a peer's media.
type Transport interface {
	ID() string
	Info() TransportInfo
	Connect(dtls mediasoup.DtlsParameters) error
	Produce(kind mediasoup.MediaKind, rtp mediasoup.RtpParameters, appData mediasoup.H) (Producer, error)
	// Consume creates a paused consumer; the client resumes it once its
	// receive pipeline is ready.
	Consume(producerID string, caps mediasoup.RtpCapabilities, appData mediasoup.H) (Consumer, error)
	Close()
}

// Producer is a peer's outgoing media stream.
type Producer interface {
	ID() string
	Kind() mediasoup.MediaKind
	AppData() mediasoup.H
	Close()
}

// Consumer is a peer's handle for receiving another peer's producer.
type Consumer interface {
	ID() string
	ProducerID() string
	Kind() mediasoup.MediaKind
	RtpParameters() mediasoup.RtpParameters
	Resume() error
	Close()
}
