package media

import (
	"github.com/jiyeyuran/mediasoup-go"
	"github.com/rs/zerolog/log"
)

// Options configures the mediasoup worker and its transports.
type Options struct {
	ListenIP    string
	AnnouncedIP string
	RtcMinPort  uint16
	RtcMaxPort  uint16
}

// Audio and video codecs offered by every room router. Matches what the
// browser-side device loads, so CanConsume succeeds for ordinary
// camera/mic/screen tracks.
var mediaCodecs = []*mediasoup.RtpCodecCapability{
	{
		Kind:      mediasoup.MediaKind_Audio,
		MimeType:  "audio/opus",
		ClockRate: 48000,
		Channels:  2,
	},
	{
		Kind:      mediasoup.MediaKind_Video,
		MimeType:  "video/VP8",
		ClockRate: 90000,
		Parameters: mediasoup.RtpCodecSpecificParameters{
			XGoogleStartBitrate: 1000,
		},
	},
}

type msEngine struct {
	worker *mediasoup.Worker
	opts   Options
}

// NewEngine spawns a mediasoup worker process and wraps it behind the
// Engine boundary.
func NewEngine(opts Options) (Engine, error) {
	worker, err := mediasoup.NewWorker(
		mediasoup.WithLogLevel(mediasoup.WorkerLogLevel_Warn),
		mediasoup.WithRtcMinPort(opts.RtcMinPort),
		mediasoup.WithRtcMaxPort(opts.RtcMaxPort),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "media").Int("pid", worker.Pid()).Msg("media worker started")
	return &msEngine{worker: worker, opts: opts}, nil
}

func (e *msEngine) CreateRouter() (Router, error) {
	router, err := e.worker.CreateRouter(mediasoup.RouterOptions{
		MediaCodecs: mediaCodecs,
	})
	if err != nil {
		return nil, err
	}
	return &msRouter{router: router, opts: e.opts}, nil
}

func (e *msEngine) OnDied(fn func()) {
	e.worker.On("died", fn)
}

func (e *msEngine) Close() {
	e.worker.Close()
}

type msRouter struct {
	router *mediasoup.Router
	opts   Options
}

func (r *msRouter) RtpCapabilities() mediasoup.RtpCapabilities {
	return r.router.RtpCapabilities()
}

func (r *msRouter) CreateTransport() (Transport, error) {
	transport, err := r.router.CreateWebRtcTransport(webRtcTransportOptions(r.opts))
	if err != nil {
		return nil, err
	}
	return &msTransport{transport: transport}, nil
}

// webRtcTransportOptions builds the per-transport options from the worker
// settings. EnableUdp is a *bool in the transport options struct.
func webRtcTransportOptions(opts Options) mediasoup.WebRtcTransportOptions {
	listenIP := opts.ListenIP
	if listenIP == "" {
		listenIP = "0.0.0.0"
	}
	enableUdp := true
	return mediasoup.WebRtcTransportOptions{
		ListenIps: []mediasoup.TransportListenIp{
			{Ip: listenIP, AnnouncedIp: opts.AnnouncedIP},
		},
		EnableUdp: &enableUdp,
		EnableTcp: true,
		PreferUdp: true,
	}
}

func (r *msRouter) CanConsume(producerID string, caps mediasoup.RtpCapabilities) bool {
	return r.router.CanConsume(producerID, caps)
}

func (r *msRouter) Close() {
	r.router.Close()
}

type msTransport struct {
	transport *mediasoup.WebRtcTransport
}

func (t *msTransport) ID() string { return t.transport.Id() }

func (t *msTransport) Info() TransportInfo {
	return TransportInfo{
		ID:             t.transport.Id(),
		IceParameters:  t.transport.IceParameters(),
		IceCandidates:  t.transport.IceCandidates(),
		DtlsParameters: t.transport.DtlsParameters(),
	}
}

func (t *msTransport) Connect(dtls mediasoup.DtlsParameters) error {
	return t.transport.Connect(mediasoup.TransportConnectOptions{
		DtlsParameters: &dtls,
	})
}

func (t *msTransport) Produce(kind mediasoup.MediaKind, rtp mediasoup.RtpParameters, appData mediasoup.H) (Producer, error) {
	producer, err := t.transport.Produce(mediasoup.ProducerOptions{
		Kind:          kind,
		RtpParameters: rtp,
		AppData:       appData,
	})
	if err != nil {
		return nil, err
	}
	return &msProducer{producer: producer}, nil
}

func (t *msTransport) Consume(producerID string, caps mediasoup.RtpCapabilities, appData mediasoup.H) (Consumer, error) {
	consumer, err := t.transport.Consume(mediasoup.ConsumerOptions{
		ProducerId:      producerID,
		RtpCapabilities: caps,
		Paused:          true,
		AppData:         appData,
	})
	if err != nil {
		return nil, err
	}
	return &msConsumer{consumer: consumer}, nil
}

func (t *msTransport) Close() {
	t.transport.Close()
}

type msProducer struct {
	producer *mediasoup.Producer
}

func (p *msProducer) ID() string                { return p.producer.Id() }
func (p *msProducer) Kind() mediasoup.MediaKind { return p.producer.Kind() }
func (p *msProducer) AppData() mediasoup.H {
	if h, ok := p.producer.AppData().(mediasoup.H); ok {
		return h
	}
	return nil
}
func (p *msProducer) Close() { p.producer.Close() }

type msConsumer struct {
	consumer *mediasoup.Consumer
}

func (c *msConsumer) ID() string                { return c.consumer.Id() }
func (c *msConsumer) ProducerID() string        { return c.consumer.ProducerId() }
func (c *msConsumer) Kind() mediasoup.MediaKind { return c.consumer.Kind() }
func (c *msConsumer) RtpParameters() mediasoup.RtpParameters {
	return c.consumer.RtpParameters()
}
func (c *msConsumer) Resume() error { return c.consumer.Resume() }
func (c *msConsumer) Close()        { c.consumer.Close() }
