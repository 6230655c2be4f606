package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/jiyeyuran/mediasoup-go"
	"github.com/stretchr/testify/require"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app/quiz"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/core"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

// fakeConn records every frame the dispatcher delivers to one peer.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

// events decodes the recorded frames and returns the envelopes matching the
// given type, in delivery order.
func (c *fakeConn) events(t *testing.T, event string) []app.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []app.Envelope
	for _, f := range c.frames {
		var env app.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		if env.Type == event {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeConn) eventOrder(t *testing.T, a, b string) bool {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	ai, bi := -1, -1
	for i, f := range c.frames {
		var env app.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		if env.Type == a && ai < 0 {
			ai = i
		}
		if env.Type == b && bi < 0 {
			bi = i
		}
	}
	return ai >= 0 && bi >= 0 && ai < bi
}

// --- fake media engine ---

type fakeEngine struct {
	mu      sync.Mutex
	routers int
}

func (e *fakeEngine) CreateRouter() (media.Router, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routers++
	return &fakeRouter{engine: e, canConsume: true}, nil
}

func (e *fakeEngine) OnDied(func()) {}
func (e *fakeEngine) Close()        {}

type fakeRouter struct {
	engine     *fakeEngine
	canConsume bool
	closed     bool
	seq        int
	mu         sync.Mutex
}

func (r *fakeRouter) RtpCapabilities() mediasoup.RtpCapabilities {
	return mediasoup.RtpCapabilities{}
}

func (r *fakeRouter) CreateTransport() (media.Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return &fakeTransport{router: r, id: fmt.Sprintf("t%d", r.seq)}, nil
}

func (r *fakeRouter) CanConsume(string, mediasoup.RtpCapabilities) bool {
	return r.canConsume
}

func (r *fakeRouter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

type fakeTransport struct {
	router    *fakeRouter
	id        string
	connected int
	closed    bool
}

func (t *fakeTransport) ID() string { return t.id }
func (t *fakeTransport) Info() media.TransportInfo {
	return media.TransportInfo{ID: t.id}
}
func (t *fakeTransport) Connect(mediasoup.DtlsParameters) error {
	t.connected++
	return nil
}
func (t *fakeTransport) Produce(kind mediasoup.MediaKind, _ mediasoup.RtpParameters, appData mediasoup.H) (media.Producer, error) {
	t.router.mu.Lock()
	t.router.seq++
	id := fmt.Sprintf("p%d", t.router.seq)
	t.router.mu.Unlock()
	return &fakeProducer{id: id, kind: kind, appData: appData}, nil
}
func (t *fakeTransport) Consume(producerID string, _ mediasoup.RtpCapabilities, appData mediasoup.H) (media.Consumer, error) {
	t.router.mu.Lock()
	t.router.seq++
	id := fmt.Sprintf("c%d", t.router.seq)
	t.router.mu.Unlock()
	return &fakeConsumer{id: id, producerID: producerID}, nil
}
func (t *fakeTransport) Close() { t.closed = true }

type fakeProducer struct {
	id      string
	kind    mediasoup.MediaKind
	appData mediasoup.H
	closed  bool
}

func (p *fakeProducer) ID() string                { return p.id }
func (p *fakeProducer) Kind() mediasoup.MediaKind { return p.kind }
func (p *fakeProducer) AppData() mediasoup.H      { return p.appData }
func (p *fakeProducer) Close()                    { p.closed = true }

type fakeConsumer struct {
	id         string
	producerID string
	resumed    bool
	closed     bool
}

func (c *fakeConsumer) ID() string                { return c.id }
func (c *fakeConsumer) ProducerID() string        { return c.producerID }
func (c *fakeConsumer) Kind() mediasoup.MediaKind { return mediasoup.MediaKind_Video }
func (c *fakeConsumer) RtpParameters() mediasoup.RtpParameters {
	return mediasoup.RtpParameters{}
}
func (c *fakeConsumer) Resume() error { c.resumed = true; return nil }
func (c *fakeConsumer) Close()        { c.closed = true }

// --- harness ---

type harness struct {
	orch  *Orchestrator
	conns map[domain.PeerID]*fakeConn
}

func newHarness() *harness {
	registry := app.NewRegistry()
	dispatch := app.NewDispatcher(registry)
	return &harness{
		orch: &Orchestrator{
			Registry: registry,
			Engine:   &fakeEngine{},
			Dispatch: dispatch,
			Quiz:     quiz.NewEngine(dispatch),
		},
		conns: make(map[domain.PeerID]*fakeConn),
	}
}

func (h *harness) connect(id domain.PeerID) *fakeConn {
	conn := &fakeConn{}
	meta := domain.NewPeer(id, "", "", "")
	sess := core.NewPeerSession(meta, conn)
	_, cancel := context.WithCancel(context.Background())
	h.orch.Registry.BindSignal(id, sess, cancel)
	h.conns[id] = conn
	return conn
}

func (h *harness) join(t *testing.T, id domain.PeerID, room domain.RoomName, name string) *JoinResult {
	t.Helper()
	res, err := h.orch.JoinRoom(id, room, name, name+"@example.com")
	require.NoError(t, err)
	return res
}

// --- tests ---

func TestFirstJoinerIsHost(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")

	resA := h.join(t, "a", "r1", "alice")
	require.True(t, resA.IsHost)
	require.Len(t, resA.Participants, 1)

	resB := h.join(t, "b", "r1", "bob")
	require.False(t, resB.IsHost)
	require.Len(t, resB.Participants, 2)

	// incumbents got a delta, the newcomer did not
	require.Len(t, h.conns["a"].events(t, app.EvtParticipantJoined), 1)
	require.Empty(t, h.conns["b"].events(t, app.EvtParticipantJoined))

	// at most one host, and it is a connected peer
	roster, err := h.orch.Participants("r1")
	require.NoError(t, err)
	hosts := 0
	for _, p := range roster {
		if p.IsHost {
			hosts++
			_, ok := h.orch.Registry.GetSession(p.PeerID)
			require.True(t, ok)
		}
	}
	require.Equal(t, 1, hosts)
}

func TestJoinTwiceRejected(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.join(t, "a", "r1", "alice")

	_, err := h.orch.JoinRoom("a", "r2", "alice", "")
	require.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestHostPromotionOnDisconnect(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")
	h.connect("c")
	h.join(t, "a", "r1", "alice")
	h.join(t, "b", "r1", "bob")
	h.join(t, "c", "r1", "carol")

	h.orch.Disconnect("a")

	// b was next in join order
	require.Len(t, h.conns["b"].events(t, app.EvtHostChanged), 1)
	require.Empty(t, h.conns["c"].events(t, app.EvtHostChanged))

	roster, err := h.orch.Participants("r1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	hosts := 0
	for _, p := range roster {
		if p.IsHost {
			hosts++
			require.Equal(t, domain.PeerID("b"), p.PeerID)
		}
	}
	require.Equal(t, 1, hosts)

	// everyone remaining saw the departure
	require.Len(t, h.conns["b"].events(t, app.EvtParticipantLeft), 1)
	require.Len(t, h.conns["c"].events(t, app.EvtParticipantLeft), 1)
}

func TestHostPromotionRacesWithHostReads(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")
	h.join(t, "a", "r1", "alice")
	h.join(t, "b", "r1", "bob")

	sessB, ok := h.orch.Registry.GetSession("b")
	require.True(t, ok)

	// b's handler goroutine keeps checking host status while a's
	// disconnect promotes b from another goroutine
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			sessB.Meta().Host()
			sessB.Meta().Room()
		}
	}()
	h.orch.Disconnect("a")
	<-done

	require.True(t, sessB.Meta().Host())
}

func TestJoinClaimsMembershipExactlyOnce(t *testing.T) {
	h := newHarness()
	h.connect("a")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.orch.JoinRoom("a", "r1", "alice", "")
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
		} else {
			require.ErrorIs(t, err, ErrAlreadyInRoom)
		}
	}
	require.Equal(t, 1, joined)

	rm, ok := h.orch.Registry.GetRoom("r1")
	require.True(t, ok)
	require.Equal(t, 1, rm.PeerCount())
}

func TestDisconnectUnknownPeerIsNoop(t *testing.T) {
	h := newHarness()
	h.orch.Disconnect("ghost")
}

func TestEmptyRoomIsRemovedAndQuizForceEnded(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.join(t, "a", "r1", "alice")

	h.orch.Quiz.Join("r1", "a", domain.QuizConfig{
		WaitingDurationMs:     60_000,
		PerQuestionDurationMs: 60_000,
		QuestionIDs:           []string{"q1"},
	})
	require.True(t, h.orch.Quiz.Active("r1"))

	h.orch.Disconnect("a")

	require.False(t, h.orch.Quiz.Active("r1"), "quiz state must not wait for its timer")
	_, ok := h.orch.Registry.GetRoom("r1")
	require.False(t, ok)
}

func TestProduceNotifiesOtherPeersOnce(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")
	h.connect("c")
	h.join(t, "a", "r1", "alice")
	h.join(t, "b", "r1", "bob")
	h.join(t, "c", "r1", "carol")

	info, err := h.orch.CreateTransport("a", false)
	require.NoError(t, err)

	producerID, othersExist, err := h.orch.Produce("a", info.ID, mediasoup.MediaKind_Video, mediasoup.RtpParameters{}, mediasoup.H{"media": "camera"})
	require.NoError(t, err)
	require.False(t, othersExist)

	require.NoError(t, h.orch.CloseProducer(producerID))

	for _, id := range []domain.PeerID{"b", "c"} {
		conn := h.conns[id]
		require.Len(t, conn.events(t, app.EvtNewProducer), 1)
		require.Len(t, conn.events(t, app.EvtProducerClosed), 1)
		require.True(t, conn.eventOrder(t, app.EvtNewProducer, app.EvtProducerClosed))
	}
	require.Empty(t, h.conns["a"].events(t, app.EvtNewProducer))
	require.Empty(t, h.conns["a"].events(t, app.EvtProducerClosed))
}

func TestListProducersIsIdempotentAndExcludesOwn(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")
	h.join(t, "a", "r1", "alice")
	h.join(t, "b", "r1", "bob")

	ta, err := h.orch.CreateTransport("a", false)
	require.NoError(t, err)
	tb, err := h.orch.CreateTransport("b", false)
	require.NoError(t, err)

	_, _, err = h.orch.Produce("a", ta.ID, mediasoup.MediaKind_Audio, mediasoup.RtpParameters{}, nil)
	require.NoError(t, err)
	pb, othersExist, err := h.orch.Produce("b", tb.ID, mediasoup.MediaKind_Video, mediasoup.RtpParameters{}, nil)
	require.NoError(t, err)
	require.True(t, othersExist)

	first, err := h.orch.ListProducers("a")
	require.NoError(t, err)
	second, err := h.orch.ListProducers("a")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 1)
	require.Equal(t, pb, first[0].ProducerID)
}

func TestConsumeCapabilityMismatch(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")
	h.join(t, "a", "r1", "alice")
	h.join(t, "b", "r1", "bob")

	ta, err := h.orch.CreateTransport("a", false)
	require.NoError(t, err)
	producerID, _, err := h.orch.Produce("a", ta.ID, mediasoup.MediaKind_Video, mediasoup.RtpParameters{}, nil)
	require.NoError(t, err)

	tb, err := h.orch.CreateTransport("b", true)
	require.NoError(t, err)

	rm, ok := h.orch.Registry.GetRoom("r1")
	require.True(t, ok)
	rm.Router().(*fakeRouter).canConsume = false

	_, err = h.orch.Consume("b", producerID, tb.ID, mediasoup.RtpCapabilities{}, nil)
	require.ErrorIs(t, err, ErrCannotConsume)

	rm.Router().(*fakeRouter).canConsume = true
	params, err := h.orch.Consume("b", producerID, tb.ID, mediasoup.RtpCapabilities{}, nil)
	require.NoError(t, err)
	require.Equal(t, producerID, params.ProducerID)

	require.NoError(t, h.orch.ResumeConsumer(params.ID))
	require.ErrorIs(t, h.orch.ResumeConsumer("nope"), ErrConsumerNotFound)
}

func TestConnectTransportDirections(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.join(t, "a", "r1", "alice")

	send, err := h.orch.CreateTransport("a", false)
	require.NoError(t, err)
	recv, err := h.orch.CreateTransport("a", true)
	require.NoError(t, err)

	require.NoError(t, h.orch.ConnectTransport(send.ID, mediasoup.DtlsParameters{}))
	require.ErrorIs(t, h.orch.ConnectTransport(recv.ID, mediasoup.DtlsParameters{}), ErrTransportNotFound)

	require.NoError(t, h.orch.ConnectRecvTransport(recv.ID, mediasoup.DtlsParameters{}))
	require.ErrorIs(t, h.orch.ConnectRecvTransport(send.ID, mediasoup.DtlsParameters{}), ErrTransportNotFound)
}

func TestDisconnectClosesOwnedMediaAndNotifies(t *testing.T) {
	h := newHarness()
	h.connect("a")
	h.connect("b")
	h.join(t, "a", "r1", "alice")
	h.join(t, "b", "r1", "bob")

	ta, err := h.orch.CreateTransport("a", false)
	require.NoError(t, err)
	_, _, err = h.orch.Produce("a", ta.ID, mediasoup.MediaKind_Video, mediasoup.RtpParameters{}, nil)
	require.NoError(t, err)

	h.orch.Disconnect("a")

	require.Len(t, h.conns["b"].events(t, app.EvtProducerClosed), 1)

	// b sees no producers left to consume
	list, err := h.orch.ListProducers("b")
	require.NoError(t, err)
	require.Empty(t, list)
}
