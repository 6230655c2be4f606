package quiz

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

type sentEvent struct {
	Room    domain.RoomName
	Peer    domain.PeerID // set for point-to-point sends only
	Event   string
	Payload any
	At      time.Time
}

// recordingDispatcher captures every dispatched event with a timestamp so
// tests can assert on ordering and timing.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (d *recordingDispatcher) Broadcast(room domain.RoomName, event string, payload any) {
	d.record(sentEvent{Room: room, Event: event, Payload: payload, At: time.Now()})
}

func (d *recordingDispatcher) BroadcastExcept(room domain.RoomName, except domain.PeerID, event string, payload any) {
	d.record(sentEvent{Room: room, Event: event, Payload: payload, At: time.Now()})
}

func (d *recordingDispatcher) Send(peer domain.PeerID, event string, payload any) {
	d.record(sentEvent{Peer: peer, Event: event, Payload: payload, At: time.Now()})
}

func (d *recordingDispatcher) record(e sentEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) byType(event string) []sentEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []sentEvent
	for _, e := range d.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (d *recordingDispatcher) count(event string) int {
	return len(d.byType(event))
}

func testConfig(questions int, waitingMs, perQuestionMs int64) domain.QuizConfig {
	ids := make([]string, questions)
	snaps := make([]domain.QuestionSnapshot, questions)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		snaps[i] = json.RawMessage(`{"q":"?"}`)
	}
	return domain.QuizConfig{
		WaitingDurationMs:     waitingMs,
		PerQuestionDurationMs: perQuestionMs,
		QuestionIDs:           ids,
		Questions:             snaps,
	}
}

func TestWaitingExpiresIntoFirstQuestion(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(1, 300, 10_000))

	waits := d.byType(app.EvtQuizWaiting)
	require.Len(t, waits, 1)
	wp := waits[0].Payload.(waitingPayload)
	require.Equal(t, int64(300), wp.TimeLeft)
	require.Equal(t, wp.ServerTime+300, wp.EndTime)

	require.Eventually(t, func() bool {
		return d.count(app.EvtQuestionUpdate) >= 1
	}, 2*time.Second, 20*time.Millisecond)

	qs := d.byType(app.EvtQuestionUpdate)
	require.Len(t, qs, 1)
	qp := qs[0].Payload.(questionPayload)
	require.Equal(t, 0, qp.CurrentIndex)
	require.Equal(t, "a", qp.QuestionID)
	require.Equal(t, qp.ServerTime+qp.TimeLeft, qp.EndTime)

	// time updates came from the waiting timer at the polling granularity
	require.GreaterOrEqual(t, d.count(app.EvtTimeUpdate), 1)

	e.ForceEnd(room)
}

func TestQuickStartCountdown(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(1, 60_000, 10_000))
	require.NoError(t, e.QuickStart(room))

	require.Eventually(t, func() bool {
		return d.count(app.EvtQuestionUpdate) >= 1
	}, 5*time.Second, 20*time.Millisecond)

	updates := d.byType(app.EvtCountdownUpdate)
	require.Len(t, updates, 3)
	for i, want := range []int{3, 2, 1} {
		require.Equal(t, want, updates[i].Payload.(countdownPayload).Count)
	}
	// ~1s apart
	for i := 1; i < 3; i++ {
		gap := updates[i].At.Sub(updates[i-1].At)
		require.InDelta(t, float64(time.Second), float64(gap), float64(300*time.Millisecond))
	}

	// exactly one question-update: the original waiting timer never fired
	require.Equal(t, 1, d.count(app.EvtQuestionUpdate))
	require.Equal(t, 0, d.byType(app.EvtQuestionUpdate)[0].Payload.(questionPayload).CurrentIndex)

	// quick-start is only valid while waiting
	require.ErrorIs(t, e.QuickStart(room), ErrBadPhase)

	e.ForceEnd(room)
}

func TestResyncDuringCountdownReflectsCountdown(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(1, 60_000, 10_000))
	require.NoError(t, e.QuickStart(room))

	e.Resync(room, "late")

	// the cancelled waiting deadline must not leak to the late joiner
	for _, ev := range d.byType(app.EvtQuizWaiting) {
		require.Empty(t, ev.Peer, "no targeted quiz-waiting during countdown")
	}
	var targeted []sentEvent
	for _, ev := range d.byType(app.EvtCountdownUpdate) {
		if ev.Peer == "late" {
			targeted = append(targeted, ev)
		}
	}
	require.Len(t, targeted, 1)
	count := targeted[0].Payload.(countdownPayload).Count
	require.GreaterOrEqual(t, count, 1)
	require.LessOrEqual(t, count, 3)

	e.ForceEnd(room)
}

func TestTimeoutHoldsUntilHostAdvances(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(2, 200, 300))

	require.Eventually(t, func() bool {
		return d.count(app.EvtTimeOut) >= 1
	}, 2*time.Second, 20*time.Millisecond)

	require.Equal(t, 0, d.byType(app.EvtTimeOut)[0].Payload.(timeOutPayload).CurrentIndex)
	// held in TimedOut: question 1 must not open on its own
	time.Sleep(400 * time.Millisecond)
	require.Equal(t, 1, d.count(app.EvtQuestionUpdate))

	require.NoError(t, e.NextQuestion(room))
	qs := d.byType(app.EvtQuestionUpdate)
	require.Len(t, qs, 2)
	require.Equal(t, 1, qs[1].Payload.(questionPayload).CurrentIndex)

	// advancing again outside TimedOut is rejected
	require.ErrorIs(t, e.NextQuestion(room), ErrBadPhase)

	// final question expiry ends the quiz
	require.Eventually(t, func() bool {
		return d.count(app.EvtQuizEnd) == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, e.Complete(room))
	require.Equal(t, 1, d.count(app.EvtQuizCompleted))
}

func TestCompleteRequiresEnded(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(1, 60_000, 60_000))
	require.ErrorIs(t, e.Complete(room), ErrBadPhase)
	e.ForceEnd(room)

	require.ErrorIs(t, e.Complete(room), ErrNoQuiz)
}

func TestSecondJoinResyncsInsteadOfRestarting(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(1, 60_000, 10_000))
	e.Join(room, "peerB", testConfig(1, 5, 5)) // must not re-initialize

	waits := d.byType(app.EvtQuizWaiting)
	require.Len(t, waits, 2)
	require.Empty(t, waits[0].Peer, "first is a room broadcast")
	require.Equal(t, domain.PeerID("peerB"), waits[1].Peer, "second is a targeted resync")
	require.Greater(t, waits[1].Payload.(waitingPayload).TimeLeft, int64(50_000))

	e.ForceEnd(room)
}

func TestLateJoinerResyncAccuracy(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(1, 1000, 10_000))
	time.Sleep(200 * time.Millisecond)

	e.Resync(room, "late")
	waits := d.byType(app.EvtQuizWaiting)
	require.Len(t, waits, 2)
	snap := waits[1].Payload.(waitingPayload)
	require.Equal(t, domain.PeerID("late"), waits[1].Peer)
	// within the 100ms polling granularity of the real remaining time
	require.InDelta(t, 800, float64(snap.TimeLeft), 150)
	require.Equal(t, snap.EndTime-snap.ServerTime, snap.TimeLeft)

	e.ForceEnd(room)
}

func TestForceEndRemovesStateImmediately(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(d)
	room := domain.RoomName("r1")

	e.Join(room, "peerA", testConfig(3, 60_000, 60_000))
	require.True(t, e.Active(room))

	e.ForceEnd(room)
	require.False(t, e.Active(room))

	// the waiting timer must not keep broadcasting after force-end
	n := d.count(app.EvtTimeUpdate)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, n, d.count(app.EvtTimeUpdate))
}
