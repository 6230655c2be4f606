// Package quiz drives server-authoritative, time-boxed quiz broadcasts for
// a room: Waiting → InQuestion(i) → TimedOut → ... → Ended. Clients never
// drive transitions; wall-clock timers and explicit host requests do.
package quiz

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

const (
	tickInterval  = 100 * time.Millisecond
	countdownFrom = 3
	countdownStep = time.Second
	// grace before deleting Ended state, so in-flight broadcasts are
	// observed by clients before the state disappears
	cleanupGrace = 5 * time.Second
)

var (
	ErrNoQuiz   = errors.New("no quiz for room")
	ErrBadPhase = errors.New("operation not valid in current phase")
)

// Engine holds one quizState per room with an active quiz.
type Engine struct {
	mu      sync.Mutex
	quizzes map[domain.RoomName]*quizState

	dispatch app.Dispatcher
}

func NewEngine(dispatch app.Dispatcher) *Engine {
	return &Engine{
		quizzes:  make(map[domain.RoomName]*quizState),
		dispatch: dispatch,
	}
}

// Join either initializes the room's quiz with the caller's timing plan or,
// if a quiz is already running, resyncs the caller to the shared timeline.
// Initialization is exactly-once: the first CAS wins, every concurrent
// joiner is treated as a late joiner.
func (e *Engine) Join(room domain.RoomName, peer domain.PeerID, cfg domain.QuizConfig) {
	e.mu.Lock()
	q, ok := e.quizzes[room]
	if !ok {
		q = newQuizState(room)
		e.quizzes[room] = q
	}
	e.mu.Unlock()

	if q.started.CompareAndSwap(false, true) {
		e.start(q, cfg)
		return
	}
	e.Resync(room, peer)
}

func (e *Engine) start(q *quizState, cfg domain.QuizConfig) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := nowMs()
	q.phase = domain.PhaseWaiting
	q.currentIndex = -1
	q.cfg = cfg
	q.startTs = now
	q.endTs = now + cfg.WaitingDurationMs

	log.Info().
		Str("module", "quiz").
		Str("room", string(q.room)).
		Int("questions", len(cfg.QuestionIDs)).
		Int64("waiting_ms", cfg.WaitingDurationMs).
		Msg("quiz started")

	e.dispatch.Broadcast(q.room, app.EvtQuizWaiting, waitingPayload{
		TimeLeft:   cfg.WaitingDurationMs,
		ServerTime: now,
		EndTime:    q.endTs,
	})
	e.armTimerLocked(q)
}

// QuickStart is the host's manual override of the waiting phase: cancel the
// waiting timer, count 3-2-1 at one-second steps, then open question 0.
func (e *Engine) QuickStart(room domain.RoomName) error {
	q, ok := e.get(room)
	if !ok {
		return ErrNoQuiz
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != domain.PhaseWaiting {
		return ErrBadPhase
	}

	q.stopTimerLocked()
	stop := make(chan struct{})
	q.stopTimer = stop

	now := nowMs()
	q.countingDown = true
	q.startTs = now
	q.endTs = now + int64(countdownFrom)*countdownStep.Milliseconds()

	e.dispatch.Broadcast(room, app.EvtCountdownStart, countdownPayload{Count: countdownFrom})
	e.dispatch.Broadcast(room, app.EvtCountdownUpdate, countdownPayload{Count: countdownFrom})
	go e.runCountdown(q, stop)
	return nil
}

// NextQuestion advances past a timed-out question. Valid only from
// TimedOut; anything else would bump currentIndex outside a legal
// transition.
func (e *Engine) NextQuestion(room domain.RoomName) error {
	q, ok := e.get(room)
	if !ok {
		return ErrNoQuiz
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != domain.PhaseTimedOut {
		return ErrBadPhase
	}
	e.startQuestionLocked(q, q.currentIndex+1)
	return nil
}

// Complete confirms the host has dismissed the results screen, after the
// timed portion already ended.
func (e *Engine) Complete(room domain.RoomName) error {
	q, ok := e.get(room)
	if !ok {
		return ErrNoQuiz
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != domain.PhaseEnded {
		return ErrBadPhase
	}
	e.dispatch.Broadcast(room, app.EvtQuizCompleted, struct{}{})
	return nil
}

// Resync sends a timeline snapshot to one late joiner so its local
// countdown starts already aligned to the server clock.
func (e *Engine) Resync(room domain.RoomName, peer domain.PeerID) {
	q, ok := e.get(room)
	if !ok {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := nowMs()
	left := q.endTs - now
	if left < 0 {
		left = 0
	}
	if q.countingDown {
		// a quick-start countdown is in flight; the cancelled waiting
		// deadline must not leak to the late joiner
		count := int((left + countdownStep.Milliseconds() - 1) / countdownStep.Milliseconds())
		if count < 1 {
			count = 1
		}
		e.dispatch.Send(peer, app.EvtCountdownStart, countdownPayload{Count: count})
		e.dispatch.Send(peer, app.EvtCountdownUpdate, countdownPayload{Count: count})
		return
	}
	if q.currentIndex < 0 {
		e.dispatch.Send(peer, app.EvtQuizWaiting, waitingPayload{
			TimeLeft:   left,
			ServerTime: now,
			EndTime:    q.endTs,
		})
		return
	}
	e.dispatch.Send(peer, app.EvtQuestionUpdate, questionPayload{
		CurrentIndex: q.currentIndex,
		QuestionID:   q.questionIDLocked(q.currentIndex),
		Question:     q.questionLocked(q.currentIndex),
		TimeLeft:     left,
		ServerTime:   now,
		EndTime:      q.endTs,
	})
}

// ForceEnd tears the quiz down immediately, regardless of phase. Used when
// the room's last peer disconnects: state must not wait for its natural
// timer.
func (e *Engine) ForceEnd(room domain.RoomName) {
	e.mu.Lock()
	q, ok := e.quizzes[room]
	delete(e.quizzes, room)
	e.mu.Unlock()
	if !ok {
		return
	}
	q.mu.Lock()
	q.stopTimerLocked()
	if q.cleanup != nil {
		q.cleanup.Stop()
		q.cleanup = nil
	}
	q.phase = domain.PhaseEnded
	q.mu.Unlock()
	log.Info().Str("module", "quiz").Str("room", string(room)).Msg("quiz force-ended")
}

// Active reports whether the room currently has quiz state.
func (e *Engine) Active(room domain.RoomName) bool {
	_, ok := e.get(room)
	return ok
}

func (e *Engine) get(room domain.RoomName) (*quizState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.quizzes[room]
	return q, ok
}

func (e *Engine) remove(q *quizState) {
	e.mu.Lock()
	if cur, ok := e.quizzes[q.room]; ok && cur == q {
		delete(e.quizzes, q.room)
	}
	e.mu.Unlock()
}

// startQuestionLocked opens the per-question window for idx. Caller holds
// q.mu; the previous timer must already be cleared.
func (e *Engine) startQuestionLocked(q *quizState, idx int) {
	q.stopTimerLocked()

	now := nowMs()
	q.phase = domain.PhaseInQuestion
	q.currentIndex = idx
	q.countingDown = false
	q.startTs = now
	q.endTs = now + q.cfg.PerQuestionDurationMs

	e.dispatch.Broadcast(q.room, app.EvtQuestionUpdate, questionPayload{
		CurrentIndex: idx,
		QuestionID:   q.questionIDLocked(idx),
		Question:     q.questionLocked(idx),
		TimeLeft:     q.cfg.PerQuestionDurationMs,
		ServerTime:   now,
		EndTime:      q.endTs,
	})
	e.armTimerLocked(q)
}

// endLocked closes the timed portion and schedules state deletion.
func (e *Engine) endLocked(q *quizState) {
	q.stopTimerLocked()
	q.phase = domain.PhaseEnded
	e.dispatch.Broadcast(q.room, app.EvtQuizEnd, struct{}{})
	q.cleanup = time.AfterFunc(cleanupGrace, func() {
		e.remove(q)
	})
	log.Info().Str("module", "quiz").Str("room", string(q.room)).Msg("quiz ended")
}

func (e *Engine) armTimerLocked(q *quizState) {
	stop := make(chan struct{})
	q.stopTimer = stop
	go e.runTicker(q, stop)
}

// runTicker broadcasts time-update every tick and fires the phase
// transition once the deadline passes. Ticks never block on media-engine
// calls; everything here is registry fan-out.
func (e *Engine) runTicker(q *quizState, stop chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.tick(q, stop) {
				return
			}
		}
	}
}

// tick returns true once this timer is done, either superseded or having
// fired its transition.
func (e *Engine) tick(q *quizState, stop chan struct{}) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopTimer != stop {
		// a transition replaced this timer between ticks
		return true
	}

	now := nowMs()
	left := q.endTs - now
	if left > 0 {
		e.dispatch.Broadcast(q.room, app.EvtTimeUpdate, timeUpdatePayload{
			TimeLeft:   left,
			ServerTime: now,
		})
		return false
	}

	q.stopTimerLocked()
	switch q.phase {
	case domain.PhaseWaiting:
		e.startQuestionLocked(q, 0)
	case domain.PhaseInQuestion:
		if q.currentIndex == len(q.cfg.QuestionIDs)-1 {
			e.endLocked(q)
			break
		}
		// Non-final question: hold in TimedOut until the host reviews
		// results and explicitly advances.
		q.phase = domain.PhaseTimedOut
		e.dispatch.Broadcast(q.room, app.EvtTimeOut, timeOutPayload{CurrentIndex: q.currentIndex})
	}
	return true
}

// runCountdown emits the remaining 2-1 countdown steps, then opens
// question 0. The initial count is broadcast by QuickStart itself.
func (e *Engine) runCountdown(q *quizState, stop chan struct{}) {
	ticker := time.NewTicker(countdownStep)
	defer ticker.Stop()
	count := countdownFrom
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			q.mu.Lock()
			if q.stopTimer != stop {
				q.mu.Unlock()
				return
			}
			count--
			if count > 0 {
				e.dispatch.Broadcast(q.room, app.EvtCountdownUpdate, countdownPayload{Count: count})
				q.mu.Unlock()
				continue
			}
			q.stopTimerLocked()
			e.startQuestionLocked(q, 0)
			q.mu.Unlock()
			return
		}
	}
}
