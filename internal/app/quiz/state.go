package quiz

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

// quizState is one room's quiz timeline. All mutation happens under mu, and
// at most one timer goroutine is live at any instant: every transition
// clears the previous timer before arming a new one.
type quizState struct {
	room    domain.RoomName
	started *atomic.Bool

	mu           sync.Mutex
	phase        domain.Phase
	currentIndex int // -1 while waiting
	startTs      int64
	endTs        int64
	cfg          domain.QuizConfig

	// true while the quick-start 3-2-1 countdown runs; the phase stays
	// Waiting but startTs/endTs cover the countdown window
	countingDown bool

	// close to stop the active timer goroutine; nil when none is armed
	stopTimer chan struct{}
	// pending post-Ended state deletion
	cleanup *time.Timer
}

func newQuizState(room domain.RoomName) *quizState {
	return &quizState{
		room:         room,
		started:      atomic.NewBool(false),
		currentIndex: -1,
	}
}

func (q *quizState) stopTimerLocked() {
	if q.stopTimer != nil {
		close(q.stopTimer)
		q.stopTimer = nil
	}
}

func (q *quizState) questionIDLocked(idx int) string {
	if idx >= 0 && idx < len(q.cfg.QuestionIDs) {
		return q.cfg.QuestionIDs[idx]
	}
	return ""
}

func (q *quizState) questionLocked(idx int) domain.QuestionSnapshot {
	if idx >= 0 && idx < len(q.cfg.Questions) {
		return q.cfg.Questions[idx]
	}
	return nil
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// Every deadline-carrying payload includes both the sender's clock and the
// absolute deadline so clients can compute a clock offset once per message
// instead of trusting their own wall clock.
type waitingPayload struct {
	TimeLeft   int64 `json:"timeLeft"`
	ServerTime int64 `json:"serverTime"`
	EndTime    int64 `json:"endTime"`
}

type timeUpdatePayload struct {
	TimeLeft   int64 `json:"timeLeft"`
	ServerTime int64 `json:"serverTime"`
}

type questionPayload struct {
	CurrentIndex int                     `json:"currentIndex"`
	QuestionID   string                  `json:"questionId"`
	Question     domain.QuestionSnapshot `json:"question,omitempty"`
	TimeLeft     int64                   `json:"timeLeft"`
	ServerTime   int64                   `json:"serverTime"`
	EndTime      int64                   `json:"endTime"`
}

type countdownPayload struct {
	Count int `json:"count"`
}

type timeOutPayload struct {
	CurrentIndex int `json:"currentIndex"`
}
