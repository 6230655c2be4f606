package domain

import "encoding/json"

// Phase is one state of a room's quiz timeline.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseInQuestion
	PhaseTimedOut
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseInQuestion:
		return "in_question"
	case PhaseTimedOut:
		return "timed_out"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// QuestionSnapshot is the authored question payload as received from the
// quiz builder. The coordinator never inspects it, only rebroadcasts it.
type QuestionSnapshot = json.RawMessage

// QuizConfig is the timing plan the first joiner supplies for a room's quiz.
type QuizConfig struct {
	WaitingDurationMs     int64
	PerQuestionDurationMs int64
	QuestionIDs           []string
	Questions             []QuestionSnapshot
}
