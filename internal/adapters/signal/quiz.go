package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

var errHostOnly = errors.New("host only")

// handleJoinQuiz starts the room's quiz or, if one is already running,
// resyncs the caller to the shared timeline. Times arrive in seconds from
// the quiz builder UI.
func (ctl *SignalWSController) handleJoinQuiz(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		WaitingTime int64                     `json:"waitingTime"`
		TimeLimit   int64                     `json:"timeLimit"`
		QuestionIDs []string                  `json:"questionIds"`
		Questions   []domain.QuestionSnapshot `json:"questions"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "join-quiz", errBadPayload)
		return
	}
	sess, ok := ctl.Orch.Registry.GetSession(peerID)
	if !ok {
		ctl.sendError(conn, "join-quiz", errors.New("join a room first"))
		return
	}
	room := sess.Meta().Room()
	if room == "" {
		ctl.sendError(conn, "join-quiz", errors.New("join a room first"))
		return
	}

	log.Info().
		Str("module", "signal").
		Str("peer", string(peerID)).
		Str("room", string(room)).
		Int("questions", len(p.QuestionIDs)).
		Msg("join-quiz")

	ctl.Orch.Quiz.Join(room, peerID, domain.QuizConfig{
		WaitingDurationMs:     p.WaitingTime * 1000,
		PerQuestionDurationMs: p.TimeLimit * 1000,
		QuestionIDs:           p.QuestionIDs,
		Questions:             p.Questions,
	})
}

func (ctl *SignalWSController) handleQuickStart(peerID domain.PeerID, conn *wsSignalConn) {
	room, ok := ctl.hostRoom(peerID)
	if !ok {
		ctl.sendError(conn, "quick-start", errHostOnly)
		return
	}
	if err := ctl.Orch.Quiz.QuickStart(room); err != nil {
		ctl.sendError(conn, "quick-start", err)
	}
}

func (ctl *SignalWSController) handleNextQuestion(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "next-question", errBadPayload)
		return
	}
	room, ok := ctl.hostRoom(peerID)
	if !ok {
		ctl.sendError(conn, "next-question", errHostOnly)
		return
	}
	if err := ctl.Orch.Quiz.NextQuestion(room); err != nil {
		ctl.sendError(conn, "next-question", err)
	}
}

func (ctl *SignalWSController) handleQuizCompletion(peerID domain.PeerID, conn *wsSignalConn, data []byte) {
	var p struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "quiz-completion", errBadPayload)
		return
	}
	room, ok := ctl.hostRoom(peerID)
	if !ok {
		ctl.sendError(conn, "quiz-completion", errHostOnly)
		return
	}
	if err := ctl.Orch.Quiz.Complete(room); err != nil {
		ctl.sendError(conn, "quiz-completion", err)
	}
}

// hostRoom returns the peer's room if the peer is its current host.
func (ctl *SignalWSController) hostRoom(peerID domain.PeerID) (domain.RoomName, bool) {
	sess, ok := ctl.Orch.Registry.GetSession(peerID)
	if !ok {
		return "", false
	}
	meta := sess.Meta()
	room := meta.Room()
	if room == "" || !meta.Host() {
		return "", false
	}
	return room, true
}
