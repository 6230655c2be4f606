package domain

type RoomName string

// Participant is the human-facing view of a room member, kept separate from
// transport bookkeeping so clients can render a roster without seeing media
// state.
type Participant struct {
	PeerID      PeerID `json:"socketId"`
	DisplayName string `json:"username"`
	Email       string `json:"email"`
	IsHost      bool   `json:"isHost"`
}
