// Package orch mediates signaling requests against the registry, the quiz
// engine and the external media engine.
package orch

import (
	"errors"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app/quiz"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

var (
	ErrNoSession         = errors.New("no session for peer")
	ErrAlreadyInRoom     = errors.New("peer already joined a room")
	ErrNotInRoom         = errors.New("peer has not joined a room")
	ErrRoomNotFound      = errors.New("room not found")
	ErrTransportNotFound = errors.New("transport not found")
	ErrProducerNotFound  = errors.New("producer not found")
	ErrConsumerNotFound  = errors.New("consumer not found")
	// ErrCannotConsume means the router cannot bridge the producer's codecs
	// to the caller's capabilities. Surfaced to the one requesting peer.
	ErrCannotConsume = errors.New("cannot consume: rtp capability mismatch")
)

type Orchestrator struct {
	Registry *app.Registry
	Engine   media.Engine
	Dispatch app.Dispatcher
	Quiz     *quiz.Engine
}
