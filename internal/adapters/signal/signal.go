package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app/orch"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/core"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type SignalWSController struct {
	Orch      *orch.Orchestrator
	ReadLimit int64
}

func NewSignalWSController(o *orch.Orchestrator, readLimit int64) *SignalWSController {
	return &SignalWSController{Orch: o, ReadLimit: readLimit}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and registers a fresh peer. The peer id
// is per-connection: a reconnect is a new peer and a fresh join.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	peerID := domain.PeerID(uuid.NewString())
	log.Info().Str("module", "signal").Str("peer", string(peerID)).Msg("new WS connection")

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	meta := domain.NewPeer(peerID, "", "", "")
	sess := core.NewPeerSession(meta, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(peerID, sess, cancel)

	go ctl.writePump(ctx, peerID, conn)
	go ctl.readPump(ctx, peerID, conn)

	ctl.sendEvent(conn, app.EvtConnectionSuccess, connectionSuccessPayload{SocketID: peerID})
}

type connectionSuccessPayload struct {
	SocketID domain.PeerID `json:"socketId"`
}

type errorPayload struct {
	Op    string `json:"op"`
	Error string `json:"error"`
}

func (ctl *SignalWSController) sendEvent(c *wsSignalConn, event string, payload any) {
	b, err := json.Marshal(app.Envelope{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("sendEvent marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", event).Msg("sendEvent dropped")
	}
}

func (ctl *SignalWSController) sendError(c *wsSignalConn, op string, err error) {
	ctl.sendEvent(c, app.EvtError, errorPayload{Op: op, Error: err.Error()})
}
