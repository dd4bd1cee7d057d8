package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	defaultSendBuffer = 32
	defaultReadLimit  = 4096
	defaultPingPeriod = 54 * time.Second
	writeWait         = 5 * time.Second
	opTimeout         = 5 * time.Second
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
	// MsgRate and MsgBurst bound inbound messages per connection.
	MsgRate  float64
	MsgBurst int
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Bus      *app.Bus
	Presence *app.PresenceSet
	opts     Options
}

func NewSignalWSController(o *orch.Orchestrator, bus *app.Bus, presence *app.PresenceSet, opts Options) *SignalWSController {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MsgRate <= 0 {
		opts.MsgRate = 5
	}
	if opts.MsgBurst <= 0 {
		opts.MsgBurst = 10
	}
	return &SignalWSController{Orch: o, Bus: bus, Presence: presence, opts: opts}
}

// WsSignalConn is one client websocket. It is the room's liveness link
// for that client: Done closes once the socket is gone.
type WsSignalConn struct {
	id   domain.LinkID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool

	doneOnce sync.Once
	done     chan struct{}
}

var (
	_ core.Link             = (*WsSignalConn)(nil)
	_ core.SignalConnection = (*WsSignalConn)(nil)
)

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:   domain.LinkID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, buffer),
		done: make(chan struct{}),
	}
}

func (c *WsSignalConn) ID() domain.LinkID { return c.id }

func (c *WsSignalConn) Done() <-chan struct{} { return c.done }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. The write pump flushes what is queued and
// then closes the socket.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *WsSignalConn) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// session is the per-connection state owned by the read pump.
type session struct {
	room    domain.RoomID
	pid     domain.ParticipantID
	conn    *WsSignalConn
	limiter *rate.Limiter
	joined  bool
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and joins the caller to the room named
// by the :id path parameter, creating it when absent.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	pid := domain.ParticipantID(c.GetString("client_token"))
	name := c.Query("name")
	role, roleErr := domain.ParseRole(c.Query("role"))

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	log.Info().Str("module", "signal").Str("room", string(roomID)).Str("pid", string(pid)).
		Str("link", string(conn.id)).Msg("new WS connection")

	s := &session{
		room:    roomID,
		pid:     pid,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(ctl.opts.MsgRate), ctl.opts.MsgBurst),
	}

	topic := core.Topic(roomID)
	sub := ctl.Bus.Subscribe(topic)
	diffs := ctl.Presence.Subscribe(topic)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.forward(ctx, s, sub, diffs)

	// a failed join still runs the read pump so the socket is torn down
	// once the error frame is flushed
	switch {
	case roleErr != nil:
		ctl.sendError(conn, "join", roleErr)
		conn.Close()
	case ctl.join(ctx, s, name, role) != nil:
		conn.Close()
	}

	go ctl.readPump(ctx, s, func() {
		cancel()
		ctl.Bus.Unsubscribe(sub)
		ctl.Presence.Unsubscribe(topic, diffs)
	})
}
