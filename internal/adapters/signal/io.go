package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("link", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("link", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump owns the session. When it returns the link is done and the
// room treats the client as disconnected.
func (ctl *SignalWSController) readPump(ctx context.Context, s *session, cleanup func()) {
	c := s.conn
	defer func() {
		log.Info().Str("module", "signal").Str("pid", string(s.pid)).Str("link", string(c.id)).Msg("readPump closing")
		c.Close()
		cleanup()
		c.finish()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("link", string(c.id)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(ctx, s, data)
		}
	}
}

// forward turns bus snapshots and presence diffs into frames for one client.
func (ctl *SignalWSController) forward(ctx context.Context, s *session, sub *app.Subscription, diffs <-chan app.PresenceDiff) {
	for {
		select {
		case <-ctx.Done():
			return
		case room, ok := <-sub.C():
			if !ok {
				// kicked by the bus or unsubscribed on close
				s.conn.Close()
				return
			}
			ctl.sendJSON(s.conn, ctl.stateMessage(room, s.pid))
		case diff, ok := <-diffs:
			if !ok {
				diffs = nil
				continue
			}
			ctl.sendJSON(s.conn, presenceMessage{Type: "presence_diff", Joins: diff.Joins, Leaves: diff.Leaves})
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, s *session, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendCode(s.conn, "", "bad_payload", "malformed message")
		return
	}
	if env.Type != "ping" && !s.limiter.Allow() {
		ctl.sendCode(s.conn, env.Type, "too_many_messages", "slow down")
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(s.conn)
	case "join":
		ctl.handleJoin(ctx, s, data)
	case "leave":
		ctl.handleLeave(ctx, s)
	case "vote":
		ctl.handleVote(ctx, s, data)
	case "reveal":
		ctl.handleReveal(ctx, s)
	case "reset":
		ctl.handleReset(ctx, s)
	case "topic":
		ctl.handleTopic(ctx, s, data)
	case "cards":
		ctl.handleCards(ctx, s, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendCode(s.conn, env.Type, "unknown_type", "unknown message type")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil && !errors.Is(err, ErrConnClosed) {
		log.Warn().Err(err).Str("module", "signal").Str("link", string(c.id)).Msg("frame dropped")
	}
}

