package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/domain"
)

var errNotJoined = errors.New("join the room first")

// join adds the session's participant to its room with the socket as the
// liveness link. Errors are reported to the client and returned.
func (ctl *SignalWSController) join(ctx context.Context, s *session, name string, role domain.Role) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := ctl.Orch.Join(opCtx, s.room, s.pid, name, role, s.conn); err != nil {
		log.Info().Str("module", "signal").Str("room", string(s.room)).Str("pid", string(s.pid)).Err(err).Msg("join refused")
		ctl.sendError(s.conn, "join", err)
		return err
	}
	s.joined = true
	log.Info().Str("module", "signal").Str("room", string(s.room)).Str("pid", string(s.pid)).Str("role", string(role)).Msg("join")
	return nil
}

// handleJoin re-joins after a leave or changes name and role in place.
func (ctl *SignalWSController) handleJoin(ctx context.Context, s *session, data []byte) {
	var p struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendCode(s.conn, "join", "bad_payload", "malformed join")
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.sendError(s.conn, "join", err)
		return
	}
	_ = ctl.join(ctx, s, p.Name, role)
}

// handleLeave leaves the room; the connection stays open and keeps
// receiving room updates.
func (ctl *SignalWSController) handleLeave(ctx context.Context, s *session) {
	if !s.joined {
		ctl.sendJSON(s.conn, map[string]any{"type": "left"})
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	log.Info().Str("module", "signal").Str("room", string(s.room)).Str("pid", string(s.pid)).Msg("leave")
	if err := ctl.Orch.Leave(opCtx, s.room, s.pid); err != nil {
		ctl.sendError(s.conn, "leave", err)
		return
	}
	s.joined = false
	ctl.sendJSON(s.conn, map[string]any{"type": "left"})
}

func (ctl *SignalWSController) handleVote(ctx context.Context, s *session, data []byte) {
	var p struct {
		Card domain.Card `json:"card"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendCode(s.conn, "vote", "bad_payload", "malformed vote")
		return
	}
	ctl.apply(ctx, s, "vote", func(ctx context.Context) error {
		_, err := ctl.Orch.Vote(ctx, s.room, s.pid, p.Card)
		return err
	})
}

func (ctl *SignalWSController) handleReveal(ctx context.Context, s *session) {
	ctl.apply(ctx, s, "reveal", func(ctx context.Context) error {
		_, err := ctl.Orch.Reveal(ctx, s.room)
		return err
	})
}

func (ctl *SignalWSController) handleReset(ctx context.Context, s *session) {
	ctl.apply(ctx, s, "reset", func(ctx context.Context) error {
		_, err := ctl.Orch.Reset(ctx, s.room)
		return err
	})
}

func (ctl *SignalWSController) handleTopic(ctx context.Context, s *session, data []byte) {
	var p struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendCode(s.conn, "topic", "bad_payload", "malformed topic")
		return
	}
	ctl.apply(ctx, s, "topic", func(ctx context.Context) error {
		_, err := ctl.Orch.SetTopic(ctx, s.room, p.Topic)
		return err
	})
}

func (ctl *SignalWSController) handleCards(ctx context.Context, s *session, data []byte) {
	var p struct {
		Preset string `json:"preset"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendCode(s.conn, "cards", "bad_payload", "malformed cards")
		return
	}
	ctl.apply(ctx, s, "cards", func(ctx context.Context) error {
		_, err := ctl.Orch.SetCards(ctx, s.room, p.Preset)
		return err
	})
}

// apply runs a room operation for a joined session. Success is delivered
// through the bus, so only failures are answered directly.
func (ctl *SignalWSController) apply(ctx context.Context, s *session, op string, fn func(context.Context) error) {
	if !s.joined {
		ctl.sendError(s.conn, op, errNotJoined)
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := fn(opCtx); err != nil {
		ctl.sendError(s.conn, op, err)
	}
}
