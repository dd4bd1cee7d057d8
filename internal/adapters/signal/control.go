package signal

import (
	"context"
	"errors"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type errorMessage struct {
	Type    string `json:"type"`
	Op      string `json:"op,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, op string, err error) {
	ctl.sendCode(conn, op, ErrorCode(err), err.Error())
}

func (ctl *SignalWSController) sendCode(conn *WsSignalConn, op, code, msg string) {
	ctl.sendJSON(conn, errorMessage{Type: "error", Op: op, Error: code, Message: msg})
}

// ErrorCode maps an operation error to the code sent to clients.
func ErrorCode(err error) string {
	if code := domain.Code(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, errNotJoined):
		return "not_joined"
	case errors.Is(err, app.ErrTooManyRooms):
		return "too_many_rooms"
	case errors.Is(err, app.ErrManagerClosed):
		return "shutting_down"
	case errors.Is(err, orch.ErrIDGeneration):
		return "id_generation"
	case errors.Is(err, orch.ErrRoomNotFound), errors.Is(err, core.ErrRoomClosed):
		return "room_not_found"
	case errors.Is(err, core.ErrRoomCrashed):
		return "room_crashed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "internal"
}
