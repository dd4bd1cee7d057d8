package signal

import (
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// PlayerView hides other players' cards until the round is revealed.
type PlayerView struct {
	ID    domain.ParticipantID `json:"id"`
	Name  string               `json:"name"`
	Role  domain.Role          `json:"role"`
	Voted bool                 `json:"voted"`
	Vote  domain.Card          `json:"vote"`
}

type RoomView struct {
	ID       domain.RoomID         `json:"id"`
	Players  []PlayerView          `json:"players"`
	Revealed bool                  `json:"revealed"`
	Cards    []domain.Card         `json:"cards"`
	Preset   string                `json:"preset"`
	Topic    string                `json:"topic,omitempty"`
	History  []domain.HistoryEntry `json:"history"`
	Stats    *domain.Statistics    `json:"stats,omitempty"`
	AllVoted bool                  `json:"all_voted"`
	Online   []core.PresenceMeta   `json:"online"`
}

type stateMessage struct {
	Type string               `json:"type"`
	You  domain.ParticipantID `json:"you"`
	Room RoomView             `json:"room"`
}

type presenceMessage struct {
	Type   string                              `json:"type"`
	Joins  map[domain.LinkID]core.PresenceMeta `json:"joins,omitempty"`
	Leaves map[domain.LinkID]core.PresenceMeta `json:"leaves,omitempty"`
}

// NewRoomView renders room as seen by viewer.
func NewRoomView(room domain.Room, viewer domain.ParticipantID) RoomView {
	v := RoomView{
		ID:       room.ID,
		Players:  make([]PlayerView, 0, len(room.Players)),
		Revealed: room.Revealed,
		Cards:    room.Cards,
		Preset:   room.Preset,
		Topic:    room.Topic,
		History:  room.History,
		AllVoted: room.AllVoted(),
	}
	for _, p := range room.Players {
		pv := PlayerView{ID: p.ID, Name: p.Name, Role: p.Role, Voted: p.HasVoted()}
		if room.Revealed || p.ID == viewer {
			pv.Vote = p.Vote
		}
		v.Players = append(v.Players, pv)
	}
	if stats, ok := room.Statistics(); ok {
		v.Stats = &stats
	}
	return v
}

func (ctl *SignalWSController) stateMessage(room domain.Room, viewer domain.ParticipantID) stateMessage {
	v := NewRoomView(room, viewer)
	v.Online = ctl.Presence.Online(core.Topic(room.ID))
	return stateMessage{Type: "room_state", You: viewer, Room: v}
}
