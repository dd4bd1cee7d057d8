package core

import (
	"context"
	"errors"

	"github.com/dkeye/Poker/internal/domain"
)

var (
	ErrRoomClosed  = errors.New("room closed")
	ErrRoomCrashed = errors.New("room crashed")
)

// RoomService is the handle of one room actor. Every call is queued to
// the actor and observes all previously accepted mutations.
type RoomService interface {
	ID() domain.RoomID
	// Run processes requests until the room terminates. Call it once.
	Run()
	// Done is closed once the actor has stopped.
	Done() <-chan struct{}

	Join(ctx context.Context, id domain.ParticipantID, name string, role domain.Role, link Link) (domain.Room, error)
	Leave(ctx context.Context, id domain.ParticipantID) error
	Vote(ctx context.Context, id domain.ParticipantID, card domain.Card) (domain.Room, error)
	Reveal(ctx context.Context) (domain.Room, error)
	Reset(ctx context.Context) (domain.Room, error)
	SetTopic(ctx context.Context, text string) (domain.Room, error)
	SetCards(ctx context.Context, preset string) (domain.Room, error)
	State(ctx context.Context) (domain.Room, error)
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	PlayerCount int           `json:"player_count"`
}
