package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

const (
	roomIDLen    = 8
	idAttempts   = 5
	joinAttempts = 3
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrIDGeneration = errors.New("could not generate a unique room id")
)

// Orchestrator is the operation surface callers use. It resolves room ids
// to actors and creates rooms on join.
type Orchestrator struct {
	Rooms *app.RoomManager
	// NewID returns a candidate room id. Defaults to a short uuid prefix.
	NewID func() string
}

func New(rooms *app.RoomManager) *Orchestrator {
	return &Orchestrator{Rooms: rooms}
}

func (o *Orchestrator) CreateRoom(id domain.RoomID) (app.CreateResult, error) {
	return o.Rooms.CreateRoom(id)
}

func (o *Orchestrator) RoomExists(id domain.RoomID) bool { return o.Rooms.RoomExists(id) }

func (o *Orchestrator) CountRooms() int { return o.Rooms.CountRooms() }

func (o *Orchestrator) ListRoomIDs() []domain.RoomID { return o.Rooms.ListRoomIDs() }

// ListRooms reports every live room with its player count. Rooms that
// stop while being listed are skipped.
func (o *Orchestrator) ListRooms(ctx context.Context) []core.RoomInfo {
	ids := o.Rooms.ListRoomIDs()
	out := make([]core.RoomInfo, 0, len(ids))
	for _, id := range ids {
		room, err := o.GetState(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, core.RoomInfo{ID: id, PlayerCount: room.PlayerCount()})
	}
	return out
}

// NewRoomID returns an id no live room uses yet.
func (o *Orchestrator) NewRoomID() (domain.RoomID, error) {
	gen := o.NewID
	if gen == nil {
		gen = shortUUID
	}
	for i := 0; i < idAttempts; i++ {
		id := domain.RoomID(gen())
		if id != "" && !o.Rooms.RoomExists(id) {
			return id, nil
		}
	}
	log.Warn().Str("module", "orch").Int("attempts", idAttempts).Msg("room id generation exhausted")
	return "", ErrIDGeneration
}

// CreateUniqueRoom picks a fresh id and starts a room for it.
func (o *Orchestrator) CreateUniqueRoom() (domain.RoomID, error) {
	id, err := o.NewRoomID()
	if err != nil {
		return "", err
	}
	if _, err := o.Rooms.CreateRoom(id); err != nil {
		return "", err
	}
	return id, nil
}

func shortUUID() string {
	return uuid.New().String()[:roomIDLen]
}

func (o *Orchestrator) room(id domain.RoomID) (core.RoomService, error) {
	svc, ok := o.Rooms.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return svc, nil
}

// withRoom runs fn against the actor serving id. ErrRoomClosed from an
// actor that stopped in between is reported as ErrRoomNotFound.
func (o *Orchestrator) withRoom(id domain.RoomID, fn func(core.RoomService) (domain.Room, error)) (domain.Room, error) {
	svc, err := o.room(id)
	if err != nil {
		return domain.Room{}, err
	}
	room, err := fn(svc)
	if errors.Is(err, core.ErrRoomClosed) {
		return domain.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return room, err
}

