package orch

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Join adds pid to room id, creating the room first when nobody serves
// it. A room that stops between lookup and join is recreated.
func (o *Orchestrator) Join(ctx context.Context, id domain.RoomID, pid domain.ParticipantID, name string, role domain.Role, link core.Link) (domain.Room, error) {
	var err error
	for i := 0; i < joinAttempts; i++ {
		if _, err = o.Rooms.CreateRoom(id); err != nil {
			return domain.Room{}, err
		}
		svc, ok := o.Rooms.Lookup(id)
		if !ok {
			err = core.ErrRoomClosed
			continue
		}
		var room domain.Room
		room, err = svc.Join(ctx, pid, name, role, link)
		if !errors.Is(err, core.ErrRoomClosed) {
			return room, err
		}
		log.Debug().Str("module", "orch").Str("room", string(id)).Int("attempt", i+1).Msg("room closed during join, retrying")
	}
	return domain.Room{}, err
}

// Leave is a no-op for unknown rooms and players.
func (o *Orchestrator) Leave(ctx context.Context, id domain.RoomID, pid domain.ParticipantID) error {
	svc, ok := o.Rooms.Lookup(id)
	if !ok {
		return nil
	}
	if err := svc.Leave(ctx, pid); err != nil && !errors.Is(err, core.ErrRoomClosed) {
		return err
	}
	return nil
}

func (o *Orchestrator) Vote(ctx context.Context, id domain.RoomID, pid domain.ParticipantID, card domain.Card) (domain.Room, error) {
	return o.withRoom(id, func(svc core.RoomService) (domain.Room, error) {
		return svc.Vote(ctx, pid, card)
	})
}

func (o *Orchestrator) Reveal(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	return o.withRoom(id, func(svc core.RoomService) (domain.Room, error) {
		return svc.Reveal(ctx)
	})
}

func (o *Orchestrator) Reset(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	return o.withRoom(id, func(svc core.RoomService) (domain.Room, error) {
		return svc.Reset(ctx)
	})
}

func (o *Orchestrator) SetTopic(ctx context.Context, id domain.RoomID, text string) (domain.Room, error) {
	return o.withRoom(id, func(svc core.RoomService) (domain.Room, error) {
		return svc.SetTopic(ctx, text)
	})
}

func (o *Orchestrator) SetCards(ctx context.Context, id domain.RoomID, preset string) (domain.Room, error) {
	return o.withRoom(id, func(svc core.RoomService) (domain.Room, error) {
		return svc.SetCards(ctx, preset)
	})
}

func (o *Orchestrator) GetState(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	return o.withRoom(id, func(svc core.RoomService) (domain.Room, error) {
		return svc.State(ctx)
	})
}
