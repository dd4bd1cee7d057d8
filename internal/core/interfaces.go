package core

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/dkeye/Poker/internal/core Publisher,Presence

import "github.com/dkeye/Poker/internal/domain"

// Publisher fans a committed snapshot out to every subscriber of topic.
// Publish must never block the caller.
type Publisher interface {
	Publish(topic string, room domain.Room)
}

// PresenceMeta is what a live connection exposes to other members.
type PresenceMeta struct {
	ID   domain.ParticipantID `json:"id"`
	Name string               `json:"name"`
	Role domain.Role          `json:"role"`
}

// Presence tracks live connections per topic. It is owned outside the
// room; the room only registers and deregisters links.
type Presence interface {
	Track(topic string, link domain.LinkID, meta PresenceMeta)
	Untrack(topic string, link domain.LinkID)
}

// Link is a liveness handle held by one client connection. Done is
// closed when the connection goes away, for whatever reason.
type Link interface {
	ID() domain.LinkID
	Done() <-chan struct{}
}

// Topic is the bus and presence topic of a room.
func Topic(id domain.RoomID) string { return "room:" + string(id) }
