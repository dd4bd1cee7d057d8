package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
)

const DefaultMaxRooms = 1000

var (
	ErrTooManyRooms  = errors.New("too many rooms")
	ErrManagerClosed = errors.New("room manager closed")
)

type CreateResult int

const (
	Created CreateResult = iota
	AlreadyExists
)

func (c CreateResult) String() string {
	if c == AlreadyExists {
		return "already_exists"
	}
	return "created"
}

type ManagerOptions struct {
	MaxRooms int
	Room     core.RoomConfig
	Bus      core.Publisher
	Presence core.Presence
	Now      func() time.Time
}

// RoomManager spawns room actors on demand, caps how many may live at
// once and reclaims the slot of every actor that stops.
type RoomManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	// mu makes the cap check and the insertion one step.
	mu    sync.Mutex
	rooms *Registry
	live  atomic.Int64

	max  int
	cfg  core.RoomConfig
	deps core.Deps
	wg   conc.WaitGroup
}

func NewRoomManager(parent context.Context, opts ManagerOptions) *RoomManager {
	ctx, cancel := context.WithCancel(parent)
	if opts.MaxRooms <= 0 {
		opts.MaxRooms = DefaultMaxRooms
	}
	m := &RoomManager{
		ctx:    ctx,
		cancel: cancel,
		rooms:  NewRegistry(),
		max:    opts.MaxRooms,
		cfg:    opts.Room,
		deps: core.Deps{
			Bus:      opts.Bus,
			Presence: opts.Presence,
			Now:      opts.Now,
		},
	}
	m.deps.OnStop = m.release
	return m
}

// CreateRoom starts an actor for id. A room that already runs is a
// success too, reported as AlreadyExists.
func (m *RoomManager) CreateRoom(id domain.RoomID) (CreateResult, error) {
	if _, ok := m.Lookup(id); ok {
		return AlreadyExists, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rooms.Lookup(id); ok {
		if alive(existing) {
			return AlreadyExists, nil
		}
		// stopped but not yet released
		m.forget(existing)
	}
	if m.ctx.Err() != nil {
		return 0, ErrManagerClosed
	}
	if int(m.live.Load()) >= m.max {
		metrics.Rejections.WithLabelValues("too_many_rooms").Inc()
		log.Warn().Str("module", "app.rooms").Str("room", string(id)).Int("max", m.max).Msg("room cap reached")
		return 0, ErrTooManyRooms
	}

	svc := core.NewRoomService(m.ctx, id, m.cfg, m.deps)
	m.rooms.InsertIfAbsent(id, svc)
	m.live.Add(1)
	metrics.RoomsLive.Inc()
	metrics.RoomsCreated.Inc()
	m.wg.Go(svc.Run)

	log.Info().Str("module", "app.rooms").Str("room", string(id)).Int64("live", m.live.Load()).Msg("room created")
	return Created, nil
}

// Lookup returns the running actor serving id.
func (m *RoomManager) Lookup(id domain.RoomID) (core.RoomService, bool) {
	svc, ok := m.rooms.Lookup(id)
	if !ok || !alive(svc) {
		return nil, false
	}
	return svc, true
}

func (m *RoomManager) RoomExists(id domain.RoomID) bool {
	_, ok := m.Lookup(id)
	return ok
}

func (m *RoomManager) CountRooms() int { return int(m.live.Load()) }

func (m *RoomManager) ListRoomIDs() []domain.RoomID { return m.rooms.IDs() }

// Shutdown stops every actor and waits for them to exit.
func (m *RoomManager) Shutdown() {
	m.cancel()
	m.wg.Wait()
	log.Info().Str("module", "app.rooms").Msg("all rooms stopped")
}

func (m *RoomManager) release(svc core.RoomService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forget(svc)
}

// forget must be called with mu held.
func (m *RoomManager) forget(svc core.RoomService) {
	if m.rooms.RemoveIf(svc.ID(), svc) {
		m.live.Add(-1)
		metrics.RoomsLive.Dec()
		log.Info().Str("module", "app.rooms").Str("room", string(svc.ID())).Int64("live", m.live.Load()).Msg("room released")
	}
}

func alive(svc core.RoomService) bool {
	select {
	case <-svc.Done():
		return false
	default:
		return true
	}
}
