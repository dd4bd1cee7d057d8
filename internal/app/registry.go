package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Registry maps room ids to live room actors.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (r *Registry) Lookup(id domain.RoomID) (core.RoomService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.rooms[id]
	return svc, ok
}

// InsertIfAbsent stores svc under id unless another actor already serves
// it, in which case that actor is returned and inserted is false.
func (r *Registry) InsertIfAbsent(id domain.RoomID, svc core.RoomService) (current core.RoomService, inserted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rooms[id]; ok {
		return existing, false
	}
	r.rooms[id] = svc
	log.Debug().Str("module", "app.registry").Str("room", string(id)).Msg("registered room")
	return svc, true
}

// RemoveIf deletes id only while it still maps to svc, so a stopped actor
// never unregisters its successor.
func (r *Registry) RemoveIf(id domain.RoomID, svc core.RoomService) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.rooms[id]; !ok || current != svc {
		return false
	}
	delete(r.rooms, id)
	log.Debug().Str("module", "app.registry").Str("room", string(id)).Msg("unregistered room")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// IDs returns the registered ids sorted.
func (r *Registry) IDs() []domain.RoomID {
	r.mu.RLock()
	out := make([]domain.RoomID, 0, len(r.rooms))
	for id := range r.rooms {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns a copy of the current entries.
func (r *Registry) All() []core.RoomService {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomService, 0, len(r.rooms))
	for _, svc := range r.rooms {
		out = append(out, svc)
	}
	return out
}
