package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultInboxSize   = 64
)

type RoomConfig struct {
	IdleTimeout time.Duration
	InboxSize   int
}

type Deps struct {
	Bus      Publisher
	Presence Presence // optional
	Now      func() time.Time
	// OnStop runs on the actor goroutine once the actor has stopped.
	OnStop func(RoomService)
}

type result struct {
	room domain.Room
	err  error
}

type request struct {
	op      string
	mutates bool
	run     func() (domain.Room, error)
	reply   chan result
}

// roomActor owns one domain.Room. Only run() touches state, watched and
// stopping; every other method talks to it through inbox.
type roomActor struct {
	id    domain.RoomID
	topic string
	cfg   RoomConfig
	deps  Deps

	ctx   context.Context
	inbox chan request
	done  chan struct{}

	state    domain.Room
	watched  map[domain.LinkID]struct{}
	stopping bool
}

// NewRoomService builds a room actor. The caller starts it with Run.
// Cancelling ctx stops the actor.
func NewRoomService(ctx context.Context, id domain.RoomID, cfg RoomConfig, deps Deps) RoomService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &roomActor{
		id:      id,
		topic:   Topic(id),
		cfg:     cfg,
		deps:    deps,
		ctx:     ctx,
		inbox:   make(chan request, cfg.InboxSize),
		done:    make(chan struct{}),
		state:   domain.NewRoom(id),
		watched: make(map[domain.LinkID]struct{}),
	}
}

func (a *roomActor) ID() domain.RoomID { return a.id }

func (a *roomActor) Done() <-chan struct{} { return a.done }

// Run processes requests until the room empties, idles out, crashes or
// its context is cancelled. It must be called exactly once.
func (a *roomActor) Run() {
	defer a.stop()

	idle := time.NewTimer(a.cfg.IdleTimeout)
	defer idle.Stop()

	log.Info().Str("module", "core.room").Str("room", string(a.id)).Msg("room started")
	for {
		select {
		case req := <-a.inbox:
			if a.handle(req) {
				return
			}
		case <-idle.C:
			if a.state.IsEmpty() {
				log.Info().Str("module", "core.room").Str("room", string(a.id)).Msg("room idle, stopping")
				return
			}
			idle.Reset(a.cfg.IdleTimeout)
		case <-a.ctx.Done():
			return
		}
	}
}

// handle applies one request and reports whether the actor must stop.
func (a *roomActor) handle(req request) bool {
	var res result
	var pc panics.Catcher
	pc.Try(func() { res.room, res.err = req.run() })
	if r := pc.Recovered(); r != nil {
		log.Error().Str("module", "core.room").Str("room", string(a.id)).Str("op", req.op).
			Str("panic", r.String()).Msg("room crashed")
		metrics.Rejections.WithLabelValues("crashed").Inc()
		req.reply <- result{err: fmt.Errorf("%w: %w", ErrRoomCrashed, r.AsError())}
		return true
	}

	switch {
	case res.err != nil:
		reason := domain.Code(res.err)
		if reason == "" {
			reason = "other"
		}
		metrics.Rejections.WithLabelValues(reason).Inc()
		log.Debug().Str("module", "core.room").Str("room", string(a.id)).Str("op", req.op).Err(res.err).Msg("request rejected")
	case req.mutates:
		metrics.Mutations.WithLabelValues(req.op).Inc()
	}
	req.reply <- res
	return a.stopping
}

func (a *roomActor) stop() {
	close(a.done)
	for _, link := range a.state.Links() {
		a.untrack(link)
	}
	log.Info().Str("module", "core.room").Str("room", string(a.id)).Int("players", a.state.PlayerCount()).Msg("room stopped")
	if a.deps.OnStop != nil {
		a.deps.OnStop(a)
	}
}

// call queues fn on the actor and waits for its result. Once accepted a
// request always runs, even if ctx is cancelled while waiting.
func (a *roomActor) call(ctx context.Context, op string, mutates bool, fn func() (domain.Room, error)) (domain.Room, error) {
	req := request{op: op, mutates: mutates, run: fn, reply: make(chan result, 1)}
	select {
	case a.inbox <- req:
	case <-a.done:
		return domain.Room{}, ErrRoomClosed
	case <-ctx.Done():
		return domain.Room{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.room, res.err
	case <-a.done:
		select {
		case res := <-req.reply:
			return res.room, res.err
		default:
			return domain.Room{}, ErrRoomClosed
		}
	case <-ctx.Done():
		return domain.Room{}, ctx.Err()
	}
}

// commit stores next and publishes it before the caller gets its reply.
func (a *roomActor) commit(next domain.Room) domain.Room {
	a.state = next
	if a.deps.Bus != nil {
		a.deps.Bus.Publish(a.topic, next)
	}
	return next
}

func (a *roomActor) track(link domain.LinkID, p domain.Player) {
	if a.deps.Presence != nil {
		a.deps.Presence.Track(a.topic, link, PresenceMeta{ID: p.ID, Name: p.Name, Role: p.Role})
	}
}

func (a *roomActor) untrack(link domain.LinkID) {
	if a.deps.Presence != nil {
		a.deps.Presence.Untrack(a.topic, link)
	}
}

// watch turns the closing of link into a disconnect request.
func (a *roomActor) watch(link Link) {
	id := link.ID()
	if _, ok := a.watched[id]; ok {
		return
	}
	a.watched[id] = struct{}{}
	go func() {
		select {
		case <-link.Done():
		case <-a.done:
			return
		}
		req := request{op: "disconnect", mutates: true, run: func() (domain.Room, error) {
			return a.disconnect(id), nil
		}, reply: make(chan result, 1)}
		select {
		case a.inbox <- req:
		case <-a.done:
		}
	}()
}

// remove drops id from the room and stops the actor if it became empty.
func (a *roomActor) remove(id domain.ParticipantID) domain.Room {
	if _, ok := a.state.Player(id); !ok {
		return a.state
	}
	for _, link := range a.state.LinksOf(id) {
		a.untrack(link)
		delete(a.watched, link)
	}
	next := a.commit(a.state.RemovePlayer(id))
	if next.IsEmpty() {
		a.stopping = true
	}
	return next
}

func (a *roomActor) disconnect(link domain.LinkID) domain.Room {
	delete(a.watched, link)
	next, owner, last := a.state.DropLink(link)
	if owner == "" {
		return a.state
	}
	a.untrack(link)
	log.Info().Str("module", "core.room").Str("room", string(a.id)).Str("pid", string(owner)).
		Str("link", string(link)).Bool("last", last).Msg("connection lost")
	if !last {
		a.state = next
		return next
	}
	a.state = next
	return a.remove(owner)
}

func (a *roomActor) Join(ctx context.Context, id domain.ParticipantID, name string, role domain.Role, link Link) (domain.Room, error) {
	return a.call(ctx, "join", true, func() (domain.Room, error) {
		var linkID domain.LinkID
		if link != nil {
			linkID = link.ID()
		}
		next, err := a.state.AddPlayer(id, name, role, linkID)
		if err != nil {
			return a.state, err
		}
		if link != nil {
			p, _ := next.Player(id)
			a.track(linkID, p)
			a.watch(link)
		}
		log.Info().Str("module", "core.room").Str("room", string(a.id)).Str("pid", string(id)).
			Str("role", string(role)).Int("players", next.PlayerCount()).Msg("player joined")
		return a.commit(next), nil
	})
}

func (a *roomActor) Leave(ctx context.Context, id domain.ParticipantID) error {
	_, err := a.call(ctx, "leave", true, func() (domain.Room, error) {
		log.Info().Str("module", "core.room").Str("room", string(a.id)).Str("pid", string(id)).Msg("player left")
		return a.remove(id), nil
	})
	return err
}

// Vote checks membership before the rate limit so unknown identities
// never grow the rate log.
func (a *roomActor) Vote(ctx context.Context, id domain.ParticipantID, card domain.Card) (domain.Room, error) {
	return a.call(ctx, "vote", true, func() (domain.Room, error) {
		if _, ok := a.state.Player(id); !ok {
			return a.state, domain.ErrPlayerNotFound
		}
		limited, err := a.state.CheckRateLimit(id, a.deps.Now())
		if err != nil {
			return a.state, err
		}
		// the attempt counts even when the vote itself is refused
		a.state = limited
		next, err := limited.Vote(id, card)
		if err != nil {
			return a.state, err
		}
		return a.commit(next), nil
	})
}

func (a *roomActor) Reveal(ctx context.Context) (domain.Room, error) {
	return a.call(ctx, "reveal", true, func() (domain.Room, error) {
		return a.commit(a.state.Reveal()), nil
	})
}

func (a *roomActor) Reset(ctx context.Context) (domain.Room, error) {
	return a.call(ctx, "reset", true, func() (domain.Room, error) {
		return a.commit(a.state.Reset(a.deps.Now())), nil
	})
}

func (a *roomActor) SetTopic(ctx context.Context, text string) (domain.Room, error) {
	return a.call(ctx, "topic", true, func() (domain.Room, error) {
		return a.commit(a.state.SetTopic(text)), nil
	})
}

func (a *roomActor) SetCards(ctx context.Context, preset string) (domain.Room, error) {
	return a.call(ctx, "cards", true, func() (domain.Room, error) {
		next, err := a.state.SetCards(preset)
		if err != nil {
			return a.state, err
		}
		return a.commit(next), nil
	})
}

func (a *roomActor) State(ctx context.Context) (domain.Room, error) {
	return a.call(ctx, "state", false, func() (domain.Room, error) {
		return a.state, nil
	})
}
