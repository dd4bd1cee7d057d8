package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// PresenceDiff reports connections that appeared or went away.
type PresenceDiff struct {
	Joins  map[domain.LinkID]core.PresenceMeta `json:"joins"`
	Leaves map[domain.LinkID]core.PresenceMeta `json:"leaves"`
}

var _ core.Presence = (*PresenceSet)(nil)

// PresenceSet tracks live connections per topic and pushes diffs to its
// subscribers. It is display-only: rooms never read it back.
type PresenceSet struct {
	mu     sync.Mutex
	topics map[string]map[domain.LinkID]core.PresenceMeta
	subs   map[string]map[chan PresenceDiff]struct{}
}

func NewPresenceSet() *PresenceSet {
	return &PresenceSet{
		topics: make(map[string]map[domain.LinkID]core.PresenceMeta),
		subs:   make(map[string]map[chan PresenceDiff]struct{}),
	}
}

func (p *PresenceSet) Track(topic string, link domain.LinkID, meta core.PresenceMeta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	links, ok := p.topics[topic]
	if !ok {
		links = make(map[domain.LinkID]core.PresenceMeta)
		p.topics[topic] = links
	}
	links[link] = meta
	p.notify(topic, PresenceDiff{Joins: map[domain.LinkID]core.PresenceMeta{link: meta}})
}

func (p *PresenceSet) Untrack(topic string, link domain.LinkID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	links, ok := p.topics[topic]
	if !ok {
		return
	}
	meta, ok := links[link]
	if !ok {
		return
	}
	delete(links, link)
	if len(links) == 0 {
		delete(p.topics, topic)
	}
	p.notify(topic, PresenceDiff{Leaves: map[domain.LinkID]core.PresenceMeta{link: meta}})
}

// Online lists the participants with at least one live connection,
// ordered by name.
func (p *PresenceSet) Online(topic string) []core.PresenceMeta {
	p.mu.Lock()
	seen := make(map[domain.ParticipantID]core.PresenceMeta)
	for _, meta := range p.topics[topic] {
		seen[meta.ID] = meta
	}
	p.mu.Unlock()

	out := make([]core.PresenceMeta, 0, len(seen))
	for _, meta := range seen {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (p *PresenceSet) Subscribe(topic string) <-chan PresenceDiff {
	ch := make(chan PresenceDiff, DefaultSubscriberBuffer)
	p.mu.Lock()
	defer p.mu.Unlock()
	subs, ok := p.subs[topic]
	if !ok {
		subs = make(map[chan PresenceDiff]struct{})
		p.subs[topic] = subs
	}
	subs[ch] = struct{}{}
	return ch
}

func (p *PresenceSet) Unsubscribe(topic string, ch <-chan PresenceDiff) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.subs[topic] {
		if sub == ch {
			delete(p.subs[topic], sub)
			close(sub)
		}
	}
	if len(p.subs[topic]) == 0 {
		delete(p.subs, topic)
	}
}

// notify must be called with mu held. Diffs are dropped for full subscribers.
func (p *PresenceSet) notify(topic string, diff PresenceDiff) {
	for ch := range p.subs[topic] {
		select {
		case ch <- diff:
		default:
		}
	}
}
