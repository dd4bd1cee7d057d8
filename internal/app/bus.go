package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
)

const DefaultSubscriberBuffer = 16

// Subscription receives every snapshot published on its topic. C is
// closed on Unsubscribe or when the bus kicks a slow subscriber.
type Subscription struct {
	topic string
	ch    chan domain.Room
}

func (s *Subscription) Topic() string { return s.topic }
func (s *Subscription) C() <-chan domain.Room { return s.ch }

var _ core.Publisher = (*Bus)(nil)

// Bus is an in-process publish/subscribe hub with one topic per room.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	policy Policy
}

func NewBus(buffer int, policy Policy) *Bus {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Bus{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		policy: policy,
	}
}

func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan domain.Room, b.buffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe is idempotent.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
	}
}

func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Publish never blocks: a full subscriber is handled by the policy.
func (b *Bus) Publish(topic string, room domain.Room) {
	var kicked []*Subscription

	b.mu.RLock()
	for sub := range b.topics[topic] {
		select {
		case sub.ch <- room:
			continue
		default:
		}
		metrics.BusDropped.Inc()
		switch b.policy.OnBackPressure(topic, sub) {
		case ReplaceStale:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- room:
			default:
			}
		case KickMember:
			kicked = append(kicked, sub)
		case DropFrame:
		}
	}
	b.mu.RUnlock()

	for _, sub := range kicked {
		log.Warn().Str("module", "app.bus").Str("topic", topic).Msg("kicking slow subscriber")
		b.Unsubscribe(sub)
	}
}
