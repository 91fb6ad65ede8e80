// Package bus implements the bounded, named-topic event bus that connects
// the Sentinel, Worker, and DialogueBrain stages. Publish never blocks: a
// subscriber that falls behind loses its oldest queued events rather than
// stalling the publisher.
package bus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultQueueSize bounds each subscriber's per-topic queue.
const DefaultQueueSize = 128

// Event is the envelope carried on every topic. Data is left as `any` so
// each stage can publish its own concrete event struct (SilenceTriggerEvent,
// WorkerResult, SuggestionEvent, ...).
type Event struct {
	Topic string
	Data  any
}

// Handler processes one event. A Handler must not block indefinitely: it
// runs on its subscription's dedicated goroutine, so a stuck handler only
// stalls its own subscription, never others.
type Handler func(Event)

// EventBus is a bounded, drop-oldest, multi-topic publish/subscribe bus.
// Each subscription owns its own queue and delivery goroutine, so one
// slow subscriber cannot reorder or stall another's events.
type EventBus struct {
	log *logrus.Logger

	mu     sync.RWMutex
	topics map[string]map[string]*subscription

	queueSize int
}

type subscription struct {
	id      string
	topic   string
	handler Handler

	mu      sync.Mutex
	queue   []Event
	cap     int
	dropped uint64

	notify chan struct{}
	done   chan struct{}
}

// New creates an EventBus with the default per-subscriber queue size.
func New(log *logrus.Logger) *EventBus {
	return NewWithQueueSize(log, DefaultQueueSize)
}

// NewWithQueueSize creates an EventBus whose per-subscriber queues hold at
// most queueSize events before dropping the oldest.
func NewWithQueueSize(log *logrus.Logger, queueSize int) *EventBus {
	if log == nil {
		log = logrus.New()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &EventBus{
		log:       log,
		topics:    make(map[string]map[string]*subscription),
		queueSize: queueSize,
	}
}

// Subscribe registers handler to receive every event published on topic,
// returning a subscription ID that Unsubscribe accepts. Each subscription
// gets its own bounded queue and a single dedicated goroutine, which is
// what guarantees in-order delivery to that handler.
func (b *EventBus) Subscribe(topic string, handler Handler) string {
	sub := &subscription{
		id:      uuid.New().String(),
		topic:   topic,
		handler: handler,
		cap:     b.queueSize,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[string]*subscription)
	}
	b.topics[topic][sub.id] = sub
	b.mu.Unlock()

	go b.deliver(sub)

	return sub.id
}

// Unsubscribe removes a subscription. It is idempotent: unsubscribing an
// already-removed or unknown ID is a no-op.
func (b *EventBus) Unsubscribe(topic, subscriptionID string) {
	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		b.mu.Unlock()
		return
	}
	sub, ok := subs[subscriptionID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(subs, subscriptionID)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	b.mu.Unlock()

	close(sub.done)
}

// Publish fans data out to every subscriber of topic. Delivery is
// asynchronous and non-blocking: if a subscriber's queue is full, its
// oldest queued event is dropped to make room for the new one.
func (b *EventBus) Publish(topic string, data any) {
	b.mu.RLock()
	subs := b.topics[topic]
	targets := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	evt := Event{Topic: topic, Data: data}
	for _, s := range targets {
		s.enqueue(evt, b.log)
	}
}

// QueueDepth returns the current queue depth for a subscription, used by
// tests to assert bounded, drop-oldest behavior without racing the
// delivery goroutine.
func (b *EventBus) QueueDepth(topic, subscriptionID string) int {
	b.mu.RLock()
	sub, ok := b.topics[topic][subscriptionID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return len(sub.queue)
}

func (s *subscription) enqueue(evt Event, log *logrus.Logger) {
	s.mu.Lock()
	if len(s.queue) >= s.cap {
		s.queue = s.queue[1:]
		s.dropped++
		log.WithFields(logrus.Fields{
			"topic":      s.topic,
			"subscriber": s.id,
			"dropped":    s.dropped,
		}).Warn("bus: subscriber queue full, dropping oldest event")
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Event{}, false
	}
	evt := s.queue[0]
	s.queue = s.queue[1:]
	return evt, true
}

func (b *EventBus) deliver(sub *subscription) {
	for {
		for {
			evt, ok := sub.pop()
			if !ok {
				break
			}
			b.invoke(sub, evt)
		}

		select {
		case <-sub.done:
			return
		case <-sub.notify:
		}
	}
}

// invoke calls the subscriber's handler, isolating any panic so it cannot
// take down the bus or any other subscription.
func (b *EventBus) invoke(sub *subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"topic":      sub.topic,
				"subscriber": sub.id,
				"panic":      fmt.Sprintf("%v", r),
			}).Error("bus: subscriber handler panicked, subscription continues")
		}
	}()
	sub.handler(evt)
}
