package local

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/pkg/logger"
)

const defaultQueueSize = 4096

type publishRequest struct {
	topic string
	event events.Event
}

type sub struct {
	bus   *Bus
	topic string
	id    uint64
}

func (s *sub) Unsubscribe() {
	s.bus.remove(s.topic, s.id)
}

// Bus is an in-process events.Bus. Handlers for one event run in their own
// goroutines, so a slow subscriber does not hold up the publish loop.
type Bus struct {
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	subs      map[string]map[uint64]events.Handler
	mu        sync.RWMutex
	nextID    atomic.Uint64
	publishCh chan publishRequest
	logger    *slog.Logger
	published atomic.Uint64
	dropped   atomic.Uint64
}

// allTopics keys the subscribers registered through SubscribeAll.
const allTopics = "*"

func NewBus() *Bus {
	return NewBusWithQueue(defaultQueueSize)
}

func NewBusWithQueue(size int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		subs:      make(map[string]map[uint64]events.Handler),
		publishCh: make(chan publishRequest, size),
		logger:    logger.Get(logger.Events),
	}

	go b.publishLoop()

	return b
}

func (b *Bus) Publish(topic string, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		event.Type = topic
	}

	select {
	case b.publishCh <- publishRequest{topic: topic, event: event}:
		b.published.Add(1)
	default:
		b.dropped.Add(1)
		b.logger.Warn("Publish channel full, dropping event", "topic", topic)
	}
}

func (b *Bus) publishLoop() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			return
		case req := <-b.publishCh:
			for _, h := range b.handlers(req.topic) {
				go h(req.event)
			}
		}
	}
}

func (b *Bus) handlers(topic string) []events.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]events.Handler, 0, len(b.subs[topic])+len(b.subs[allTopics]))
	for _, h := range b.subs[topic] {
		out = append(out, h)
	}
	for _, h := range b.subs[allTopics] {
		out = append(out, h)
	}
	return out
}

func (b *Bus) Subscribe(topic string, handler events.Handler) events.Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]events.Handler)
	}
	b.subs[topic][id] = handler
	count := len(b.subs[topic])
	b.mu.Unlock()

	b.logger.Debug("Subscribed to topic", "topic", topic, "handler_count", count)

	return &sub{bus: b, topic: topic, id: id}
}

func (b *Bus) SubscribeAll(handler events.Handler) events.Subscription {
	return b.Subscribe(allTopics, handler)
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topicSubs, ok := b.subs[topic]; ok {
		delete(topicSubs, id)
		if len(topicSubs) == 0 {
			delete(b.subs, topic)
		}
	}
}

func (b *Bus) Stats() events.Stats {
	b.mu.RLock()
	topics := make([]events.TopicStats, 0, len(b.subs))
	for topic, subs := range b.subs {
		topics = append(topics, events.TopicStats{
			Topic:       topic,
			Subscribers: len(subs),
		})
	}
	b.mu.RUnlock()

	sort.Slice(topics, func(i, j int) bool { return topics[i].Topic < topics[j].Topic })

	return events.Stats{
		Topics:       topics,
		PublishChLen: len(b.publishCh),
		PublishChCap: cap(b.publishCh),
		Published:    b.published.Load(),
		Dropped:      b.dropped.Load(),
	}
}

func (b *Bus) Close() error {
	b.cancel()
	<-b.done
	return nil
}
