package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBuffer is the per-subscriber channel capacity.
	DefaultBuffer = 64

	// DefaultMaxMissed is how many consecutive messages a subscriber may
	// miss before it is evicted.
	DefaultMaxMissed = 8
)

// Message is one published notification as handed to subscribers.
type Message struct {
	Seq   uint64          `json:"seq"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// BusConfig configures a Bus. Zero values select the defaults.
type BusConfig struct {
	Buffer    int
	MaxMissed int

	// Bridge, when set, receives every published payload after local
	// delivery.
	Bridge Publisher

	Metrics *Metrics
}

// Bus is an in-process publish/subscribe hub. Publish never blocks on a
// subscriber: a full buffer means that subscriber misses the message.
type Bus struct {
	buffer    int
	maxMissed int
	bridge    Publisher
	metrics   *Metrics

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	seq    uint64
	closed bool
}

// NewBus returns a Bus configured by cfg.
func NewBus(cfg BusConfig) *Bus {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.MaxMissed <= 0 {
		cfg.MaxMissed = DefaultMaxMissed
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	return &Bus{
		buffer:    cfg.Buffer,
		maxMissed: cfg.MaxMissed,
		bridge:    cfg.Bridge,
		metrics:   cfg.Metrics,
		subs:      make(map[*Subscription]struct{}),
	}
}

// Subscription is one registered observer. Its channel is closed when the
// subscription is cancelled, evicted, or the bus is closed.
type Subscription struct {
	ID          string
	Client      string
	Topics      []string
	ConnectedAt time.Time

	ch      chan *Message
	once    sync.Once
	missed  int // consecutive, guarded by Bus.mu
	dropped int // total, guarded by Bus.mu
	evicted bool
}

// C returns the delivery channel.
func (s *Subscription) C() <-chan *Message { return s.ch }

// Matches reports whether the subscription's filters accept topic.
// An empty filter list matches all topics.
func (s *Subscription) Matches(topic string) bool {
	if len(s.Topics) == 0 {
		return true
	}
	for _, p := range s.Topics {
		if MatchTopic(p, topic) {
			return true
		}
	}
	return false
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// SubscriberInfo describes a live subscription.
type SubscriberInfo struct {
	ID          string    `json:"id"`
	Client      string    `json:"client,omitempty"`
	Topics      []string  `json:"topics"`
	ConnectedAt time.Time `json:"connectedAt"`
	Missed      int       `json:"missed"`
	Dropped     int       `json:"dropped"`
}

// Subscribe registers an anonymous observer for topics.
func (b *Bus) Subscribe(topics ...string) *Subscription {
	return b.SubscribeAs("", topics...)
}

// SubscribeAs registers an observer labelled client in the roster.
// Subscribing to a closed bus returns an already closed subscription.
func (b *Bus) SubscribeAs(client string, topics ...string) *Subscription {
	s := &Subscription{
		ID:          uuid.NewString(),
		Client:      client,
		Topics:      slices.Clone(topics),
		ConnectedAt: time.Now().UTC(),
		ch:          make(chan *Message, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.close()
		return s
	}
	b.subs[s] = struct{}{}
	b.metrics.Subscribers.Set(float64(len(b.subs)))
	slog.Info("subscriber connected", "subscriber_id", s.ID, "client", client, "topics", topics)
	return s
}

// Unsubscribe removes s and closes its channel. It is safe to call more
// than once and after eviction.
func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	_, ok := b.subs[s]
	if ok {
		delete(b.subs, s)
		b.metrics.Subscribers.Set(float64(len(b.subs)))
	}
	b.mu.Unlock()
	s.close()
	if ok {
		slog.Info("subscriber disconnected", "subscriber_id", s.ID, "client", s.Client)
	}
}

// Publish encodes payload once and offers it to every matching subscriber.
// A []byte or json.RawMessage payload is sent as is. The bridge is called
// after local delivery; its error is returned but local delivery has
// already happened.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.seq++
	msg := &Message{Seq: b.seq, Topic: topic, Data: data}
	for s := range b.subs {
		if !s.Matches(topic) {
			continue
		}
		select {
		case s.ch <- msg:
			s.missed = 0
		default:
			s.missed++
			s.dropped++
			b.metrics.Missed.Inc()
			if s.missed >= b.maxMissed {
				s.evicted = true
				delete(b.subs, s)
				s.close()
				b.metrics.Evicted.Inc()
				slog.Warn("subscriber evicted", "subscriber_id", s.ID, "client", s.Client, "dropped", s.dropped)
			}
		}
	}
	b.metrics.Subscribers.Set(float64(len(b.subs)))
	b.mu.Unlock()

	b.metrics.Published.WithLabelValues(topic).Inc()

	if b.bridge != nil {
		if err := b.bridge.Publish(ctx, topic, data); err != nil {
			return fmt.Errorf("bridge %s: %w", topic, err)
		}
	}
	return nil
}

// Evicted reports whether s was dropped for falling behind.
func (b *Bus) Evicted(s *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return s.evicted
}

// Subscribers returns the live roster ordered by connection time.
func (b *Bus) Subscribers() []SubscriberInfo {
	b.mu.Lock()
	out := make([]SubscriberInfo, 0, len(b.subs))
	for s := range b.subs {
		out = append(out, SubscriberInfo{
			ID:          s.ID,
			Client:      s.Client,
			Topics:      slices.Clone(s.Topics),
			ConnectedAt: s.ConnectedAt,
			Missed:      s.missed,
			Dropped:     s.dropped,
		})
	}
	b.mu.Unlock()

	slices.SortFunc(out, func(a, c SubscriberInfo) int {
		if n := a.ConnectedAt.Compare(c.ConnectedAt); n != 0 {
			return n
		}
		if a.ID < c.ID {
			return -1
		}
		if a.ID > c.ID {
			return 1
		}
		return 0
	})
	return out
}

// Close closes every subscription and the bridge. Later publishes are
// dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for s := range b.subs {
		s.close()
	}
	b.subs = map[*Subscription]struct{}{}
	b.metrics.Subscribers.Set(0)
	b.mu.Unlock()

	if b.bridge != nil {
		return b.bridge.Close()
	}
	return nil
}

func encode(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}
	return json.Marshal(payload)
}
