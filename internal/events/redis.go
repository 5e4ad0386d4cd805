package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
)

// RedisPublisher mirrors bus messages onto Redis pub/sub channels named
// <prefix>:<topic>.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher connects to the Redis server at url (redis://...).
// An empty prefix selects DefaultPrefix.
func NewRedisPublisher(ctx context.Context, url, prefix string) (*RedisPublisher, error) {
	client, err := dialRedis(ctx, url)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisPublisher{client: client, prefix: prefix}, nil
}

// Channel returns the Redis channel a topic is published on.
func (p *RedisPublisher) Channel(topic string) string {
	return p.prefix + ":" + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.client.Publish(ctx, p.Channel(topic), data).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// RedisSubscriber receives bridged events from Redis pub/sub.
type RedisSubscriber struct {
	client *redis.Client
}

// NewRedisSubscriber connects to the Redis server at url.
func NewRedisSubscriber(ctx context.Context, url string) (*RedisSubscriber, error) {
	client, err := dialRedis(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RedisSubscriber{client: client}, nil
}

// Subscribe pattern-subscribes to channel. A trailing NATS-style ">" is
// accepted and treated as the Redis glob "*".
func (s *RedisSubscriber) Subscribe(channel string) (<-chan []byte, func(), error) {
	pattern := channel
	if p, ok := strings.CutSuffix(pattern, ">"); ok {
		pattern = p + "*"
	}

	ctx, stop := context.WithCancel(context.Background())
	ps := s.client.PSubscribe(ctx, pattern)
	// Receive waits for the subscription confirmation.
	if _, err := ps.Receive(ctx); err != nil {
		stop()
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", pattern, err)
	}

	ch := make(chan []byte, DefaultBuffer)
	done := make(chan struct{})
	go func() {
		defer close(ch)
		in := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case ch <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			stop()
			_ = ps.Close()
		})
	}
	return ch, cancel, nil
}

func (s *RedisSubscriber) Close() error {
	return s.client.Close()
}

func dialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
