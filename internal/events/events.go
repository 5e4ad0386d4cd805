// Package events carries change notifications: an in-process Bus that fans
// messages out to live subscribers, and Publisher/Subscriber bridges that
// mirror them onto NATS or Redis.
package events

import "context"

// Topic names. Local subscribers see them as is; bridges prefix them.
const (
	TopicEventCreated   = "event-created"
	TopicEventUpdated   = "event-updated"
	TopicEventDeleted   = "event-deleted"
	TopicEventsSnapshot = "events-snapshot"
	TopicToast          = "toast"
)

// AllTopics lists every topic the service publishes, in publication order.
var AllTopics = []string{
	TopicEventCreated,
	TopicEventUpdated,
	TopicEventDeleted,
	TopicEventsSnapshot,
	TopicToast,
}

// DefaultPrefix is prepended to topics when they leave the process.
const DefaultPrefix = "eventboard"

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from an external broker.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
