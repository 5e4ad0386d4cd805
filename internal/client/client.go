// Package client provides a transport-agnostic interface for the eventboard
// service, with HTTP/JSON and gRPC implementations.
package client

import (
	"context"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/model"
)

// EventsClient is the interface every eventboard CLI command uses to talk
// to the server. It is implemented by HTTPClient (default) and GRPCClient.
type EventsClient interface {
	ListEvents(ctx context.Context) ([]*model.EventView, error)
	GetEvent(ctx context.Context, id string) (*model.EventView, error)
	CreateEvent(ctx context.Context, in model.NewEventInput) (*model.EventView, error)
	UpdateEvent(ctx context.Context, id string, u model.EventUpdate) (*model.EventView, error)
	DeleteEvent(ctx context.Context, id string) error

	// Watch opens a notification stream. The stream ends when ctx is
	// cancelled, Close is called, or the server drops the subscriber.
	Watch(ctx context.Context, opts WatchOptions) (Stream, error)

	Health(ctx context.Context) (string, error)

	Close() error
}

// WatchOptions selects what a Watch stream delivers. Empty Topics means
// every topic.
type WatchOptions struct {
	Topics   []string
	Snapshot bool
}

// Stream is an open notification stream.
type Stream interface {
	// Recv blocks for the next message. It returns io.EOF once the server
	// ends the stream.
	Recv() (*events.Message, error)
	Close() error
}
