// Package server exposes the EventService over HTTP/JSON, Server-Sent
// Events, WebSocket and gRPC.
package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/rpc"
	"github.com/alfredjeanlab/eventboard/internal/service"
)

// Acknowledgement messages returned by mutating endpoints.
const (
	msgUpdated = "Event updated successfully."
	msgDeleted = "Event deleted successfully."
)

// EventServer implements rpc.EventServiceServer and the HTTP handlers.
type EventServer struct {
	svc *service.EventService
	bus *events.Bus

	gatherer    prometheus.Gatherer
	httpMetrics *httpMetrics
}

// Compile-time check that EventServer implements the gRPC service.
var _ rpc.EventServiceServer = (*EventServer)(nil)

// Option configures an EventServer.
type Option func(*EventServer)

// WithRegistry exposes reg at GET /metrics and records HTTP metrics in it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *EventServer) {
		s.gatherer = reg
		s.httpMetrics = newHTTPMetrics(reg)
	}
}

// NewEventServer returns a server for svc whose streams subscribe to bus.
func NewEventServer(svc *service.EventService, bus *events.Bus, opts ...Option) *EventServer {
	s := &EventServer{
		svc:      svc,
		bus:      bus,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpMetrics == nil {
		s.httpMetrics = newHTTPMetrics(nil)
	}
	return s
}
