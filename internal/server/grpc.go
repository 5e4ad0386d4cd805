package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/rpc"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the EventService, health, and reflection, and returns the
// server ready to serve.
func NewGRPCServer(s *EventServer) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor,
			StreamLoggingInterceptor,
		),
	)

	rpc.RegisterEventServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}

// ListEvents returns every event in display order.
func (s *EventServer) ListEvents(ctx context.Context, _ *rpc.ListEventsRequest) (*rpc.ListEventsResponse, error) {
	views, err := s.svc.List(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &rpc.ListEventsResponse{Events: views}, nil
}

// GetEvent returns one event.
func (s *EventServer) GetEvent(ctx context.Context, req *rpc.GetEventRequest) (*rpc.EventResponse, error) {
	view, err := s.svc.Get(ctx, req.ID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &rpc.EventResponse{Event: view}, nil
}

// CreateEvent adds a new occurring event.
func (s *EventServer) CreateEvent(ctx context.Context, req *rpc.CreateEventRequest) (*rpc.EventResponse, error) {
	view, err := s.svc.Create(ctx, model.NewEventInput{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
	})
	if err != nil {
		return nil, rpcError(err)
	}
	return &rpc.EventResponse{Event: view}, nil
}

// UpdateEvent applies a partial update.
func (s *EventServer) UpdateEvent(ctx context.Context, req *rpc.UpdateEventRequest) (*rpc.UpdateEventResponse, error) {
	view, err := s.svc.Update(ctx, req.ID, req.Update)
	if err != nil {
		return nil, rpcError(err)
	}
	return &rpc.UpdateEventResponse{Message: msgUpdated, Event: view}, nil
}

// DeleteEvent removes an event.
func (s *EventServer) DeleteEvent(ctx context.Context, req *rpc.DeleteEventRequest) (*rpc.DeleteEventResponse, error) {
	if err := s.svc.Delete(ctx, req.ID); err != nil {
		return nil, rpcError(err)
	}
	return &rpc.DeleteEventResponse{Message: msgDeleted}, nil
}

// Watch streams notifications until the client cancels, the subscriber is
// evicted, or the bus closes.
func (s *EventServer) Watch(req *rpc.WatchRequest, stream rpc.WatchServer) error {
	ctx := stream.Context()
	client := "grpc"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		client = "grpc " + p.Addr.String()
	}

	sub, first, err := s.openStream(ctx, client, req.Topics, req.Snapshot)
	if err != nil {
		return rpcError(err)
	}
	defer s.bus.Unsubscribe(sub)

	if first != nil {
		if err := stream.Send(first); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case msg, ok := <-sub.C():
			if !ok {
				if s.bus.Evicted(sub) {
					return status.Error(codes.ResourceExhausted, "subscriber fell behind")
				}
				return status.Error(codes.Unavailable, "server shutting down")
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
