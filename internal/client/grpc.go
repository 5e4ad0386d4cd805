package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/rpc"
)

// GRPCClient implements EventsClient using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *rpc.EventServiceClient
	health healthpb.HealthClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewEventServiceClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) ListEvents(ctx context.Context) ([]*model.EventView, error) {
	resp, err := c.client.ListEvents(ctx, &rpc.ListEventsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *GRPCClient) GetEvent(ctx context.Context, id string) (*model.EventView, error) {
	resp, err := c.client.GetEvent(ctx, &rpc.GetEventRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Event, nil
}

func (c *GRPCClient) CreateEvent(ctx context.Context, in model.NewEventInput) (*model.EventView, error) {
	resp, err := c.client.CreateEvent(ctx, &rpc.CreateEventRequest{
		Title:       in.Title,
		Description: in.Description,
		Start:       in.Start,
	})
	if err != nil {
		return nil, err
	}
	return resp.Event, nil
}

func (c *GRPCClient) UpdateEvent(ctx context.Context, id string, u model.EventUpdate) (*model.EventView, error) {
	resp, err := c.client.UpdateEvent(ctx, &rpc.UpdateEventRequest{ID: id, Update: u})
	if err != nil {
		return nil, err
	}
	return resp.Event, nil
}

func (c *GRPCClient) DeleteEvent(ctx context.Context, id string) error {
	_, err := c.client.DeleteEvent(ctx, &rpc.DeleteEventRequest{ID: id})
	return err
}

// Health queries the standard gRPC health service for the event service.
func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

func (c *GRPCClient) Watch(ctx context.Context, opts WatchOptions) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.client.Watch(ctx, &rpc.WatchRequest{Topics: opts.Topics, Snapshot: opts.Snapshot})
	if err != nil {
		cancel()
		return nil, err
	}
	return &grpcStream{stream: stream, cancel: cancel}, nil
}

type grpcStream struct {
	stream rpc.WatchClient
	cancel context.CancelFunc
}

// Recv maps a cancelled stream to io.EOF so callers can treat both
// transports alike.
func (s *grpcStream) Recv() (*events.Message, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

func (s *grpcStream) Close() error {
	s.cancel()
	return nil
}
