package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "eventboard.v1.EventService"

// Full method names.
const (
	ListEventsMethod  = "/" + ServiceName + "/ListEvents"
	GetEventMethod    = "/" + ServiceName + "/GetEvent"
	CreateEventMethod = "/" + ServiceName + "/CreateEvent"
	UpdateEventMethod = "/" + ServiceName + "/UpdateEvent"
	DeleteEventMethod = "/" + ServiceName + "/DeleteEvent"
	WatchMethod       = "/" + ServiceName + "/Watch"
)

// EventServiceServer is the server API for the event service.
type EventServiceServer interface {
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	GetEvent(context.Context, *GetEventRequest) (*EventResponse, error)
	CreateEvent(context.Context, *CreateEventRequest) (*EventResponse, error)
	UpdateEvent(context.Context, *UpdateEventRequest) (*UpdateEventResponse, error)
	DeleteEvent(context.Context, *DeleteEventRequest) (*DeleteEventResponse, error)
	Watch(*WatchRequest, WatchServer) error
}

// WatchServer is the server side of a Watch stream.
type WatchServer interface {
	Send(*events.Message) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (s *watchServer) Send(m *events.Message) error {
	return s.ServerStream.SendMsg(m)
}

// unary builds a MethodDesc that decodes a Req and dispatches to call,
// passing through any configured interceptor.
func unary[Req, Resp any](method, fullMethod string, call func(EventServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in, err := decodeRequest[Req](dec)
			if err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EventServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EventServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// decodeRequest reads the raw body through the transport and decodes it
// here, so a field rejected by the message itself is reported as
// InvalidArgument rather than as a transport failure.
func decodeRequest[Req any](dec func(any) error) (*Req, error) {
	var raw json.RawMessage
	if err := dec(&raw); err != nil {
		return nil, err
	}
	in := new(Req)
	if err := json.Unmarshal(raw, in); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			return nil, status.Error(codes.InvalidArgument, ve.Error())
		}
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return in, nil
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EventServiceServer).Watch(in, &watchServer{stream})
}

// ServiceDesc describes eventboard.v1.EventService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListEvents", ListEventsMethod, EventServiceServer.ListEvents),
		unary("GetEvent", GetEventMethod, EventServiceServer.GetEvent),
		unary("CreateEvent", CreateEventMethod, EventServiceServer.CreateEvent),
		unary("UpdateEvent", UpdateEventMethod, EventServiceServer.UpdateEvent),
		unary("DeleteEvent", DeleteEventMethod, EventServiceServer.DeleteEvent),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "eventboard/v1/events.proto",
}

// RegisterEventServiceServer registers srv on s.
func RegisterEventServiceServer(s grpc.ServiceRegistrar, srv EventServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// EventServiceClient is the client API for the event service. Every call
// uses the JSON codec.
type EventServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEventServiceClient wraps a connection.
func NewEventServiceClient(cc grpc.ClientConnInterface) *EventServiceClient {
	return &EventServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EventServiceClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, ListEventsMethod, in, opts)
}

func (c *EventServiceClient) GetEvent(ctx context.Context, in *GetEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, GetEventMethod, in, opts)
}

func (c *EventServiceClient) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.cc, CreateEventMethod, in, opts)
}

func (c *EventServiceClient) UpdateEvent(ctx context.Context, in *UpdateEventRequest, opts ...grpc.CallOption) (*UpdateEventResponse, error) {
	return invoke[UpdateEventResponse](ctx, c.cc, UpdateEventMethod, in, opts)
}

func (c *EventServiceClient) DeleteEvent(ctx context.Context, in *DeleteEventRequest, opts ...grpc.CallOption) (*DeleteEventResponse, error) {
	return invoke[DeleteEventResponse](ctx, c.cc, DeleteEventMethod, in, opts)
}

// WatchClient is the client side of a Watch stream.
type WatchClient interface {
	Recv() (*events.Message, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (c *watchClient) Recv() (*events.Message, error) {
	m := new(events.Message)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch opens a notification stream.
func (c *EventServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
