// Package apiv1 defines the CoordinationService used by workers to exchange
// per-round key-value data through the silhouette server.
package apiv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StartRoundRequest opens a round that completes once ExpectedWorkers
// distinct workers have published.
type StartRoundRequest struct {
	RoundId         uint64
	ExpectedWorkers int32
}

type StartRoundResponse struct {
	Success bool
}

// KeyValuePair is a single published value.
type KeyValuePair struct {
	Key   string
	Value []byte
}

type PublishValuesRequest struct {
	RoundId  uint64
	WorkerId string
	Pairs    []*KeyValuePair
}

type PublishValuesResponse struct {
	Success bool
	// RoundComplete is set on the publish that completed the round.
	RoundComplete bool
}

type GetValueRequest struct {
	RoundId uint64
	Key     string
}

type GetValueResponse struct {
	Value []byte
}

type GetRoundRequest struct {
	RoundId uint64
}

// GetRoundResponse carries the aggregate of a completed round, sorted by key.
// Pairs is empty while Complete is false.
type GetRoundResponse struct {
	Complete bool
	Pairs    []*KeyValuePair
}

const (
	CoordinationService_StartRound_FullMethodName    = "/silhouette.v1.CoordinationService/StartRound"
	CoordinationService_PublishValues_FullMethodName = "/silhouette.v1.CoordinationService/PublishValues"
	CoordinationService_GetValue_FullMethodName      = "/silhouette.v1.CoordinationService/GetValue"
	CoordinationService_GetRound_FullMethodName      = "/silhouette.v1.CoordinationService/GetRound"
)

// CoordinationServiceClient is the client API for CoordinationService.
type CoordinationServiceClient interface {
	StartRound(ctx context.Context, in *StartRoundRequest, opts ...grpc.CallOption) (*StartRoundResponse, error)
	PublishValues(ctx context.Context, in *PublishValuesRequest, opts ...grpc.CallOption) (*PublishValuesResponse, error)
	GetValue(ctx context.Context, in *GetValueRequest, opts ...grpc.CallOption) (*GetValueResponse, error)
	GetRound(ctx context.Context, in *GetRoundRequest, opts ...grpc.CallOption) (*GetRoundResponse, error)
}

type coordinationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCoordinationServiceClient(cc grpc.ClientConnInterface) CoordinationServiceClient {
	return &coordinationServiceClient{cc}
}

func (c *coordinationServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *coordinationServiceClient) StartRound(ctx context.Context, in *StartRoundRequest, opts ...grpc.CallOption) (*StartRoundResponse, error) {
	out := new(StartRoundResponse)
	if err := c.invoke(ctx, CoordinationService_StartRound_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) PublishValues(ctx context.Context, in *PublishValuesRequest, opts ...grpc.CallOption) (*PublishValuesResponse, error) {
	out := new(PublishValuesResponse)
	if err := c.invoke(ctx, CoordinationService_PublishValues_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) GetValue(ctx context.Context, in *GetValueRequest, opts ...grpc.CallOption) (*GetValueResponse, error) {
	out := new(GetValueResponse)
	if err := c.invoke(ctx, CoordinationService_GetValue_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinationServiceClient) GetRound(ctx context.Context, in *GetRoundRequest, opts ...grpc.CallOption) (*GetRoundResponse, error) {
	out := new(GetRoundResponse)
	if err := c.invoke(ctx, CoordinationService_GetRound_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// CoordinationServiceServer is the server API for CoordinationService.
// Implementations must embed UnimplementedCoordinationServiceServer.
type CoordinationServiceServer interface {
	StartRound(context.Context, *StartRoundRequest) (*StartRoundResponse, error)
	PublishValues(context.Context, *PublishValuesRequest) (*PublishValuesResponse, error)
	GetValue(context.Context, *GetValueRequest) (*GetValueResponse, error)
	GetRound(context.Context, *GetRoundRequest) (*GetRoundResponse, error)
	mustEmbedUnimplementedCoordinationServiceServer()
}

// UnimplementedCoordinationServiceServer answers every method with
// codes.Unimplemented.
type UnimplementedCoordinationServiceServer struct{}

func (UnimplementedCoordinationServiceServer) StartRound(context.Context, *StartRoundRequest) (*StartRoundResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartRound not implemented")
}
func (UnimplementedCoordinationServiceServer) PublishValues(context.Context, *PublishValuesRequest) (*PublishValuesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PublishValues not implemented")
}
func (UnimplementedCoordinationServiceServer) GetValue(context.Context, *GetValueRequest) (*GetValueResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetValue not implemented")
}
func (UnimplementedCoordinationServiceServer) GetRound(context.Context, *GetRoundRequest) (*GetRoundResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRound not implemented")
}
func (UnimplementedCoordinationServiceServer) mustEmbedUnimplementedCoordinationServiceServer() {}

func RegisterCoordinationServiceServer(s grpc.ServiceRegistrar, srv CoordinationServiceServer) {
	s.RegisterService(&CoordinationService_ServiceDesc, srv)
}

func _CoordinationService_StartRound_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartRoundRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinationServiceServer).StartRound(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CoordinationService_StartRound_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinationServiceServer).StartRound(ctx, req.(*StartRoundRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CoordinationService_PublishValues_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PublishValuesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinationServiceServer).PublishValues(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CoordinationService_PublishValues_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinationServiceServer).PublishValues(ctx, req.(*PublishValuesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CoordinationService_GetValue_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetValueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinationServiceServer).GetValue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CoordinationService_GetValue_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinationServiceServer).GetValue(ctx, req.(*GetValueRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CoordinationService_GetRound_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRoundRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinationServiceServer).GetRound(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CoordinationService_GetRound_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinationServiceServer).GetRound(ctx, req.(*GetRoundRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// CoordinationService_ServiceDesc is the grpc.ServiceDesc for CoordinationService.
var CoordinationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "silhouette.v1.CoordinationService",
	HandlerType: (*CoordinationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartRound", Handler: _CoordinationService_StartRound_Handler},
		{MethodName: "PublishValues", Handler: _CoordinationService_PublishValues_Handler},
		{MethodName: "GetValue", Handler: _CoordinationService_GetValue_Handler},
		{MethodName: "GetRound", Handler: _CoordinationService_GetRound_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/v1/coordination.proto",
}
