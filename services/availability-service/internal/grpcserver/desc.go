package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "availability.v1.AvailabilityService"

const (
	MethodListBookableSlots = "/" + ServiceName + "/ListBookableSlots"
	MethodCheckRuleOverlap  = "/" + ServiceName + "/CheckRuleOverlap"
)

// AvailabilityServer is the server API of availability.v1.AvailabilityService.
// Messages travel as google.protobuf.Struct; see wire.go for their fields.
type AvailabilityServer interface {
	ListBookableSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CheckRuleOverlap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListBookableSlots", Handler: listBookableSlotsHandler},
		{MethodName: "CheckRuleOverlap", Handler: checkRuleOverlapHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "availability/v1/availability.proto",
}

func listBookableSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).ListBookableSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListBookableSlots}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).ListBookableSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func checkRuleOverlapHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).CheckRuleOverlap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodCheckRuleOverlap}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).CheckRuleOverlap(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
