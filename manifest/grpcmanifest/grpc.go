package grpcmanifest

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
//
// Messages are protobuf well-known types, so no generated code is needed:
//
//	service Manifest {
//	  rpc Addresses(google.protobuf.Empty) returns (google.protobuf.BytesValue);
//	  rpc Interface(google.protobuf.Empty) returns (google.protobuf.BytesValue);
//	  rpc Snapshot(google.protobuf.StringValue) returns (google.protobuf.BytesValue);
//	}
const ServiceName = "xdao.facetreg.manifest.v1.Manifest"

// ManifestServer is the server API for the Manifest service.
type ManifestServer interface {
	Addresses(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Interface(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Snapshot(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedManifestServer can be embedded to have forward compatible implementations.
type UnimplementedManifestServer struct{}

func (UnimplementedManifestServer) Addresses(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Addresses not implemented")
}
func (UnimplementedManifestServer) Interface(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Interface not implemented")
}
func (UnimplementedManifestServer) Snapshot(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Snapshot not implemented")
}

// RegisterManifestServer registers the Manifest service on a gRPC server.
func RegisterManifestServer(s grpc.ServiceRegistrar, srv ManifestServer) {
	s.RegisterService(&Manifest_ServiceDesc, srv)
}

// ManifestClient is the client API for the Manifest service.
type ManifestClient interface {
	Addresses(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Interface(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Snapshot(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type manifestClient struct{ cc grpc.ClientConnInterface }

func NewManifestClient(cc grpc.ClientConnInterface) ManifestClient { return &manifestClient{cc: cc} }

func (c *manifestClient) Addresses(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Addresses", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *manifestClient) Interface(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Interface", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *manifestClient) Snapshot(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Snapshot", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Manifest_Addresses_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManifestServer).Addresses(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Addresses"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManifestServer).Addresses(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Manifest_Interface_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManifestServer).Interface(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Interface"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManifestServer).Interface(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Manifest_Snapshot_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManifestServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Snapshot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManifestServer).Snapshot(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Manifest_ServiceDesc is the grpc.ServiceDesc for the Manifest service.
var Manifest_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ManifestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Addresses", Handler: _Manifest_Addresses_Handler},
		{MethodName: "Interface", Handler: _Manifest_Interface_Handler},
		{MethodName: "Snapshot", Handler: _Manifest_Snapshot_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "manifest.proto",
}
