// Package grpcmanifest publishes a manifest read-only over gRPC so clients
// on other hosts can resolve module addresses and fetch the interface
// document without access to the writer's store.
package grpcmanifest

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/facetreg/cidutil"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/storage"
)

// Server exposes a manifest.Reader, and optionally the interface snapshot
// store, over the Manifest service.
type Server struct {
	UnimplementedManifestServer
	Reader    manifest.Reader
	Snapshots storage.CAS
	Logger    *zap.Logger
}

func (s *Server) Addresses(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Reader == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing manifest reader")
	}
	b, err := s.Reader.ReadAddresses(ctx)
	if err != nil {
		s.logger().Warn("read addresses failed", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Interface(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Reader == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing manifest reader")
	}
	b, err := s.Reader.ReadInterface(ctx)
	if err != nil {
		s.logger().Warn("read interface failed", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Snapshot(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Snapshots == nil {
		return nil, status.Error(codes.FailedPrecondition, "snapshot store not configured")
	}
	id, err := cidutil.Parse(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	b, err := s.Snapshots.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC converts a status error back into the storage sentinel it came from.
func mapRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		return storage.ErrInvalidCID
	case codes.DataLoss:
		return storage.ErrCIDMismatch
	default:
		return err
	}
}
