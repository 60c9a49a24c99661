package grpcmanifest

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/facetreg/cidutil"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/storage"
)

// Client reads a manifest published by Server.
type Client struct {
	cc     *grpc.ClientConn
	client ManifestClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ manifest.Reader = (*Client)(nil)

type DialOptions struct {
	// MaxMsgBytes sets the receive limit when non-zero.
	MaxMsgBytes int
}

// Dial creates a client for target. The connection is established lazily.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes)))
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewManifestClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) ReadAddresses(ctx context.Context) ([]byte, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Addresses(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return nilIfEmpty(reply.GetValue()), nil
}

func (c *Client) ReadInterface(ctx context.Context) ([]byte, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Interface(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return nilIfEmpty(reply.GetValue()), nil
}

// Snapshot fetches an interface snapshot by CID and verifies its bytes.
func (c *Client) Snapshot(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Snapshot(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	got, err := cidutil.Sum(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

// A never-written document travels as an empty BytesValue.
func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
