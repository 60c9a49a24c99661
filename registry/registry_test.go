package registry

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/model"
	"xdao.co/facetreg/proxy"
	"xdao.co/facetreg/proxy/memproxy"
	"xdao.co/facetreg/selector"
)

var (
	owner = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	facet = common.HexToAddress("0x0000000000000000000000000000000000000f01")
)

// countingProxy records every call that would reach the network.
type countingProxy struct {
	proxy.Proxy
	calls int
}

func (c *countingProxy) Authorize(ctx context.Context, caller common.Address) error {
	c.calls++
	return c.Proxy.Authorize(ctx, caller)
}

func (c *countingProxy) Bind(ctx context.Context, f common.Address, sels []selector.Selector) error {
	c.calls++
	return c.Proxy.Bind(ctx, f, sels)
}

func TestUpdate_RejectsDuplicatesBeforeSubmission(t *testing.T) {
	cp := &countingProxy{Proxy: memproxy.New(owner)}
	u := &Updater{Proxy: cp, Caller: owner}

	get := selector.MustCompute("get", "uint256")
	err := u.Update(context.Background(), Binding{Facet: facet, Selectors: []selector.Selector{get, selector.MustCompute("set"), get}})
	require.True(t, model.IsKind(err, model.KindSelectorCollision), "got %v", err)
	require.Zero(t, cp.calls)
}

func TestUpdate_RejectsEmpty(t *testing.T) {
	cp := &countingProxy{Proxy: memproxy.New(owner)}
	u := &Updater{Proxy: cp, Caller: owner}

	err := u.Update(context.Background(), Binding{Facet: facet})
	require.True(t, model.IsKind(err, model.KindUpdateFailed))
	require.Zero(t, cp.calls)
}

func TestUpdate_Unauthorized(t *testing.T) {
	p := memproxy.New(owner)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	u := &Updater{Proxy: p.As(stranger), Caller: stranger}

	err := u.Update(context.Background(), Binding{Facet: facet, Selectors: []selector.Selector{selector.MustCompute("get")}})
	require.True(t, model.IsKind(err, model.KindUnauthorized), "got %v", err)
	require.Empty(t, p.Snapshot())
	require.Zero(t, p.Cuts())
}

func TestUpdate_ProxyRevertIsUpdateFailed(t *testing.T) {
	p := memproxy.New(owner)
	p.FailNext(proxy.ErrReverted)
	u := &Updater{Proxy: p, Caller: owner}

	err := u.Update(context.Background(), Binding{Facet: facet, Selectors: []selector.Selector{selector.MustCompute("get")}})
	require.True(t, model.IsKind(err, model.KindUpdateFailed))
	require.Equal(t, model.StageBind, model.StageOf(err))
	require.Empty(t, p.Snapshot())
}

func TestUpdateThenVerify(t *testing.T) {
	ctx := context.Background()
	p := memproxy.New(owner)
	u := &Updater{Proxy: p, Caller: owner}
	b := Binding{Facet: facet, Selectors: []selector.Selector{selector.MustCompute("get", "uint256"), selector.MustCompute("set", "uint256")}}

	require.NoError(t, u.Update(ctx, b))
	require.NoError(t, u.Verify(ctx, b))

	other := Binding{Facet: common.HexToAddress("0x0f02"), Selectors: b.Selectors}
	err := u.Verify(ctx, other)
	require.True(t, model.IsKind(err, model.KindUpdateFailed))
	require.Equal(t, model.StageVerify, model.StageOf(err))
}
