// Package diamond drives an EIP-2535 diamond proxy through a ledger.
package diamond

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"xdao.co/facetreg/ledger"
	"xdao.co/facetreg/proxy"
	"xdao.co/facetreg/selector"
)

// Proxy implements proxy.Proxy for a deployed diamond.
type Proxy struct {
	Ledger  ledger.Submitter
	Address common.Address
	Logger  *zap.Logger
}

var _ proxy.Proxy = (*Proxy)(nil)

func (p *Proxy) Resolve(ctx context.Context, sel selector.Selector) (common.Address, bool, error) {
	data, err := AdminABI.Pack("facetAddress", [4]byte(sel))
	if err != nil {
		return common.Address{}, false, err
	}
	out, err := p.Ledger.Call(ctx, p.Address, data)
	if err != nil {
		return common.Address{}, false, err
	}
	vals, err := AdminABI.Unpack("facetAddress", out)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("diamond: decode facetAddress: %w", err)
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, false, fmt.Errorf("diamond: facetAddress returned %T", vals[0])
	}
	return addr, addr != (common.Address{}), nil
}

// Owner returns the IERC173 owner of the diamond.
func (p *Proxy) Owner(ctx context.Context) (common.Address, error) {
	data, err := AdminABI.Pack("owner")
	if err != nil {
		return common.Address{}, err
	}
	out, err := p.Ledger.Call(ctx, p.Address, data)
	if err != nil {
		return common.Address{}, err
	}
	vals, err := AdminABI.Unpack("owner", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("diamond: decode owner: %w", err)
	}
	owner, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("diamond: owner returned %T", vals[0])
	}
	return owner, nil
}

func (p *Proxy) Authorize(ctx context.Context, caller common.Address) error {
	owner, err := p.Owner(ctx)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: owner is %s, caller is %s", proxy.ErrUnauthorized, owner.Hex(), caller.Hex())
	}
	return nil
}

func (p *Proxy) Bind(ctx context.Context, facet common.Address, sels []selector.Selector) error {
	cuts, err := proxy.PlanCuts(ctx, p, facet, sels)
	if err != nil {
		return err
	}
	if len(cuts) == 0 {
		p.logger().Info("selectors already bound", zap.String("facet", facet.Hex()))
		return nil
	}
	data, err := EncodeCut(cuts)
	if err != nil {
		return err
	}
	to := p.Address
	rcpt, err := p.Ledger.Submit(ctx, &to, data)
	if err != nil {
		if errors.Is(err, ledger.ErrRejected) {
			return fmt.Errorf("%w: %v", proxy.ErrReverted, err)
		}
		return err
	}
	p.logger().Info("diamond cut applied",
		zap.String("facet", facet.Hex()),
		zap.Int("cuts", len(cuts)),
		zap.String("tx", rcpt.TxHash.Hex()))
	return nil
}

// EncodeCut packs diamondCut(cuts, address(0), "").
func EncodeCut(cuts []proxy.Cut) ([]byte, error) {
	arg := make([]facetCut, 0, len(cuts))
	for _, c := range cuts {
		sels := make([][4]byte, len(c.Selectors))
		for i, s := range c.Selectors {
			sels[i] = s
		}
		arg = append(arg, facetCut{FacetAddress: c.Facet, Action: uint8(c.Action), FunctionSelectors: sels})
	}
	data, err := AdminABI.Pack("diamondCut", arg, common.Address{}, []byte{})
	if err != nil {
		return nil, fmt.Errorf("diamond: encode cut: %w", err)
	}
	return data, nil
}

func (p *Proxy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
