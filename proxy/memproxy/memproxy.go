// Package memproxy is an in-memory routing proxy with diamond cut semantics.
//
// It backs tests, dry runs, and the ledger simulator in package diamond.
package memproxy

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"xdao.co/facetreg/proxy"
	"xdao.co/facetreg/selector"
)

type state struct {
	mu       sync.Mutex
	owner    common.Address
	table    map[selector.Selector]common.Address
	failNext []error
	cuts     int
}

// Proxy is a view of a shared in-memory table acting as one caller.
type Proxy struct {
	s      *state
	caller common.Address
}

var _ proxy.Proxy = (*Proxy)(nil)

// New returns an empty proxy owned by owner; Bind calls act as owner.
func New(owner common.Address) *Proxy {
	return &Proxy{
		s:      &state{owner: owner, table: make(map[selector.Selector]common.Address)},
		caller: owner,
	}
}

// As returns a view of the same proxy whose Bind calls act as caller.
func (p *Proxy) As(caller common.Address) *Proxy { return &Proxy{s: p.s, caller: caller} }

// Owner returns the administrative identity.
func (p *Proxy) Owner() common.Address {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.owner
}

// FailNext makes the next cut revert with err.
func (p *Proxy) FailNext(err error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.failNext = append(p.s.failNext, err)
}

// Cuts counts applied or attempted cuts.
func (p *Proxy) Cuts() int {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.cuts
}

// Snapshot returns a copy of the selector table.
func (p *Proxy) Snapshot() map[selector.Selector]common.Address {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make(map[selector.Selector]common.Address, len(p.s.table))
	for k, v := range p.s.table {
		out[k] = v
	}
	return out
}

func (p *Proxy) Resolve(ctx context.Context, sel selector.Selector) (common.Address, bool, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, false, err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	addr, ok := p.s.table[sel]
	return addr, ok, nil
}

func (p *Proxy) Authorize(ctx context.Context, caller common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if caller != p.s.owner {
		return fmt.Errorf("%w: %s is not owner", proxy.ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (p *Proxy) Bind(ctx context.Context, facet common.Address, sels []selector.Selector) error {
	cuts, err := proxy.PlanCuts(ctx, p, facet, sels)
	if err != nil {
		return err
	}
	if len(cuts) == 0 {
		return nil
	}
	return p.Cut(p.caller, cuts)
}

// Cut applies cuts atomically on behalf of caller, following the EIP-2535
// reference rules: Add requires an unbound selector, Replace a selector bound
// to a different facet, Remove a zero facet address.
func (p *Proxy) Cut(caller common.Address, cuts []proxy.Cut) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	p.s.cuts++
	if caller != p.s.owner {
		return fmt.Errorf("%w: %s is not owner", proxy.ErrUnauthorized, caller.Hex())
	}
	if len(p.s.failNext) > 0 {
		err := p.s.failNext[0]
		p.s.failNext = p.s.failNext[1:]
		return err
	}

	next := make(map[selector.Selector]common.Address, len(p.s.table))
	for k, v := range p.s.table {
		next[k] = v
	}
	for _, c := range cuts {
		if len(c.Selectors) == 0 {
			return fmt.Errorf("%w: no selectors in cut", proxy.ErrReverted)
		}
		for _, sel := range c.Selectors {
			cur, bound := next[sel]
			switch c.Action {
			case proxy.ActionAdd:
				if c.Facet == (common.Address{}) {
					return fmt.Errorf("%w: add facet can't be address(0)", proxy.ErrReverted)
				}
				if bound {
					return fmt.Errorf("%w: can't add function %s that already exists", proxy.ErrReverted, sel.Hex())
				}
				next[sel] = c.Facet
			case proxy.ActionReplace:
				if c.Facet == (common.Address{}) {
					return fmt.Errorf("%w: replace facet can't be address(0)", proxy.ErrReverted)
				}
				if !bound {
					return fmt.Errorf("%w: can't replace function %s that doesn't exist", proxy.ErrReverted, sel.Hex())
				}
				if cur == c.Facet {
					return fmt.Errorf("%w: can't replace function %s with same function", proxy.ErrReverted, sel.Hex())
				}
				next[sel] = c.Facet
			case proxy.ActionRemove:
				if c.Facet != (common.Address{}) {
					return fmt.Errorf("%w: remove facet address must be address(0)", proxy.ErrReverted)
				}
				if !bound {
					return fmt.Errorf("%w: can't remove function %s that doesn't exist", proxy.ErrReverted, sel.Hex())
				}
				delete(next, sel)
			default:
				return fmt.Errorf("%w: incorrect cut action %d", proxy.ErrReverted, c.Action)
			}
		}
	}
	p.s.table = next
	return nil
}
