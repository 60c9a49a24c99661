// Package proxy defines the administrative surface of the routing proxy: the
// selector → module table and the credential allowed to change it.
package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"xdao.co/facetreg/selector"
)

var (
	// ErrUnauthorized is returned when the caller may not change bindings.
	ErrUnauthorized = errors.New("proxy: caller is not authorized")
	// ErrReverted is returned when the proxy refused a binding change.
	ErrReverted = errors.New("proxy: binding change reverted")
)

// Resolver answers which module currently serves a selector.
type Resolver interface {
	Resolve(ctx context.Context, sel selector.Selector) (common.Address, bool, error)
}

// Proxy is the administrative entry point of a routing proxy.
//
// Contract:
//   - Bind rebinds every selector in sels to facet as one atomic change:
//     either all selectors route to facet afterwards or none changed.
//   - Selectors not listed keep their current binding.
//   - Authorize returns ErrUnauthorized when caller may not call Bind.
type Proxy interface {
	Resolver
	Bind(ctx context.Context, facet common.Address, sels []selector.Selector) error
	Authorize(ctx context.Context, caller common.Address) error
}

// Action is the EIP-2535 FacetCutAction.
type Action uint8

const (
	ActionAdd Action = iota
	ActionReplace
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "Add"
	case ActionReplace:
		return "Replace"
	case ActionRemove:
		return "Remove"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// Cut is one entry of a diamond cut.
type Cut struct {
	Facet     common.Address
	Action    Action
	Selectors []selector.Selector
}

// PlanCuts expresses "bind sels to facet, replacing prior bindings" as diamond
// cuts: Add for unbound selectors, Replace for selectors bound elsewhere.
// Selectors already served by facet need no change and are left out; the
// result is empty when nothing needs to change.
func PlanCuts(ctx context.Context, r Resolver, facet common.Address, sels []selector.Selector) ([]Cut, error) {
	var add, replace []selector.Selector
	for _, sel := range sels {
		cur, ok, err := r.Resolve(ctx, sel)
		if err != nil {
			return nil, fmt.Errorf("proxy: resolve %s: %w", sel.Hex(), err)
		}
		switch {
		case !ok:
			add = append(add, sel)
		case cur != facet:
			replace = append(replace, sel)
		}
	}
	var cuts []Cut
	if len(add) > 0 {
		cuts = append(cuts, Cut{Facet: facet, Action: ActionAdd, Selectors: add})
	}
	if len(replace) > 0 {
		cuts = append(cuts, Cut{Facet: facet, Action: ActionReplace, Selectors: replace})
	}
	return cuts, nil
}
