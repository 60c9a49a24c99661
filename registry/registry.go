// Package registry rebinds a module's selectors on the proxy.
//
// This is the single point at which live routing changes. Callers must run it
// only after a successful deployment and must not record a manifest when it
// fails.
package registry

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"xdao.co/facetreg/model"
	"xdao.co/facetreg/proxy"
	"xdao.co/facetreg/selector"
)

// Binding is the set of selectors routed to one module address.
type Binding struct {
	Facet     common.Address
	Selectors []selector.Selector
}

// Updater submits bindings on behalf of Caller.
type Updater struct {
	Proxy  proxy.Proxy
	Caller common.Address
	Logger *zap.Logger
}

// CheckSelectors rejects an empty list or a list with duplicates. A duplicate
// means two declarations hashed to one selector, which is a structural error
// in the module, not a network condition.
func CheckSelectors(sels []selector.Selector) error {
	if len(sels) == 0 {
		return model.NewError(model.KindUpdateFailed, model.StageBind, "selector list is empty")
	}
	seen := make(map[selector.Selector]struct{}, len(sels))
	for _, s := range sels {
		if _, dup := seen[s]; dup {
			return model.Errorf(model.KindSelectorCollision, model.StageBind, "selector %s listed twice", s.Hex())
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Update binds every selector in b to b.Facet in one atomic proxy change,
// replacing whatever module served them before.
func (u *Updater) Update(ctx context.Context, b Binding) error {
	log := u.logger().With(zap.String("facet", b.Facet.Hex()), zap.Int("selectors", len(b.Selectors)))
	if err := CheckSelectors(b.Selectors); err != nil {
		return err
	}
	if b.Facet == (common.Address{}) {
		return model.NewError(model.KindUpdateFailed, model.StageBind, "facet address is zero")
	}
	if u.Proxy == nil {
		return model.NewError(model.KindUpdateFailed, model.StageBind, "no proxy configured")
	}

	if err := u.Proxy.Authorize(ctx, u.Caller); err != nil {
		if errors.Is(err, proxy.ErrUnauthorized) {
			return model.WrapError(model.KindUnauthorized, model.StageBind, "caller "+u.Caller.Hex()+" may not bind", err)
		}
		return model.WrapError(model.KindUpdateFailed, model.StageBind, "authorization check failed", err)
	}

	log.Info("binding selectors")
	if err := u.Proxy.Bind(ctx, b.Facet, b.Selectors); err != nil {
		log.Warn("bind failed", zap.Error(err))
		if errors.Is(err, proxy.ErrUnauthorized) {
			return model.WrapError(model.KindUnauthorized, model.StageBind, "proxy refused caller", err)
		}
		return model.WrapError(model.KindUpdateFailed, model.StageBind, "proxy did not apply binding", err)
	}
	log.Info("selectors bound")
	return nil
}

// Verify reports an error unless every selector in b resolves to b.Facet.
func (u *Updater) Verify(ctx context.Context, b Binding) error {
	for _, s := range b.Selectors {
		addr, ok, err := u.Proxy.Resolve(ctx, s)
		if err != nil {
			return model.WrapError(model.KindUpdateFailed, model.StageVerify, "resolve "+s.Hex(), err)
		}
		if !ok || addr != b.Facet {
			return model.Errorf(model.KindUpdateFailed, model.StageVerify,
				"selector %s resolves to %s, want %s", s.Hex(), addr.Hex(), b.Facet.Hex())
		}
	}
	return nil
}

func (u *Updater) logger() *zap.Logger {
	if u.Logger == nil {
		return zap.NewNop()
	}
	return u.Logger
}
