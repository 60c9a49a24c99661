package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"xdao.co/facetreg/ledger"
	"xdao.co/facetreg/model"
	"xdao.co/facetreg/proxy/diamond"
	"xdao.co/facetreg/selector"
)

// DefaultAdminRole is the AccessControl role allowed to grant every role.
var DefaultAdminRole = selector.RoleID{}

// Granter manages role membership on the proxy's access-control facet.
type Granter struct {
	Ledger ledger.Submitter
	Proxy  common.Address
	Logger *zap.Logger
}

// Grant gives account the role named label.
func (g *Granter) Grant(ctx context.Context, label string, account common.Address) error {
	id, err := ID(label)
	if err != nil {
		return err
	}
	data, err := diamond.AdminABI.Pack("grantRole", [32]byte(id), account)
	if err != nil {
		return err
	}
	log := g.logger().With(zap.String("role", label), zap.String("role_id", id.Hex()), zap.String("account", account.Hex()))
	to := g.Proxy
	rcpt, err := g.Ledger.Submit(ctx, &to, data)
	if err != nil {
		log.Warn("grant rejected", zap.Error(err))
		if errors.Is(err, ledger.ErrRejected) && !g.isAdmin(ctx) {
			return model.WrapError(model.KindUnauthorized, model.StageBind, "grantRole "+label, err)
		}
		return model.WrapError(model.KindUpdateFailed, model.StageBind, "grantRole "+label, err)
	}
	log.Info("role granted", zap.String("tx", rcpt.TxHash.Hex()))
	return nil
}

// HasRole reports whether account holds the role named label.
func (g *Granter) HasRole(ctx context.Context, label string, account common.Address) (bool, error) {
	id, err := ID(label)
	if err != nil {
		return false, err
	}
	return g.hasRoleID(ctx, id, account)
}

func (g *Granter) hasRoleID(ctx context.Context, id selector.RoleID, account common.Address) (bool, error) {
	data, err := diamond.AdminABI.Pack("hasRole", [32]byte(id), account)
	if err != nil {
		return false, err
	}
	out, err := g.Ledger.Call(ctx, g.Proxy, data)
	if err != nil {
		return false, err
	}
	vals, err := diamond.AdminABI.Unpack("hasRole", out)
	if err != nil {
		return false, fmt.Errorf("roles: decode hasRole: %w", err)
	}
	ok, isBool := vals[0].(bool)
	if !isBool {
		return false, fmt.Errorf("roles: hasRole returned %T", vals[0])
	}
	return ok, nil
}

// isAdmin reports whether the submitting identity is known to be allowed to
// grant roles: it owns the proxy or holds the default admin role. A failed
// lookup counts as allowed.
func (g *Granter) isAdmin(ctx context.Context) bool {
	from := g.Ledger.From()
	owner, err := (&diamond.Proxy{Ledger: g.Ledger, Address: g.Proxy}).Owner(ctx)
	if err != nil || owner == from {
		return true
	}
	ok, err := g.hasRoleID(ctx, DefaultAdminRole, from)
	return err != nil || ok
}

func (g *Granter) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}
