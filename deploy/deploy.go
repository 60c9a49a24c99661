// Package deploy publishes a module's executable code and assigns its address.
package deploy

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"xdao.co/facetreg/ledger"
	"xdao.co/facetreg/model"
)

// Deployer publishes module code through a ledger.Submitter.
//
// No retries are attempted. Redeploying after a failure is safe: no binding
// references the abandoned address.
type Deployer struct {
	Ledger ledger.Submitter
	Logger *zap.Logger
}

// Deploy publishes m.Bytecode followed by the ABI-encoded constructor
// arguments and returns a copy of m carrying the new address.
func (d *Deployer) Deploy(ctx context.Context, m model.Module, ctorArgs []byte) (model.Module, error) {
	log := d.logger().With(zap.String("module", m.Name))
	if d.Ledger == nil {
		return model.Module{}, model.NewError(model.KindDeploymentFailed, model.StageDeploy, "no ledger configured")
	}
	if m.Deployed() {
		return model.Module{}, model.Errorf(model.KindDeploymentFailed, model.StageDeploy,
			"module %s already has address %s", m.Name, m.Address.Hex())
	}
	if len(m.Bytecode) == 0 {
		return model.Module{}, model.Errorf(model.KindDeploymentFailed, model.StageDeploy, "module %s has no code", m.Name)
	}

	code := make([]byte, 0, len(m.Bytecode)+len(ctorArgs))
	code = append(code, m.Bytecode...)
	code = append(code, ctorArgs...)

	log.Info("deploying module", zap.Int("code_bytes", len(code)))
	rcpt, err := d.Ledger.Submit(ctx, nil, code)
	if err != nil {
		msg := "publish transaction rejected"
		if errors.Is(err, ledger.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			msg = "publish transaction not finalized before deadline"
		}
		log.Warn("deploy failed", zap.Error(err))
		return model.Module{}, model.WrapError(model.KindDeploymentFailed, model.StageDeploy, msg, err)
	}
	if !rcpt.Success || rcpt.ContractAddress == (common.Address{}) {
		return model.Module{}, model.Errorf(model.KindDeploymentFailed, model.StageDeploy,
			"transaction %s created no contract", rcpt.TxHash.Hex())
	}

	log.Info("module deployed",
		zap.String("address", rcpt.ContractAddress.Hex()),
		zap.String("tx", rcpt.TxHash.Hex()),
		zap.Uint64("block", rcpt.BlockNumber))
	return m.WithAddress(rcpt.ContractAddress), nil
}

func (d *Deployer) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
