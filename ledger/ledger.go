// Package ledger defines the network/transaction collaborator consumed by the
// deploy and bind stages.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrRejected means the transaction was refused or reverted.
	ErrRejected = errors.New("ledger: transaction rejected")
	// ErrTimeout means no final status was observed before the deadline.
	ErrTimeout = errors.New("ledger: confirmation timed out")
)

// Receipt is the finalized outcome of one submitted transaction.
type Receipt struct {
	TxHash          common.Hash
	ContractAddress common.Address
	BlockNumber     uint64
	Success         bool
}

// Submitter signs and submits transactions for one identity.
//
// Contract:
//   - Submit blocks until the transaction is finalized or rejected; a nil to
//     means contract creation.
//   - A reverted transaction yields ErrRejected (possibly wrapped) and no receipt.
//   - Context expiry while waiting yields ErrTimeout; the transaction may
//     still land later, it cannot be recalled.
type Submitter interface {
	From() common.Address
	Submit(ctx context.Context, to *common.Address, data []byte) (*Receipt, error)
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}
