// Package ethledger submits transactions to an Ethereum JSON-RPC endpoint
// using go-ethereum's client, signing locally with a secp256k1 key.
package ethledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"xdao.co/facetreg/ledger"
)

// Backend is the subset of *ethclient.Client the ledger needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Options tunes submission.
type Options struct {
	// PollInterval is the receipt polling period. Defaults to 2s.
	PollInterval time.Duration
	// GasBufferPercent is added on top of the node's gas estimate. Defaults to 20.
	GasBufferPercent uint64
	Logger           *zap.Logger
}

// Ledger implements ledger.Submitter against a JSON-RPC node.
type Ledger struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	opts    Options
}

var _ ledger.Submitter = (*Ledger)(nil)

// Dial connects to rawURL and returns a Ledger signing with key.
func Dial(ctx context.Context, rawURL string, key *ecdsa.PrivateKey, opts Options) (*Ledger, func(), error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("ethledger: dial %s: %w", rawURL, err)
	}
	l, err := New(ctx, client, key, opts)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return l, client.Close, nil
}

// New builds a Ledger over an existing backend. The chain id is fetched once.
func New(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, opts Options) (*Ledger, error) {
	if key == nil {
		return nil, errors.New("ethledger: signing key is required")
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ethledger: chain id: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.GasBufferPercent == 0 {
		opts.GasBufferPercent = 20
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Ledger{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		opts:    opts,
	}, nil
}

func (l *Ledger) From() common.Address { return l.from }

func (l *Ledger) Submit(ctx context.Context, to *common.Address, data []byte) (*ledger.Receipt, error) {
	nonce, err := l.backend.PendingNonceAt(ctx, l.from)
	if err != nil {
		return nil, fmt.Errorf("ethledger: nonce: %w", err)
	}
	gasPrice, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("ethledger: gas price: %w", err)
	}
	gas, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{From: l.from, To: to, Data: data})
	if err != nil {
		// Estimation executes the call; a revert here means the node would reject it.
		return nil, fmt.Errorf("%w: estimate gas: %v", ledger.ErrRejected, err)
	}
	gas += gas * l.opts.GasBufferPercent / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       to,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return nil, fmt.Errorf("ethledger: sign: %w", err)
	}
	if err := l.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: send: %v", ledger.ErrRejected, err)
	}
	l.opts.Logger.Debug("transaction sent",
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas))

	rcpt, err := l.wait(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	out := &ledger.Receipt{
		TxHash:          rcpt.TxHash,
		ContractAddress: rcpt.ContractAddress,
		Success:         rcpt.Status == types.ReceiptStatusSuccessful,
	}
	if rcpt.BlockNumber != nil {
		out.BlockNumber = rcpt.BlockNumber.Uint64()
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s reverted in block %d", ledger.ErrRejected, out.TxHash.Hex(), out.BlockNumber)
	}
	return out, nil
}

func (l *Ledger) wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()
	for {
		rcpt, err := l.backend.TransactionReceipt(ctx, hash)
		if err == nil && rcpt != nil {
			return rcpt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ledger.ErrTimeout, hash.Hex(), ctx.Err())
			}
			l.opts.Logger.Warn("receipt lookup failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ledger.ErrTimeout, hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Ledger) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := l.backend.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("ethledger: call %s: %w", to.Hex(), err)
	}
	return out, nil
}
