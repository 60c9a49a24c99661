package ethledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/ledger"
)

type fakeBackend struct {
	mu        sync.Mutex
	chainID   *big.Int
	sent      []*types.Transaction
	sendErr   error
	status    uint64
	pending   int // receipt lookups answered with NotFound before the receipt appears
	never     bool
	callReply []byte
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1e9), nil }

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.never || f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	tx := f.sent[len(f.sent)-1]
	r := &types.Receipt{TxHash: hash, Status: f.status, BlockNumber: big.NewInt(7)}
	if tx.To() == nil {
		r.ContractAddress = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	}
	return r, nil
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.callReply, nil
}

func newLedger(t *testing.T, b *fakeBackend) *Ledger {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	l, err := New(context.Background(), b, key, Options{PollInterval: time.Millisecond})
	require.NoError(t, err)
	return l
}

func TestSubmit_DeploySigned(t *testing.T) {
	b := &fakeBackend{chainID: big.NewInt(31337), status: types.ReceiptStatusSuccessful, pending: 2}
	l := newLedger(t, b)

	rcpt, err := l.Submit(context.Background(), nil, []byte{0x60, 0x80})
	require.NoError(t, err)
	require.True(t, rcpt.Success)
	require.Equal(t, uint64(7), rcpt.BlockNumber)
	require.NotEqual(t, common.Address{}, rcpt.ContractAddress)

	require.Len(t, b.sent, 1)
	tx := b.sent[0]
	require.Nil(t, tx.To())
	require.Equal(t, uint64(120_000), tx.Gas())
	sender, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	require.NoError(t, err)
	require.Equal(t, l.From(), sender)
}

func TestSubmit_RevertedIsRejected(t *testing.T) {
	b := &fakeBackend{chainID: big.NewInt(1), status: types.ReceiptStatusFailed}
	l := newLedger(t, b)

	to := common.HexToAddress("0x01")
	_, err := l.Submit(context.Background(), &to, []byte{1})
	require.True(t, errors.Is(err, ledger.ErrRejected), "got %v", err)
}

func TestSubmit_SendErrorIsRejected(t *testing.T) {
	b := &fakeBackend{chainID: big.NewInt(1), sendErr: errors.New("nonce too low")}
	l := newLedger(t, b)

	_, err := l.Submit(context.Background(), nil, []byte{1})
	require.True(t, errors.Is(err, ledger.ErrRejected), "got %v", err)
}

func TestSubmit_DeadlineIsTimeout(t *testing.T) {
	b := &fakeBackend{chainID: big.NewInt(1), never: true}
	l := newLedger(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Submit(ctx, nil, []byte{1})
	require.True(t, errors.Is(err, ledger.ErrTimeout), "got %v", err)
}

func TestCall(t *testing.T) {
	b := &fakeBackend{chainID: big.NewInt(1), callReply: []byte{0xaa}}
	l := newLedger(t, b)

	out, err := l.Call(context.Background(), common.HexToAddress("0x02"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, out)
}
