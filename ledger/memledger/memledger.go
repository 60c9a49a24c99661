// Package memledger is an in-memory ledger used by tests and dry runs.
//
// Contract creation derives addresses the way the EVM does (sender + nonce),
// so a redeploy always yields a fresh address. Calls to addresses with a
// registered Handler are dispatched to it.
package memledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"xdao.co/facetreg/ledger"
)

// Handler simulates a contract at one address.
type Handler interface {
	// Transact applies a state-changing call from sender. Returning an error
	// reverts the transaction.
	Transact(from common.Address, data []byte) error
	// Call answers a read-only call.
	Call(from common.Address, data []byte) ([]byte, error)
}

// Ledger is a single-identity simulated chain.
type Ledger struct {
	mu       sync.Mutex
	from     common.Address
	nonce    uint64
	block    uint64
	code     map[common.Address][]byte
	handlers map[common.Address]Handler
	failNext []error

	// Submissions counts every Submit call, successful or not.
	Submissions int
}

var _ ledger.Submitter = (*Ledger)(nil)

// New returns an empty ledger submitting as from.
func New(from common.Address) *Ledger {
	return &Ledger{
		from:     from,
		code:     make(map[common.Address][]byte),
		handlers: make(map[common.Address]Handler),
	}
}

func (l *Ledger) From() common.Address { return l.from }

// As returns a view of the same chain that submits as another identity.
func (l *Ledger) As(from common.Address) *Identity { return &Identity{l: l, from: from} }

// Install registers a contract simulation at addr.
func (l *Ledger) Install(addr common.Address, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[addr] = h
	l.code[addr] = []byte{0xfe}
}

// FailNext makes the next Submit fail with err (wrap ledger.ErrRejected or
// ledger.ErrTimeout to simulate the network).
func (l *Ledger) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = append(l.failNext, err)
}

// Code returns the code stored at addr.
func (l *Ledger) Code(addr common.Address) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.code[addr]...)
}

func (l *Ledger) Submit(ctx context.Context, to *common.Address, data []byte) (*ledger.Receipt, error) {
	return l.submit(ctx, l.from, to, data)
}

func (l *Ledger) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return l.call(ctx, l.from, to, data)
}

func (l *Ledger) submit(ctx context.Context, from common.Address, to *common.Address, data []byte) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrTimeout, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Submissions++
	if len(l.failNext) > 0 {
		err := l.failNext[0]
		l.failNext = l.failNext[1:]
		return nil, err
	}

	nonce := l.nonce
	l.nonce++
	l.block++
	rcpt := &ledger.Receipt{
		TxHash:      txHash(from, nonce, data),
		BlockNumber: l.block,
		Success:     true,
	}

	if to == nil {
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty creation code", ledger.ErrRejected)
		}
		addr := crypto.CreateAddress(from, nonce)
		l.code[addr] = append([]byte(nil), data...)
		rcpt.ContractAddress = addr
		return rcpt, nil
	}

	h, ok := l.handlers[*to]
	if !ok {
		// Plain value transfer or call into code without a simulation.
		return rcpt, nil
	}
	if err := h.Transact(from, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrRejected, err)
	}
	return rcpt, nil
}

func (l *Ledger) call(ctx context.Context, from common.Address, to common.Address, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	h, ok := l.handlers[to]
	l.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return h.Call(from, data)
}

func txHash(from common.Address, nonce uint64, data []byte) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(from.Bytes(), n[:], data)
}

// Identity submits to a shared Ledger as a specific sender.
type Identity struct {
	l    *Ledger
	from common.Address
}

var _ ledger.Submitter = (*Identity)(nil)

func (i *Identity) From() common.Address { return i.from }

func (i *Identity) Submit(ctx context.Context, to *common.Address, data []byte) (*ledger.Receipt, error) {
	return i.l.submit(ctx, i.from, to, data)
}

func (i *Identity) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return i.l.call(ctx, i.from, to, data)
}
