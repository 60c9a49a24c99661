package manifest

import "context"

// Reader reads the raw manifest documents. A document that was never written
// reads as (nil, nil).
type Reader interface {
	ReadAddresses(ctx context.Context) ([]byte, error)
	ReadInterface(ctx context.Context) ([]byte, error)
}

// Store is a manifest backend.
//
// Lock blocks until the single-writer lock is held or ctx is done. The
// returned function releases it.
type Store interface {
	Reader
	WriteAddresses(ctx context.Context, b []byte) error
	WriteInterface(ctx context.Context, b []byte) error
	Lock(ctx context.Context) (func(), error)
}

// AtomicWriter is implemented by stores that can replace both documents in
// one transaction. The writer prefers it when present.
type AtomicWriter interface {
	WriteAll(ctx context.Context, addresses, iface []byte) error
}
