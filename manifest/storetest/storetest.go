// Package storetest holds conformance checks shared by manifest.Store
// implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/manifest"
)

// NewStore constructs a fresh, empty store for a test. Two calls with the
// same key MUST return handles onto the same underlying manifest.
type NewStore func(t *testing.T, key string) manifest.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptyReadsNil", func(t *testing.T) {
		s := newStore(t, "empty")
		b, err := s.ReadAddresses(ctx)
		require.NoError(t, err)
		require.Nil(t, b)
		b, err = s.ReadInterface(ctx)
		require.NoError(t, err)
		require.Nil(t, b)
	})

	t.Run("WriteReplaces", func(t *testing.T) {
		s := newStore(t, "replace")
		require.NoError(t, s.WriteAddresses(ctx, []byte(`{"version":1}`)))
		require.NoError(t, s.WriteAddresses(ctx, []byte(`{"version":1,"modules":{}}`)))
		require.NoError(t, s.WriteInterface(ctx, []byte(`[]`)))

		b, err := s.ReadAddresses(ctx)
		require.NoError(t, err)
		require.Equal(t, `{"version":1,"modules":{}}`, string(b))
		b, err = s.ReadInterface(ctx)
		require.NoError(t, err)
		require.Equal(t, `[]`, string(b))
	})

	t.Run("AtomicWriteAll", func(t *testing.T) {
		s := newStore(t, "atomic")
		aw, ok := s.(manifest.AtomicWriter)
		if !ok {
			t.Skip("store does not implement AtomicWriter")
		}
		require.NoError(t, aw.WriteAll(ctx, []byte(`{"version":1}`), []byte(`[]`)))
		b, err := s.ReadInterface(ctx)
		require.NoError(t, err)
		require.Equal(t, `[]`, string(b))
	})

	t.Run("LockExcludesSecondWriter", func(t *testing.T) {
		first := newStore(t, "lock")
		second := newStore(t, "lock")

		unlock, err := first.Lock(ctx)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
		defer cancel()
		_, err = second.Lock(waitCtx)
		require.Error(t, err)

		unlock()
		unlock2, err := second.Lock(ctx)
		require.NoError(t, err)
		unlock2()
	})
}
