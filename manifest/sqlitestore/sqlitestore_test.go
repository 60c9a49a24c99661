package sqlitestore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/storetest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.LockPoll = 5 * time.Millisecond
	return s
}

func TestSQLiteStore_Conformance(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]string{}
	storetest.RunStoreConformance(t, func(t *testing.T, key string) manifest.Store {
		t.Helper()
		mu.Lock()
		path, ok := paths[t.Name()+"/"+key]
		if !ok {
			path = filepath.Join(t.TempDir(), "manifest.db")
			paths[t.Name()+"/"+key] = path
		}
		mu.Unlock()
		return openTestStore(t, path)
	})
}

func TestSQLiteStore_ReopenKeepsDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	ctx := context.Background()

	s := openTestStore(t, path)
	require.NoError(t, s.WriteAll(ctx, []byte(`{"version":1}`), []byte(`[]`)))
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	b, err := reopened.ReadAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"version":1}`, string(b))
}

func TestSQLiteStore_OpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
