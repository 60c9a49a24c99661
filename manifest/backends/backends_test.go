package backends_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/backends"
	_ "xdao.co/facetreg/manifest/filestore"
	_ "xdao.co/facetreg/manifest/sqlitestore"
)

func TestBackends_Registered(t *testing.T) {
	require.Equal(t, []string{"file", "sqlite"}, backends.Names())
}

func TestBackends_OpenEach(t *testing.T) {
	for _, name := range backends.Names() {
		t.Run(name, func(t *testing.T) {
			loc := filepath.Join(t.TempDir(), "manifest")
			if name == "sqlite" {
				loc = filepath.Join(loc, "manifest.db")
			}
			store, closeFn, err := backends.Open(name, backends.Options{Location: loc})
			require.NoError(t, err)
			defer func() { require.NoError(t, closeFn()) }()
			require.NoError(t, manifest.Check(context.Background(), store))
		})
	}
}

func TestBackends_Unknown(t *testing.T) {
	_, _, err := backends.Open("etcd", backends.Options{})
	require.ErrorContains(t, err, "unknown manifest backend")
}

func TestBackends_RejectsDuplicate(t *testing.T) {
	err := backends.Register(backends.Backend{
		Name: "file",
		Open: func(backends.Options) (manifest.Store, func() error, error) { return nil, nil, nil },
	})
	require.Error(t, err)
}
