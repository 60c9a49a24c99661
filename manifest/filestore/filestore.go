// Package filestore keeps the manifest as two JSON files in one directory.
//
// Each document is replaced by writing a temporary file, syncing it and
// renaming it over the target, so a reader sees either the old or the new
// version of a file, never a torn one. The two files are still replaced one
// after the other; the addresses document's interface CID exposes a crash
// between the renames.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"xdao.co/facetreg/manifest"
)

const (
	AddressesFile = "addresses.json"
	InterfaceFile = "combined-abi.json"
	LockFile      = ".lock"
)

// DefaultLockPoll is how often Lock retries while another writer holds the lock.
const DefaultLockPoll = 50 * time.Millisecond

// Store is a directory-backed manifest.Store.
type Store struct {
	dir string

	// LockPoll overrides DefaultLockPoll when non-zero.
	LockPoll time.Duration
}

var _ manifest.Store = (*Store)(nil)

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("filestore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) ReadAddresses(ctx context.Context) ([]byte, error) {
	return s.read(ctx, AddressesFile)
}

func (s *Store) ReadInterface(ctx context.Context) ([]byte, error) {
	return s.read(ctx, InterfaceFile)
}

func (s *Store) WriteAddresses(ctx context.Context, b []byte) error {
	return s.write(ctx, AddressesFile, b)
}

func (s *Store) WriteInterface(ctx context.Context, b []byte) error {
	return s.write(ctx, InterfaceFile, b)
}

// Lock creates the lock file exclusively, retrying until ctx is done. A lock
// file left behind by a crashed writer must be removed by hand; its content
// names the process that created it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	path := filepath.Join(s.dir, LockFile)
	poll := s.LockPoll
	if poll <= 0 {
		poll = DefaultLockPoll
	}
	for {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("filestore: lock: %w", err)
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("filestore: lock %s held by another writer: %w", path, ctx.Err())
		case <-timer.C:
		}
	}
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) write(ctx context.Context, name string, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return err
	}
	return syncDir(s.dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems do not support syncing directories.
	_ = d.Sync()
	return nil
}
