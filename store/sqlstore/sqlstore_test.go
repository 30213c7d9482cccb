package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/hike-social/hike/store"
	"github.com/hike-social/hike/store/storetest"
	"github.com/stretchr/testify/require"
)

// openTest opens a file-backed sqlite store. One connection keeps sqlite
// from reporting "database is locked" under the concurrent tests.
func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hike.db")
	cfg := DefaultConfig()
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1

	s, err := Open(context.Background(), sqlite.Open(path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTest(t) })
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hike.db")
	cfg := DefaultConfig()
	cfg.MaxOpenConns = 1

	s, err := Open(context.Background(), sqlite.Open(path), cfg)
	require.NoError(t, err)
	acc := storetest.Account(t, s, "alice")
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), sqlite.Open(path), cfg)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)
}
