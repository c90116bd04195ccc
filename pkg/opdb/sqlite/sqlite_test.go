package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/veesix-networks/netbridge/pkg/opdb"
	"github.com/veesix-networks/netbridge/pkg/opdb/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) opdb.Store {
		s, err := Open(filepath.Join(t.TempDir(), "opdb.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
