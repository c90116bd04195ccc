// Package storetest holds the behaviour every opdb.Store driver must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/netbridge/pkg/opdb"
)

func Run(t *testing.T, open func(t *testing.T) opdb.Store) {
	t.Run("PutLoad", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, opdb.NamespaceDHCPv6Sessions, "eth0", []byte("a")))
		require.NoError(t, s.Put(ctx, opdb.NamespaceDHCPv6Sessions, "eth1", []byte("b")))
		require.NoError(t, s.Put(ctx, opdb.NamespaceDHCPv6Sessions, "eth0", []byte("c")))
		require.NoError(t, s.Put(ctx, opdb.NamespacePDSessions, "eth0", []byte("pd")))

		got := load(t, s, opdb.NamespaceDHCPv6Sessions)
		assert.Equal(t, map[string]string{"eth0": "c", "eth1": "b"}, got)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, opdb.NamespaceDHCPv4Sessions, "wlan0", []byte("x")))
		require.NoError(t, s.Delete(ctx, opdb.NamespaceDHCPv4Sessions, "wlan0"))
		require.NoError(t, s.Delete(ctx, opdb.NamespaceDHCPv4Sessions, "missing"))
		require.NoError(t, s.Delete(ctx, "unknown-namespace", "missing"))

		assert.Empty(t, load(t, s, opdb.NamespaceDHCPv4Sessions))
	})

	t.Run("Clear", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, opdb.NamespacePDSessions, "eth0", []byte("x")))
		require.NoError(t, s.Put(ctx, opdb.NamespaceDHCPv6Sessions, "eth0", []byte("y")))
		require.NoError(t, s.Clear(ctx, opdb.NamespacePDSessions))
		require.NoError(t, s.Clear(ctx, "never-used"))

		assert.Empty(t, load(t, s, opdb.NamespacePDSessions))
		assert.Len(t, load(t, s, opdb.NamespaceDHCPv6Sessions), 1)
	})
}

func load(t *testing.T, s opdb.Store, ns string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := s.Load(context.Background(), ns, func(key string, value []byte) error {
		out[key] = string(value)
		return nil
	})
	require.NoError(t, err)
	return out
}
