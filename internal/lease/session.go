package lease

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/opdb"
)

// Session is a held lease. v6 and PD sessions carry the identifier the
// client needs for renew and release.
type Session struct {
	Family    dhcp.Family       `json:"family" msgpack:"family"`
	Interface string            `json:"interface" msgpack:"interface"`
	SessionID string            `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	Result    dhcp.ResultRecord `json:"result" msgpack:"result"`
	UpdatedAt time.Time         `json:"updated_at" msgpack:"updated_at"`
}

type sessionKey struct {
	family dhcp.Family
	iface  string
}

var namespaces = map[dhcp.Family]string{
	dhcp.FamilyV4: opdb.NamespaceDHCPv4Sessions,
	dhcp.FamilyV6: opdb.NamespaceDHCPv6Sessions,
	dhcp.FamilyPD: opdb.NamespacePDSessions,
}

func (a *Adapter) session(family dhcp.Family, iface string) (Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[sessionKey{family, iface}]
	return s, ok
}

func (a *Adapter) activeCount(family dhcp.Family) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for k := range a.sessions {
		if k.family == family {
			n++
		}
	}
	return n
}

func (a *Adapter) saveSession(ctx context.Context, s Session) {
	a.mu.Lock()
	a.sessions[sessionKey{s.Family, s.Interface}] = s
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	data, err := msgpack.Marshal(&s)
	if err != nil {
		a.logger.Warn("Failed to encode session", "family", s.Family, "interface", s.Interface, "error", err)
		return
	}
	if err := a.store.Put(ctx, namespaces[s.Family], s.Interface, data); err != nil {
		a.logger.Warn("Failed to persist session", "family", s.Family, "interface", s.Interface, "error", err)
	}
}

func (a *Adapter) dropSession(ctx context.Context, family dhcp.Family, iface string) {
	a.mu.Lock()
	delete(a.sessions, sessionKey{family, iface})
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	if err := a.store.Delete(ctx, namespaces[family], iface); err != nil {
		a.logger.Warn("Failed to delete persisted session", "family", family, "interface", iface, "error", err)
	}
}

// Sessions lists held leases ordered by family then interface.
func (a *Adapter) Sessions() []Session {
	a.mu.RLock()
	out := make([]Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].Interface < out[j].Interface
	})
	return out
}

func (a *Adapter) Namespaces() []string {
	return []string{
		opdb.NamespaceDHCPv4Sessions,
		opdb.NamespaceDHCPv6Sessions,
		opdb.NamespacePDSessions,
	}
}

// Restore reloads sessions persisted by a previous run. Records whose lease
// no longer assembles are skipped.
func (a *Adapter) Restore(ctx context.Context, store opdb.Store) error {
	restored := 0
	for _, family := range dhcp.Families {
		err := store.Load(ctx, namespaces[family], func(key string, value []byte) error {
			var s Session
			if err := msgpack.Unmarshal(value, &s); err != nil {
				a.logger.Warn("Skipping undecodable session", "family", family, "interface", key, "error", err)
				return nil
			}
			if _, err := dhcp.FromRecord(s.Result); err != nil {
				a.logger.Warn("Skipping invalid session", "family", family, "interface", key, "error", err)
				return nil
			}
			s.Family = family
			s.Interface = key

			a.mu.Lock()
			a.sessions[sessionKey{family, key}] = s
			a.mu.Unlock()
			restored++
			return nil
		})
		if err != nil {
			return fmt.Errorf("load %s: %w", namespaces[family], err)
		}
	}

	a.logger.Info("Restored lease sessions", "count", restored)
	return nil
}
