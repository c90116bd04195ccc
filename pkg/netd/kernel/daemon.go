// Package kernel implements netd.Daemon on Linux with socket marks and
// policy routing rules.
package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/veesix-networks/netbridge/pkg/config/network"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

type Network struct {
	ID         uint32       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Table      uint32       `json:"table"`
	Interfaces []string     `json:"interfaces,omitempty"`
	VPN        bool         `json:"vpn,omitempty"`
	DNS        []netip.Addr `json:"dns,omitempty"`
}

type Daemon struct {
	mu       sync.RWMutex
	networks map[uint32]*Network
	rules    []*netlink.Rule

	processNet atomic.Uint32
	resolvNet  atomic.Uint32

	installRules  bool
	nsName        string
	nsHandle      netns.NsHandle
	netlinkHandle *netlink.Handle
	logger        *slog.Logger

	// destroy is swapped in tests so reset selection can be checked without
	// CAP_NET_ADMIN.
	destroy func(*netlink.Socket) error
}

var _ netd.Daemon = (*Daemon)(nil)

func New(cfg network.NetdConfig) (*Daemon, error) {
	d := &Daemon{
		networks:     make(map[uint32]*Network),
		installRules: cfg.InstallRules,
		nsHandle:     netns.None(),
		logger:       logger.Get(logger.Netd),
	}
	d.destroy = d.destroySocket

	if cfg.Netns != "" {
		if err := d.SetNetns(cfg.Netns); err != nil {
			return nil, err
		}
	}

	for _, n := range cfg.Networks {
		if err := d.addNetwork(n); err != nil {
			d.Close()
			return nil, fmt.Errorf("network %d: %w", n.ID, err)
		}
	}

	return d, nil
}

// SetNetns points rule, link and socket operations at a named namespace.
func (d *Daemon) SetNetns(name string) error {
	nsHandle, err := netns.GetFromName(name)
	if err != nil {
		return fmt.Errorf("get netns %q: %w", name, err)
	}

	h, err := netlink.NewHandleAt(nsHandle)
	if err != nil {
		nsHandle.Close()
		return fmt.Errorf("create netlink handle for netns %q: %w", name, err)
	}

	d.nsName = name
	d.nsHandle = nsHandle
	d.netlinkHandle = h
	d.logger.Info("Network namespace configured", "netns", name)
	return nil
}

func (d *Daemon) Name() string {
	return "netd"
}

func (d *Daemon) Start(ctx context.Context) error {
	if !d.installRules {
		d.logger.Info("Policy rule installation disabled")
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, n := range d.sortedNetworks() {
		if err := d.installNetworkRules(n); err != nil {
			d.removeRules()
			return fmt.Errorf("install rules for network %d: %w", n.ID, err)
		}
	}

	d.logger.Info("Installed policy rules", "networks", len(d.networks), "rules", len(d.rules))
	return nil
}

func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.removeRules()
	d.mu.Unlock()
	return nil
}

func (d *Daemon) Close() {
	if d.netlinkHandle != nil {
		d.netlinkHandle.Close()
		d.netlinkHandle = nil
	}
	if d.nsHandle.IsOpen() {
		d.nsHandle.Close()
	}
}

func (d *Daemon) addNetwork(cfg network.NetworkConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, ok := d.networks[cfg.ID]; ok {
		return fmt.Errorf("network %d already exists", cfg.ID)
	}

	table := cfg.Table
	if table == 0 {
		id, err := d.allocateTableID()
		if err != nil {
			return fmt.Errorf("allocate table ID for network %d: %w", cfg.ID, err)
		}
		table = id
	}

	n := &Network{
		ID:         cfg.ID,
		Name:       cfg.Name,
		Table:      table,
		Interfaces: append([]string(nil), cfg.Interfaces...),
		VPN:        cfg.VPN,
	}
	for _, s := range cfg.DNS {
		n.DNS = append(n.DNS, netip.MustParseAddr(s))
	}

	d.networks[n.ID] = n
	d.logger.Info("Added network", "net_id", n.ID, "name", n.Name, "table", n.Table, "vpn", n.VPN)
	return nil
}

func (d *Daemon) Network(id uint32) (Network, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.networks[id]
	if !ok {
		return Network{}, false
	}
	return *n, true
}

func (d *Daemon) sortedNetworks() []*Network {
	out := make([]*Network, 0, len(d.networks))
	for _, n := range d.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// known reports whether id may be bound. NetIDUnset is always accepted.
func (d *Daemon) known(id uint32) bool {
	if id == netd.NetIDUnset {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.networks[id]
	return ok
}

func (d *Daemon) SetNetworkForProcess(netID uint32) error {
	if !d.known(netID) {
		return netd.NewErrno("bind process", syscall.ENONET)
	}
	d.processNet.Store(netID)
	d.logger.Debug("Process network bound", "net_id", netID)
	return nil
}

func (d *Daemon) GetNetworkForProcess() uint32 {
	return d.processNet.Load()
}

func (d *Daemon) SetNetworkForResolv(netID uint32) error {
	if !d.known(netID) {
		return netd.NewErrno("bind resolver", syscall.ENONET)
	}
	d.resolvNet.Store(netID)
	d.logger.Debug("Resolver network bound", "net_id", netID)
	return nil
}

func (d *Daemon) GetNetworkForResolv() uint32 {
	return d.resolvNet.Load()
}
