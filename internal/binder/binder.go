// Package binder routes network binding calls to the network daemon.
package binder

import (
	"log/slog"

	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

// Observer sees every call that reached the daemon together with its raw
// code. For a successful reset the code is the number of sockets destroyed.
type Observer func(op string, netID uint32, fd int, code int)

const (
	OpBindProcess  = "bind_process"
	OpBindResolver = "bind_resolver"
	OpBindSocket   = "bind_socket"
	OpProtect      = "protect"
	OpReset        = "reset"
)

// Binder holds no state of its own. Nothing is validated, cached or retried.
type Binder struct {
	daemon    netd.Daemon
	observers []Observer
	logger    *slog.Logger
}

func New(d netd.Daemon) *Binder {
	return &Binder{
		daemon: d,
		logger: logger.Get(logger.Binder),
	}
}

func (b *Binder) AddObserver(o Observer) {
	b.observers = append(b.observers, o)
}

func (b *Binder) observe(op string, netID uint32, fd int, err error) int {
	code := netd.Code(err)
	if err != nil {
		b.logger.Debug("Daemon call failed", "op", op, "net_id", netID, "fd", fd, "code", code, "error", err)
	}
	b.notify(op, netID, fd, code)
	return code
}

func (b *Binder) notify(op string, netID uint32, fd int, code int) {
	for _, o := range b.observers {
		o(op, netID, fd, code)
	}
}

func (b *Binder) BindProcessToNetwork(netID uint32) bool {
	return b.observe(OpBindProcess, netID, -1, b.daemon.SetNetworkForProcess(netID)) == 0
}

// GetProcessBoundNetwork returns netd.NetIDUnset when nothing is bound.
func (b *Binder) GetProcessBoundNetwork() uint32 {
	return b.daemon.GetNetworkForProcess()
}

func (b *Binder) GetResolverBoundNetwork() uint32 {
	return b.daemon.GetNetworkForResolv()
}

func (b *Binder) BindResolverToNetwork(netID uint32) bool {
	return b.observe(OpBindResolver, netID, -1, b.daemon.SetNetworkForResolv(netID)) == 0
}

// BindSocketToNetwork returns 0 or a negative errno, unchanged.
func (b *Binder) BindSocketToNetwork(fd int, netID uint32) int {
	return b.observe(OpBindSocket, netID, fd, b.daemon.SetNetworkForSocket(netID, fd))
}

func (b *Binder) ProtectSocketFromVpn(fd int) bool {
	return b.ProtectSocket(fd) == 0
}

// ProtectSocket is ProtectSocketFromVpn with the daemon's raw code.
func (b *Binder) ProtectSocket(fd int) int {
	return b.observe(OpProtect, netd.NetIDUnset, fd, b.daemon.ProtectFromVpn(fd))
}

// ResetConnections returns the number of sockets destroyed, or a negative
// errno.
func (b *Binder) ResetConnections(iface string, mask netd.ResetMask) int {
	n, err := b.daemon.ResetConnections(iface, mask)
	if err != nil {
		return b.observe(OpReset, netd.NetIDUnset, -1, err)
	}
	b.notify(OpReset, netd.NetIDUnset, -1, n)
	return n
}
