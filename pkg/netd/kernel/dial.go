package kernel

import (
	"context"
	"net"
	"net/netip"
	"syscall"

	"github.com/veesix-networks/netbridge/pkg/netd"
)

// markControl binds each new socket to the network returned by netID.
func (d *Daemon) markControl(netID func() uint32) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		id := netID()
		if id == netd.NetIDUnset {
			return nil
		}
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = d.SetNetworkForSocket(id, int(fd))
		})
		if err != nil {
			return err
		}
		return opErr
	}
}

// Dialer returns a dialer whose sockets follow the process network binding.
// Host names are looked up through Resolver.
func (d *Daemon) Dialer() *net.Dialer {
	return &net.Dialer{
		Control:  d.markControl(d.GetNetworkForProcess),
		Resolver: d.Resolver(),
	}
}

// Resolver returns a resolver that queries the DNS servers of the bound
// resolver network over sockets marked for it. With no binding, or a network
// without DNS servers, the dialled address is used unchanged.
func (d *Daemon) Resolver() *net.Resolver {
	dialer := &net.Dialer{Control: d.markControl(d.GetNetworkForResolv)}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			if server, ok := d.resolverServer(); ok {
				address = netip.AddrPortFrom(server, 53).String()
			}
			return dialer.DialContext(ctx, network, address)
		},
	}
}

func (d *Daemon) resolverServer() (netip.Addr, bool) {
	id := d.GetNetworkForResolv()
	if id == netd.NetIDUnset {
		return netip.Addr{}, false
	}
	n, ok := d.Network(id)
	if !ok || len(n.DNS) == 0 {
		return netip.Addr{}, false
	}
	return n.DNS[0], true
}
