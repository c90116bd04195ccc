package kernel

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"syscall"
	"testing"
	"time"

	"github.com/veesix-networks/netbridge/pkg/config/network"
	"github.com/veesix-networks/netbridge/pkg/fwmark"
)

func loopbackListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln
}

func connMark(t *testing.T, d *Daemon, conn net.Conn) fwmark.Mark {
	t.Helper()
	raw, err := conn.(*net.TCPConn).SyscallConn()
	if err != nil {
		t.Fatalf("SyscallConn: %v", err)
	}
	var m fwmark.Mark
	var markErr error
	if err := raw.Control(func(fd uintptr) {
		m, markErr = d.SocketMark(int(fd))
	}); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if markErr != nil {
		t.Fatalf("SocketMark: %v", markErr)
	}
	return m
}

func TestDialerFollowsProcessBinding(t *testing.T) {
	d := newTestDaemon(t, network.NetworkConfig{ID: 100})
	ln := loopbackListener(t)

	if err := d.SetNetworkForProcess(100); err != nil {
		t.Fatalf("SetNetworkForProcess: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := d.Dialer().DialContext(ctx, "tcp", ln.Addr().String())
	if errors.Is(err, syscall.EPERM) {
		t.Skip("SO_MARK needs CAP_NET_ADMIN")
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if m := connMark(t, d, conn); m.NetID != 100 || !m.ExplicitlySelected {
		t.Fatalf("unexpected mark %+v", m)
	}
}

func TestDialerWithoutBindingLeavesSocketUnmarked(t *testing.T) {
	d := newTestDaemon(t, network.NetworkConfig{ID: 100})
	ln := loopbackListener(t)

	dialer := d.Dialer()
	if dialer.Resolver == nil {
		t.Fatal("dialer should resolve through the daemon resolver")
	}

	conn, err := dialer.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if m := connMark(t, d, conn); m.NetID != 0 || m.ExplicitlySelected {
		t.Fatalf("unbound dial should not mark, got %+v", m)
	}
}

func TestResolverServerFollowsResolverBinding(t *testing.T) {
	d := newTestDaemon(t,
		network.NetworkConfig{ID: 100, DNS: []string{"192.0.2.53", "192.0.2.54"}},
		network.NetworkConfig{ID: 101},
	)

	if _, ok := d.resolverServer(); ok {
		t.Fatal("no resolver binding should keep the system servers")
	}

	if err := d.SetNetworkForResolv(100); err != nil {
		t.Fatalf("SetNetworkForResolv: %v", err)
	}
	server, ok := d.resolverServer()
	if !ok || server != netip.MustParseAddr("192.0.2.53") {
		t.Fatalf("expected first DNS server, got %v %v", server, ok)
	}

	if err := d.SetNetworkForResolv(101); err != nil {
		t.Fatalf("SetNetworkForResolv: %v", err)
	}
	if _, ok := d.resolverServer(); ok {
		t.Fatal("network without DNS servers should keep the system servers")
	}
}
