package binder

import (
	"syscall"
	"testing"

	"github.com/veesix-networks/netbridge/pkg/netd"
)

type fakeDaemon struct {
	known     map[uint32]bool
	process   uint32
	resolv    uint32
	sockets   map[int]uint32
	protected map[int]bool
	resetN    int
	resetErr  error
	calls     int
}

func newFakeDaemon(ids ...uint32) *fakeDaemon {
	f := &fakeDaemon{
		known:     map[uint32]bool{netd.NetIDUnset: true},
		sockets:   map[int]uint32{3: 0, 4: 0},
		protected: map[int]bool{},
	}
	for _, id := range ids {
		f.known[id] = true
	}
	return f
}

func (f *fakeDaemon) SetNetworkForProcess(netID uint32) error {
	f.calls++
	if !f.known[netID] {
		return netd.NewErrno("bind process", syscall.ENONET)
	}
	f.process = netID
	return nil
}

func (f *fakeDaemon) GetNetworkForProcess() uint32 { return f.process }

func (f *fakeDaemon) SetNetworkForResolv(netID uint32) error {
	f.calls++
	if !f.known[netID] {
		return netd.NewErrno("bind resolver", syscall.ENONET)
	}
	f.resolv = netID
	return nil
}

func (f *fakeDaemon) GetNetworkForResolv() uint32 { return f.resolv }

func (f *fakeDaemon) SetNetworkForSocket(netID uint32, fd int) error {
	f.calls++
	if _, ok := f.sockets[fd]; !ok {
		return netd.NewErrno("bind socket", syscall.EBADF)
	}
	if !f.known[netID] {
		return netd.NewErrno("bind socket", syscall.ENONET)
	}
	f.sockets[fd] = netID
	return nil
}

func (f *fakeDaemon) ProtectFromVpn(fd int) error {
	f.calls++
	if _, ok := f.sockets[fd]; !ok {
		return netd.NewErrno("protect", syscall.EBADF)
	}
	f.protected[fd] = true
	return nil
}

func (f *fakeDaemon) ResetConnections(iface string, mask netd.ResetMask) (int, error) {
	f.calls++
	return f.resetN, f.resetErr
}

func TestBindProcess(t *testing.T) {
	d := newFakeDaemon(100)
	b := New(d)

	if b.GetProcessBoundNetwork() != netd.NetIDUnset {
		t.Fatal("expected unset binding initially")
	}
	if !b.BindProcessToNetwork(100) {
		t.Fatal("BindProcessToNetwork(100) should succeed")
	}
	if got := b.GetProcessBoundNetwork(); got != 100 {
		t.Fatalf("GetProcessBoundNetwork() = %d, want 100", got)
	}
	if b.BindProcessToNetwork(5) {
		t.Fatal("binding to an unknown network should fail")
	}
	if got := b.GetProcessBoundNetwork(); got != 100 {
		t.Fatalf("failed bind changed binding to %d", got)
	}
	if !b.BindProcessToNetwork(netd.NetIDUnset) {
		t.Fatal("clearing the binding should succeed")
	}
}

func TestBindResolver(t *testing.T) {
	d := newFakeDaemon(100)
	b := New(d)

	if !b.BindResolverToNetwork(100) || b.GetResolverBoundNetwork() != 100 {
		t.Fatal("resolver bind failed")
	}
	if b.BindResolverToNetwork(7) {
		t.Fatal("resolver bind to unknown network should fail")
	}
}

func TestBindSocketReturnsRawCode(t *testing.T) {
	d := newFakeDaemon(100)
	b := New(d)

	if code := b.BindSocketToNetwork(3, 100); code != 0 {
		t.Fatalf("expected 0, got %d", code)
	}
	badFD := b.BindSocketToNetwork(99, 100)
	unknownNet := b.BindSocketToNetwork(3, 4242)

	if badFD != -int(syscall.EBADF) {
		t.Fatalf("bad fd: got %d", badFD)
	}
	if unknownNet != -int(syscall.ENONET) {
		t.Fatalf("unknown network: got %d", unknownNet)
	}
	if badFD == unknownNet {
		t.Fatal("bad fd and unknown network must be distinguishable")
	}
}

func TestProtectSocket(t *testing.T) {
	d := newFakeDaemon()
	b := New(d)

	if !b.ProtectSocketFromVpn(4) || !d.protected[4] {
		t.Fatal("protect should succeed on a valid socket")
	}
	if b.ProtectSocketFromVpn(42) {
		t.Fatal("protect should fail on a bad fd")
	}
	if code := b.ProtectSocket(42); code != -int(syscall.EBADF) {
		t.Fatalf("expected -EBADF, got %d", code)
	}
}

func TestResetConnections(t *testing.T) {
	d := newFakeDaemon()
	d.resetN = 3
	b := New(d)

	if n := b.ResetConnections("wlan0", netd.ResetAllAddresses); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}

	d.resetErr = netd.NewErrno("reset", syscall.ENODEV)
	if n := b.ResetConnections("nope0", netd.ResetIPv4Addresses); n != -int(syscall.ENODEV) {
		t.Fatalf("expected -ENODEV, got %d", n)
	}
}

func TestObserverSeesEveryCall(t *testing.T) {
	d := newFakeDaemon(100)
	b := New(d)

	var ops []string
	var codes []int
	b.AddObserver(func(op string, netID uint32, fd int, code int) {
		ops = append(ops, op)
		codes = append(codes, code)
	})

	d.resetN = 5
	b.BindProcessToNetwork(100)
	b.BindSocketToNetwork(99, 100)
	b.GetProcessBoundNetwork()
	b.ResetConnections("wlan0", netd.ResetAllAddresses)

	if len(ops) != 3 || ops[0] != OpBindProcess || ops[1] != OpBindSocket || ops[2] != OpReset {
		t.Fatalf("unexpected ops %v", ops)
	}
	if codes[0] != 0 || codes[1] != -int(syscall.EBADF) || codes[2] != 5 {
		t.Fatalf("unexpected codes %v", codes)
	}
	if d.calls != 3 {
		t.Fatalf("expected 3 daemon calls, got %d", d.calls)
	}
}
