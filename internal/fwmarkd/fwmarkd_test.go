package fwmarkd

import (
	"context"
	"errors"
	"path/filepath"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/pkg/fwmark"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

type fakeDaemon struct {
	bound     map[uint32]int
	protected int
}

func (f *fakeDaemon) SetNetworkForProcess(uint32) error { return nil }
func (f *fakeDaemon) GetNetworkForProcess() uint32      { return 0 }
func (f *fakeDaemon) SetNetworkForResolv(uint32) error  { return nil }
func (f *fakeDaemon) GetNetworkForResolv() uint32       { return 0 }
func (f *fakeDaemon) SetNetworkForSocket(netID uint32, fd int) error {
	if netID != 100 {
		return netd.NewErrno("bind socket", syscall.ENONET)
	}
	f.bound[netID]++
	return nil
}
func (f *fakeDaemon) ProtectFromVpn(fd int) error {
	f.protected++
	return nil
}
func (f *fakeDaemon) ResetConnections(string, netd.ResetMask) (int, error) { return 0, nil }

type fakeMarker struct{}

func (fakeMarker) SocketMark(fd int) (fwmark.Mark, error) {
	return fwmark.Mark{NetID: 100, ExplicitlySelected: true}, nil
}

func startServer(t *testing.T, marker Marker) (*fakeDaemon, *Client) {
	t.Helper()
	d := &fakeDaemon{bound: map[uint32]int{}}
	path := filepath.Join(t.TempDir(), "fwmarkd.sock")
	s := NewServer(path, binder.New(d), marker)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })
	return d, NewClient(path)
}

func udpSocket(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	t.Cleanup(func() { unix.Close(fd) })
	return fd
}

func TestBindOverSocket(t *testing.T) {
	d, c := startServer(t, fakeMarker{})
	fd := udpSocket(t)

	if code := c.BindSocket(fd, 100); code != 0 {
		t.Fatalf("expected 0, got %d", code)
	}
	if d.bound[100] != 1 {
		t.Fatal("daemon did not see the bind")
	}
	if code := c.BindSocket(fd, 7); code != -int(syscall.ENONET) {
		t.Fatalf("expected -ENONET, got %d", code)
	}
	if err := c.SetNetworkForSocket(7, fd); !errors.Is(err, syscall.ENONET) {
		t.Fatalf("expected ENONET, got %v", err)
	}
}

func TestProtectAndQuery(t *testing.T) {
	d, c := startServer(t, fakeMarker{})
	fd := udpSocket(t)

	if err := c.ProtectFromVpn(fd); err != nil {
		t.Fatalf("ProtectFromVpn: %v", err)
	}
	if d.protected != 1 {
		t.Fatal("daemon did not see the protect")
	}

	m, err := c.Query(fd)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if m.NetID != 100 || !m.ExplicitlySelected {
		t.Fatalf("unexpected mark %s", m)
	}
}

func TestQueryWithoutMarker(t *testing.T) {
	_, c := startServer(t, nil)
	if _, err := c.Query(udpSocket(t)); !errors.Is(err, syscall.EOPNOTSUPP) {
		t.Fatalf("expected EOPNOTSUPP, got %v", err)
	}
}

func TestUnreachableServer(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if code := c.BindSocket(0, 100); code != -int(syscall.EIO) {
		t.Fatalf("expected -EIO, got %d", code)
	}
}

func TestInvalidDescriptor(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if code := c.BindSocket(-1, 100); code != -int(syscall.EBADF) {
		t.Fatalf("expected -EBADF, got %d", code)
	}
	if code := c.Protect(-1); code != -int(syscall.EBADF) {
		t.Fatalf("expected -EBADF, got %d", code)
	}
	if _, err := c.Query(-1); !errors.Is(err, syscall.EBADF) {
		t.Fatalf("expected EBADF, got %v", err)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	req := request{Command: CommandBind, NetID: 4242}
	got, err := parseRequest(req.marshal())
	if err != nil || got != req {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := parseRequest([]byte{1, 2}); err == nil {
		t.Fatal("short request should fail")
	}
	resp, _ := parseResponse(response{Code: -int32(syscall.EBADF)}.marshal())
	if resp.Code != -int32(syscall.EBADF) {
		t.Fatalf("negative code lost: %d", resp.Code)
	}
}
