package kernel

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"runtime"
	"syscall"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/pkg/netd"
)

const (
	tcpTimeWait = 6
	tcpListen   = 10

	sizeofInetDiagReq = 56

	// SOCK_DESTROY netlink message type from linux/sock_diag.h.
	sockDestroy = 21
)

// inetDiagReq is struct inet_diag_req_v2 addressing a single socket.
type inetDiagReq struct {
	family   uint8
	protocol uint8
	states   uint32
	id       netlink.SocketID
}

func (r *inetDiagReq) Len() int { return sizeofInetDiagReq }

func (r *inetDiagReq) Serialize() []byte {
	b := make([]byte, sizeofInetDiagReq)
	b[0] = r.family
	b[1] = r.protocol
	native := nl.NativeEndian()
	native.PutUint32(b[4:8], r.states)
	binary.BigEndian.PutUint16(b[8:10], r.id.SourcePort)
	binary.BigEndian.PutUint16(b[10:12], r.id.DestinationPort)
	copyAddr(b[12:28], r.family, r.id.Source)
	copyAddr(b[28:44], r.family, r.id.Destination)
	native.PutUint32(b[44:48], r.id.Interface)
	native.PutUint32(b[48:52], r.id.Cookie[0])
	native.PutUint32(b[52:56], r.id.Cookie[1])
	return b
}

func copyAddr(dst []byte, family uint8, ip net.IP) {
	if family == unix.AF_INET {
		copy(dst, ip.To4())
		return
	}
	copy(dst, ip.To16())
}

// ResetConnections destroys TCP sockets whose source address belongs to
// iface, for the families selected by mask. With
// ResetIgnoreInterfaceAddress every non-loopback socket is selected.
func (d *Daemon) ResetConnections(iface string, mask netd.ResetMask) (int, error) {
	const op = "reset connections"

	var local map[netip.Addr]bool
	if !mask.IgnoreInterfaceAddress() {
		if iface == "" {
			return 0, netd.NewErrno(op, syscall.EINVAL)
		}
		addrs, err := d.interfaceAddrs(iface)
		if err != nil {
			return 0, err
		}
		local = addrs
	}

	var families []uint8
	if mask.IPv4() {
		families = append(families, unix.AF_INET)
	}
	if mask.IPv6() {
		families = append(families, unix.AF_INET6)
	}

	count := 0
	err := d.inNamespace(func() error {
		for _, family := range families {
			socks, err := netlink.SocketDiagTCP(family)
			if err != nil {
				return fmt.Errorf("sock_diag family %d: %w", family, err)
			}
			for _, s := range selectSockets(socks, local) {
				if err := d.destroy(s); err != nil {
					d.logger.Debug("Failed to destroy socket",
						"src", s.ID.Source, "sport", s.ID.SourcePort,
						"dst", s.ID.Destination, "dport", s.ID.DestinationPort, "error", err)
					continue
				}
				count++
			}
		}
		return nil
	})
	if err != nil {
		return count, errnoOf(op, err)
	}

	d.logger.Info("Reset connections", "interface", iface, "mask", fmt.Sprintf("0x%x", uint32(mask)), "destroyed", count)
	return count, nil
}

// selectSockets filters out listeners, TIME_WAIT and loopback sockets. A nil
// local set selects every remaining socket.
func selectSockets(socks []*netlink.Socket, local map[netip.Addr]bool) []*netlink.Socket {
	var out []*netlink.Socket
	for _, s := range socks {
		if s.State == tcpListen || s.State == tcpTimeWait {
			continue
		}
		src, ok := netip.AddrFromSlice(s.ID.Source)
		if !ok {
			continue
		}
		src = src.Unmap()
		if src.IsLoopback() {
			continue
		}
		if local != nil && !local[src] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *Daemon) interfaceAddrs(iface string) (map[netip.Addr]bool, error) {
	link, err := d.nlLinkByName(iface)
	if err != nil {
		return nil, netd.NewErrno("reset connections "+iface, syscall.ENODEV)
	}
	addrs, err := d.nlAddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("list addresses on %s: %w", iface, err)
	}

	out := make(map[netip.Addr]bool, len(addrs))
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		if ip, ok := netip.AddrFromSlice(a.IPNet.IP); ok {
			out[ip.Unmap()] = true
		}
	}
	return out, nil
}

func (d *Daemon) destroySocket(s *netlink.Socket) error {
	req := nl.NewNetlinkRequest(sockDestroy, unix.NLM_F_ACK)
	req.AddData(&inetDiagReq{
		family:   s.Family,
		protocol: unix.IPPROTO_TCP,
		states:   ^uint32(0),
		id:       s.ID,
	})
	_, err := req.Execute(unix.NETLINK_INET_DIAG, 0)
	return err
}

// inNamespace runs fn with the calling thread inside the configured netns.
func (d *Daemon) inNamespace(fn func() error) error {
	if !d.nsHandle.IsOpen() {
		return fn()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	orig, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current netns: %w", err)
	}
	defer orig.Close()

	if err := netns.Set(d.nsHandle); err != nil {
		return fmt.Errorf("enter netns %q: %w", d.nsName, err)
	}
	defer netns.Set(orig)

	return fn()
}
