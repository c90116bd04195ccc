package kernel

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/pkg/fwmark"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

// checkSocket returns EBADF for a closed fd and ENOTSOCK for a non-socket.
func checkSocket(op string, fd int) error {
	if fd < 0 {
		return netd.NewErrno(op, syscall.EBADF)
	}
	if _, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE); err != nil {
		return errnoOf(op, err)
	}
	return nil
}

func errnoOf(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return netd.NewErrno(op, errno)
	}
	return netd.NewErrno(op, syscall.EIO)
}

func getMark(fd int) (uint32, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_MARK)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// setMark only writes when the value changes, since SO_MARK needs
// CAP_NET_ADMIN.
func setMark(fd int, old, mark uint32) error {
	if old == mark {
		return nil
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_MARK, int(mark))
}

// SetNetworkForSocket marks fd for netID, keeping its VPN protection.
func (d *Daemon) SetNetworkForSocket(netID uint32, fd int) error {
	const op = "bind socket"

	if err := checkSocket(op, fd); err != nil {
		return err
	}
	if !d.known(netID) {
		return netd.NewErrno(op, syscall.ENONET)
	}

	old, err := getMark(fd)
	if err != nil {
		return errnoOf(op, err)
	}

	cur := fwmark.Decode(old)
	next := fwmark.Mark{
		NetID:              netID,
		ExplicitlySelected: netID != netd.NetIDUnset,
		ProtectedFromVPN:   cur.ProtectedFromVPN,
		Permission:         cur.Permission,
	}

	if err := setMark(fd, old, next.Value()); err != nil {
		return errnoOf(op, err)
	}

	d.logger.Debug("Socket bound", "fd", fd, "net_id", netID, "mark", next.String())
	return nil
}

func (d *Daemon) ProtectFromVpn(fd int) error {
	const op = "protect socket"

	if err := checkSocket(op, fd); err != nil {
		return err
	}

	old, err := getMark(fd)
	if err != nil {
		return errnoOf(op, err)
	}

	if err := setMark(fd, old, old|fwmark.ProtectedBit); err != nil {
		return errnoOf(op, err)
	}

	d.logger.Debug("Socket protected from VPN", "fd", fd)
	return nil
}

// SocketMark reads back the mark on fd.
func (d *Daemon) SocketMark(fd int) (fwmark.Mark, error) {
	const op = "query socket"

	if err := checkSocket(op, fd); err != nil {
		return fwmark.Mark{}, err
	}
	v, err := getMark(fd)
	if err != nil {
		return fwmark.Mark{}, errnoOf(op, err)
	}
	return fwmark.Decode(v), nil
}
