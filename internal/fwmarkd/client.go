package fwmarkd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/pkg/fwmark"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

const defaultTimeout = 5 * time.Second

// Client sends sockets to a fwmarkd server. It opens one connection per call.
type Client struct {
	path    string
	timeout time.Duration
}

func NewClient(path string) *Client {
	return &Client{path: path, timeout: defaultTimeout}
}

// call returns the server's answer. A socket the kernel refuses to pass
// comes back as that errno's code without reaching the server.
func (c *Client) call(cmd Command, netID uint32, fd int) (response, error) {
	if fd < 0 {
		return response{Code: -int32(syscall.EBADF)}, nil
	}

	conn, err := net.DialTimeout("unix", c.path, c.timeout)
	if err != nil {
		return response{}, fmt.Errorf("dial fwmarkd: %w", err)
	}
	defer conn.Close()

	uc := conn.(*net.UnixConn)
	uc.SetDeadline(time.Now().Add(c.timeout))

	req := request{Command: cmd, NetID: netID}
	if _, _, err := uc.WriteMsgUnix(req.marshal(), unix.UnixRights(fd), nil); err != nil {
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return response{Code: -int32(errno)}, nil
		}
		return response{}, fmt.Errorf("send %s: %w", cmd, err)
	}

	buf := make([]byte, responseLen)
	if _, err := io.ReadFull(uc, buf); err != nil {
		return response{}, fmt.Errorf("read %s reply: %w", cmd, err)
	}
	return parseResponse(buf)
}

// BindSocket returns the daemon's raw code, -EBADF for an fd that cannot be
// sent, or -EIO if the server could not be reached.
func (c *Client) BindSocket(fd int, netID uint32) int {
	resp, err := c.call(CommandBind, netID, fd)
	if err != nil {
		return -int(syscall.EIO)
	}
	return int(resp.Code)
}

func (c *Client) Protect(fd int) int {
	resp, err := c.call(CommandProtect, netd.NetIDUnset, fd)
	if err != nil {
		return -int(syscall.EIO)
	}
	return int(resp.Code)
}

func (c *Client) Query(fd int) (fwmark.Mark, error) {
	resp, err := c.call(CommandQuery, netd.NetIDUnset, fd)
	if err != nil {
		return fwmark.Mark{}, err
	}
	if err := netd.FromCode("query", int(resp.Code)); err != nil {
		return fwmark.Mark{}, err
	}
	return fwmark.Decode(resp.Mark), nil
}

// SetNetworkForSocket and ProtectFromVpn match netd.Daemon's socket methods.
func (c *Client) SetNetworkForSocket(netID uint32, fd int) error {
	return netd.FromCode("bind socket", c.BindSocket(fd, netID))
}

func (c *Client) ProtectFromVpn(fd int) error {
	return netd.FromCode("protect", c.Protect(fd))
}

// Control binds each socket a net.Dialer creates to netID.
func (c *Client) Control(netID uint32) func(network, address string, rc syscall.RawConn) error {
	return func(network, address string, rc syscall.RawConn) error {
		var opErr error
		err := rc.Control(func(fd uintptr) {
			opErr = c.SetNetworkForSocket(netID, int(fd))
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
