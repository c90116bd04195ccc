// Package netd is the contract between netbridge and the daemon that owns
// network bindings.
package netd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"
)

// NetIDUnset means "no network"; binding to it clears a binding.
const NetIDUnset uint32 = 0

type ResetMask uint32

const (
	ResetIPv4Addresses          ResetMask = 0x01
	ResetIPv6Addresses          ResetMask = 0x02
	ResetAllAddresses           ResetMask = ResetIPv4Addresses | ResetIPv6Addresses
	ResetIgnoreInterfaceAddress ResetMask = 0x04
)

func (m ResetMask) IPv4() bool { return m&ResetIPv4Addresses != 0 }
func (m ResetMask) IPv6() bool { return m&ResetIPv6Addresses != 0 }

// IgnoreInterfaceAddress selects every non-loopback socket regardless of the
// interface's addresses.
func (m ResetMask) IgnoreInterfaceAddress() bool { return m&ResetIgnoreInterfaceAddress != 0 }

// ParseResetMask accepts a number or a "+"-joined list of v4, v6, all and
// any, where any sets ResetIgnoreInterfaceAddress.
func ParseResetMask(s string) (ResetMask, error) {
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return ResetMask(n), nil
	}
	var m ResetMask
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		switch strings.TrimSpace(part) {
		case "v4", "ipv4":
			m |= ResetIPv4Addresses
		case "v6", "ipv6":
			m |= ResetIPv6Addresses
		case "all":
			m |= ResetAllAddresses
		case "any", "ignore":
			m |= ResetIgnoreInterfaceAddress
		default:
			return 0, fmt.Errorf("unknown reset mask %q", part)
		}
	}
	return m, nil
}

func (m ResetMask) String() string {
	var parts []string
	switch {
	case m&ResetAllAddresses == ResetAllAddresses:
		parts = append(parts, "all")
	case m.IPv4():
		parts = append(parts, "v4")
	case m.IPv6():
		parts = append(parts, "v6")
	}
	if m.IgnoreInterfaceAddress() {
		parts = append(parts, "any")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

type Daemon interface {
	SetNetworkForProcess(netID uint32) error
	GetNetworkForProcess() uint32
	SetNetworkForResolv(netID uint32) error
	GetNetworkForResolv() uint32
	SetNetworkForSocket(netID uint32, fd int) error
	ProtectFromVpn(fd int) error
	ResetConnections(iface string, mask ResetMask) (int, error)
}

// Errno is a daemon failure that maps onto a raw negative code.
type Errno struct {
	Op  string
	Err syscall.Errno
}

func (e *Errno) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Errno) Unwrap() error { return e.Err }

func NewErrno(op string, errno syscall.Errno) error {
	return &Errno{Op: op, Err: errno}
}

// Code is 0 for nil and -errno otherwise. Errors without an errno map to
// -EIO.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var e *Errno
	if errors.As(err, &e) {
		return -int(e.Err)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int(errno)
	}
	return -int(syscall.EIO)
}

// FromCode is the inverse of Code.
func FromCode(op string, code int) error {
	if code == 0 {
		return nil
	}
	if code < 0 {
		code = -code
	}
	return NewErrno(op, syscall.Errno(code))
}
