// Package fwmark packs per-socket routing state into the 32-bit SO_MARK value.
//
//	bits  0..15  network ID
//	bit   16     network was explicitly selected
//	bit   17     socket is protected from VPN redirection
//	bits 18..19  permission
package fwmark

import "fmt"

const (
	NetIDMask    uint32 = 0xffff
	ExplicitBit  uint32 = 1 << 16
	ProtectedBit uint32 = 1 << 17

	permissionShift        = 18
	PermissionMask  uint32 = 0x3 << permissionShift

	// ExplicitMask matches netId plus the explicit bit in a rule.
	ExplicitMask = NetIDMask | ExplicitBit
)

type Permission uint8

const (
	PermissionNone Permission = iota
	PermissionNetwork
	PermissionSystem
)

type Mark struct {
	NetID              uint32
	ExplicitlySelected bool
	ProtectedFromVPN   bool
	Permission         Permission
}

func (m Mark) Value() uint32 {
	v := m.NetID & NetIDMask
	if m.ExplicitlySelected {
		v |= ExplicitBit
	}
	if m.ProtectedFromVPN {
		v |= ProtectedBit
	}
	v |= (uint32(m.Permission) << permissionShift) & PermissionMask
	return v
}

func Decode(v uint32) Mark {
	return Mark{
		NetID:              v & NetIDMask,
		ExplicitlySelected: v&ExplicitBit != 0,
		ProtectedFromVPN:   v&ProtectedBit != 0,
		Permission:         Permission((v & PermissionMask) >> permissionShift),
	}
}

func (m Mark) String() string {
	return fmt.Sprintf("0x%x/netid=%d", m.Value(), m.NetID)
}
