package dhcp

import (
	"fmt"
	"strings"
)

// Family selects one of the lease flows and its LastError slot.
type Family string

const (
	FamilyV4 Family = "v4"
	FamilyV6 Family = "v6"
	FamilyPD Family = "v6-pd"
)

var Families = []Family{FamilyV4, FamilyV6, FamilyPD}

func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v4", "ipv4", "dhcp4":
		return FamilyV4, nil
	case "v6", "ipv6", "dhcp6":
		return FamilyV6, nil
	case "v6-pd", "pd", "dhcp6-pd":
		return FamilyPD, nil
	}
	return "", fmt.Errorf("unknown lease family %q", s)
}

func (f Family) String() string {
	return string(f)
}

// AddrBits is the address width for the family.
func (f Family) AddrBits() int {
	if f == FamilyV4 {
		return 32
	}
	return 128
}

type Op string

const (
	OpRequest Op = "request"
	OpRenew   Op = "renew"
	OpStop    Op = "stop"
	OpRelease Op = "release"
)

func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(s)); op {
	case OpRequest, OpRenew, OpStop, OpRelease:
		return op, nil
	}
	return "", fmt.Errorf("unknown lease operation %q", s)
}
