package kernel

import (
	"fmt"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/pkg/fwmark"
)

const (
	tableIDMin = uint32(100)
	tableIDMax = uint32(4095)

	priorityExplicit = 11000
	priorityVPN      = 12000
	priorityImplicit = 13000
)

func (d *Daemon) allocateTableID() (uint32, error) {
	used := make(map[uint32]bool)
	for _, n := range d.networks {
		used[n.Table] = true
	}

	for id := tableIDMin; id <= tableIDMax; id++ {
		if !used[id] {
			return id, nil
		}
	}

	return 0, fmt.Errorf("no available table IDs in range %d-%d", tableIDMin, tableIDMax)
}

// networkRules builds the rules for one network in both families:
//
//	11000: fwmark netId|explicit/0x1ffff lookup table
//	12000: fwmark 0/0x20000 lookup table (VPN networks only)
//	13000: fwmark netId/0xffff lookup table
func networkRules(n *Network) []*netlink.Rule {
	var rules []*netlink.Rule
	for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
		explicit := fwmark.Mark{NetID: n.ID, ExplicitlySelected: true}.Value()
		rules = append(rules, markRule(family, priorityExplicit, n.Table, explicit, fwmark.ExplicitMask))

		if n.VPN {
			rules = append(rules, markRule(family, priorityVPN, n.Table, 0, fwmark.ProtectedBit))
		}

		rules = append(rules, markRule(family, priorityImplicit, n.Table, n.ID, fwmark.NetIDMask))
	}
	return rules
}

func markRule(family, priority int, table, mark, mask uint32) *netlink.Rule {
	r := netlink.NewRule()
	r.Family = family
	r.Priority = priority
	r.Table = int(table)
	r.Mark = mark
	m := mask
	r.Mask = &m
	return r
}

func (d *Daemon) installNetworkRules(n *Network) error {
	for _, r := range networkRules(n) {
		if err := d.nlRuleAdd(r); err != nil {
			return fmt.Errorf("netlink rule add prio %d table %d: %w", r.Priority, r.Table, err)
		}
		d.rules = append(d.rules, r)
	}
	return nil
}

func (d *Daemon) removeRules() {
	for _, r := range d.rules {
		if err := d.nlRuleDel(r); err != nil {
			d.logger.Warn("Failed to delete rule", "priority", r.Priority, "table", r.Table, "error", err)
		}
	}
	d.rules = nil
}

func (d *Daemon) nlRuleAdd(r *netlink.Rule) error {
	if d.netlinkHandle != nil {
		return d.netlinkHandle.RuleAdd(r)
	}
	return netlink.RuleAdd(r)
}

func (d *Daemon) nlRuleDel(r *netlink.Rule) error {
	if d.netlinkHandle != nil {
		return d.netlinkHandle.RuleDel(r)
	}
	return netlink.RuleDel(r)
}

func (d *Daemon) nlLinkByName(name string) (netlink.Link, error) {
	if d.netlinkHandle != nil {
		return d.netlinkHandle.LinkByName(name)
	}
	return netlink.LinkByName(name)
}

func (d *Daemon) nlAddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	if d.netlinkHandle != nil {
		return d.netlinkHandle.AddrList(link, family)
	}
	return netlink.AddrList(link, family)
}

// LookupInterface resolves a link inside the daemon's namespace. It backs
// interface validation in the lease adapter.
func (d *Daemon) LookupInterface(name string) error {
	_, err := d.nlLinkByName(name)
	return err
}
