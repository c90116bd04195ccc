package dhcpcd

import (
	"fmt"
	"strings"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"

	"github.com/veesix-networks/netbridge/pkg/dhcp6"
)

// addressReply reads the IA_NA lease out of dhcpcd's stored REPLY.
func addressReply(msg *dhcpv6.Message) (*dhcp6.Reply, error) {
	ia := msg.Options.OneIANA()
	if ia == nil {
		return nil, fmt.Errorf("dhcpcd lease carries no IA_NA")
	}
	addrs := ia.Options.Addresses()
	if len(addrs) == 0 {
		return nil, fmt.Errorf("dhcpcd IA_NA carries no address")
	}

	r := &dhcp6.Reply{
		IPAddress:    addrs[0].IPv6Addr.String(),
		LeaseSeconds: uint32(addrs[0].ValidLifetime / time.Second),
	}
	for _, d := range msg.Options.DNS() {
		r.DNS = append(r.DNS, d.String())
	}
	if labels := msg.Options.DomainSearchList(); labels != nil {
		r.Domains = strings.Join(labels.Labels, " ")
	}
	return r, nil
}

func prefixReply(msg *dhcpv6.Message) (*dhcp6.PDReply, error) {
	ia := msg.Options.OneIAPD()
	if ia == nil {
		return nil, fmt.Errorf("dhcpcd lease carries no IA_PD")
	}
	for _, p := range ia.Options.Prefixes() {
		if p.Prefix == nil {
			continue
		}
		ones, _ := p.Prefix.Mask.Size()
		return &dhcp6.PDReply{
			Prefix:       p.Prefix.IP.String(),
			PrefixLength: uint8(ones),
			LeaseSeconds: uint32(p.ValidLifetime / time.Second),
		}, nil
	}
	return nil, fmt.Errorf("dhcpcd IA_PD carries no prefix")
}
