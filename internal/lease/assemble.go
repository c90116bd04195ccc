package lease

import (
	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/dhcp4"
	"github.com/veesix-networks/netbridge/pkg/dhcp6"
)

// Each assemble function stages fields in the order the client reports them.
// The builder stops at the first bad field, so only Build needs checking.

func assembleV4(iface string, r *dhcp4.Reply) (*dhcp.Result, error) {
	b := dhcp.NewBuilder(dhcp.FamilyV4, iface)
	b.Reset()
	b.SetIPAddress(r.IPAddress, r.PrefixLength)
	b.SetGateway(r.Gateway)
	if len(r.DNS) > 0 {
		b.AddDNS(r.DNS[0])
	}
	b.SetDomains(r.Domains)
	if len(r.DNS) > 1 {
		for _, d := range r.DNS[1:] {
			b.AddDNS(d)
		}
	}
	b.SetServerAddress(r.Server)
	b.SetLease(r.LeaseSeconds, r.VendorInfo)
	return b.Build()
}

func assembleV6(iface string, r *dhcp6.Reply, defaultPrefix uint8) (*dhcp.Result, error) {
	prefix := r.PrefixLength
	if prefix == 0 {
		prefix = defaultPrefix
	}

	b := dhcp.NewBuilder(dhcp.FamilyV6, iface)
	b.Reset()
	b.SetIPAddress(r.IPAddress, prefix)
	for _, d := range r.DNS {
		b.AddDNS(d)
	}
	b.SetDomains(r.Domains)
	b.SetServerAddress(r.Server)
	b.SetLease(r.LeaseSeconds, "")
	return b.Build()
}

func assemblePD(iface string, r *dhcp6.PDReply, defaultPrefix uint8) (*dhcp.Result, error) {
	prefix := r.PrefixLength
	if prefix == 0 {
		prefix = defaultPrefix
	}

	b := dhcp.NewBuilder(dhcp.FamilyPD, iface)
	b.Reset()
	b.SetIPAddress(r.Prefix, prefix)
	b.SetLease(r.LeaseSeconds, "")
	return b.Build()
}
