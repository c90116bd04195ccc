package dhcp

import (
	"fmt"
	"net/netip"
	"time"
)

// Builder stages client output into a Result. The first failing step is
// sticky: later setters return the same error and change nothing, and Build
// returns no Result at all.
type Builder struct {
	res        Result
	obtainedAt time.Time
	hasAddr    bool
	err        error
}

func NewBuilder(family Family, iface string) *Builder {
	b := &Builder{}
	b.res.family = family
	b.res.iface = iface
	return b
}

// Reset clears any staged fields and any recorded failure.
func (b *Builder) Reset() {
	b.res = Result{family: b.res.family, iface: b.res.iface}
	b.hasAddr = false
	b.err = nil
}

func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(step string, err error) error {
	b.err = fmt.Errorf("%w: %s: %v", ErrAssembly, step, err)
	return b.err
}

func (b *Builder) SetIPAddress(addr string, prefixLength uint8) error {
	if b.err != nil {
		return b.err
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return b.fail("address", err)
	}
	ip = ip.Unmap()
	if ip.BitLen() != b.res.family.AddrBits() {
		return b.fail("address", fmt.Errorf("%s is not a %s address", ip, b.res.family))
	}
	if int(prefixLength) > ip.BitLen() {
		return b.fail("prefix length", fmt.Errorf("%d exceeds %d bits", prefixLength, ip.BitLen()))
	}
	b.res.ipAddress = ip
	b.res.prefixLength = prefixLength
	b.hasAddr = true
	return nil
}

// SetGateway treats an empty string as "no gateway".
func (b *Builder) SetGateway(gw string) error {
	if b.err != nil {
		return b.err
	}
	if gw == "" {
		b.res.gateway = netip.Addr{}
		return nil
	}
	if b.res.family != FamilyV4 {
		return b.fail("gateway", fmt.Errorf("gateway not carried by %s leases", b.res.family))
	}
	ip, err := netip.ParseAddr(gw)
	if err != nil {
		return b.fail("gateway", err)
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return b.fail("gateway", fmt.Errorf("%s is not an IPv4 address", ip))
	}
	b.res.gateway = ip
	return nil
}

// AddDNS appends one server. Empty entries are skipped and entries past
// MaxDNSServers are dropped.
func (b *Builder) AddDNS(server string) error {
	if b.err != nil {
		return b.err
	}
	if server == "" || len(b.res.dnsServers) >= MaxDNSServers {
		return nil
	}
	ip, err := netip.ParseAddr(server)
	if err != nil {
		return b.fail(fmt.Sprintf("dns[%d]", len(b.res.dnsServers)), err)
	}
	b.res.dnsServers = append(b.res.dnsServers, ip.Unmap())
	return nil
}

func (b *Builder) SetDomains(domains string) error {
	if b.err != nil {
		return b.err
	}
	b.res.domains = domains
	return nil
}

func (b *Builder) SetServerAddress(server string) error {
	if b.err != nil {
		return b.err
	}
	if server == "" {
		b.res.serverAddress = netip.Addr{}
		return nil
	}
	ip, err := netip.ParseAddr(server)
	if err != nil {
		return b.fail("server address", err)
	}
	b.res.serverAddress = ip.Unmap()
	return nil
}

// SetLease stages the lease duration and vendor info together.
func (b *Builder) SetLease(seconds uint32, vendorInfo string) error {
	if b.err != nil {
		return b.err
	}
	b.res.leaseDuration = seconds
	b.res.vendorInfo = vendorInfo
	return nil
}

func (b *Builder) Build() (*Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.hasAddr {
		return nil, b.fail("address", fmt.Errorf("no address staged"))
	}
	res := b.res
	res.dnsServers = append([]netip.Addr(nil), b.res.dnsServers...)
	res.obtainedAt = b.obtainedAt
	if res.obtainedAt.IsZero() {
		res.obtainedAt = time.Now()
	}
	return &res, nil
}
