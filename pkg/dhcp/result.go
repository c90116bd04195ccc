package dhcp

import (
	"encoding/json"
	"net/netip"
	"slices"
	"time"
)

// MaxDNSServers caps the DNS list; further entries reported by a client are
// dropped.
const MaxDNSServers = 4

// Result is a complete lease configuration. It is only produced by
// Builder.Build and never changes afterwards.
type Result struct {
	family     Family
	iface      string
	obtainedAt time.Time

	ipAddress     netip.Addr
	prefixLength  uint8
	gateway       netip.Addr
	dnsServers    []netip.Addr
	domains       string
	serverAddress netip.Addr
	leaseDuration uint32
	vendorInfo    string
}

func (r *Result) Family() Family        { return r.family }
func (r *Result) Interface() string     { return r.iface }
func (r *Result) ObtainedAt() time.Time { return r.obtainedAt }
func (r *Result) IPAddress() netip.Addr { return r.ipAddress }
func (r *Result) PrefixLength() uint8   { return r.prefixLength }
func (r *Result) Domains() string       { return r.domains }
func (r *Result) VendorInfo() string    { return r.vendorInfo }

// Prefix is the address masked to its prefix length.
func (r *Result) Prefix() netip.Prefix {
	p, _ := r.ipAddress.Prefix(int(r.prefixLength))
	return p
}

// Gateway reports false when the lease carries no gateway.
func (r *Result) Gateway() (netip.Addr, bool) {
	return r.gateway, r.gateway.IsValid()
}

func (r *Result) ServerAddress() (netip.Addr, bool) {
	return r.serverAddress, r.serverAddress.IsValid()
}

// DNSServers returns a copy in the order the client reported them.
func (r *Result) DNSServers() []netip.Addr {
	return slices.Clone(r.dnsServers)
}

func (r *Result) LeaseDuration() time.Duration {
	return time.Duration(r.leaseDuration) * time.Second
}

func (r *Result) LeaseDurationSeconds() uint32 {
	return r.leaseDuration
}

// ResultRecord is the flat, serialisable form of a Result.
type ResultRecord struct {
	Family               Family    `json:"family" msgpack:"family"`
	Interface            string    `json:"interface" msgpack:"interface"`
	IPAddress            string    `json:"ip_address" msgpack:"ip_address"`
	PrefixLength         uint8     `json:"prefix_length" msgpack:"prefix_length"`
	Gateway              string    `json:"gateway,omitempty" msgpack:"gateway,omitempty"`
	DNSServers           []string  `json:"dns_servers" msgpack:"dns_servers"`
	Domains              string    `json:"domains,omitempty" msgpack:"domains,omitempty"`
	ServerAddress        string    `json:"server_address,omitempty" msgpack:"server_address,omitempty"`
	LeaseDurationSeconds uint32    `json:"lease_duration_seconds" msgpack:"lease_duration_seconds"`
	VendorInfo           string    `json:"vendor_info,omitempty" msgpack:"vendor_info,omitempty"`
	ObtainedAt           time.Time `json:"obtained_at" msgpack:"obtained_at"`
}

func (r *Result) Record() ResultRecord {
	rec := ResultRecord{
		Family:               r.family,
		Interface:            r.iface,
		IPAddress:            r.ipAddress.String(),
		PrefixLength:         r.prefixLength,
		DNSServers:           make([]string, 0, len(r.dnsServers)),
		Domains:              r.domains,
		LeaseDurationSeconds: r.leaseDuration,
		VendorInfo:           r.vendorInfo,
		ObtainedAt:           r.obtainedAt,
	}
	if r.gateway.IsValid() {
		rec.Gateway = r.gateway.String()
	}
	if r.serverAddress.IsValid() {
		rec.ServerAddress = r.serverAddress.String()
	}
	for _, d := range r.dnsServers {
		rec.DNSServers = append(rec.DNSServers, d.String())
	}
	return rec
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record())
}

// FromRecord rebuilds a Result through the Builder so a stored record gets
// the same validation as a fresh lease.
func FromRecord(rec ResultRecord) (*Result, error) {
	b := NewBuilder(rec.Family, rec.Interface)
	b.obtainedAt = rec.ObtainedAt
	b.SetIPAddress(rec.IPAddress, rec.PrefixLength)
	b.SetGateway(rec.Gateway)
	for _, d := range rec.DNSServers {
		b.AddDNS(d)
	}
	b.SetDomains(rec.Domains)
	b.SetServerAddress(rec.ServerAddress)
	b.SetLease(rec.LeaseDurationSeconds, rec.VendorInfo)
	return b.Build()
}
