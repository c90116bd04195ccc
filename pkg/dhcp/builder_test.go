package dhcp

import (
	"encoding/json"
	"errors"
	"net/netip"
	"syscall"
	"testing"
)

func TestBuilderV4(t *testing.T) {
	b := NewBuilder(FamilyV4, "wlan0")
	b.Reset()
	steps := []error{
		b.SetIPAddress("192.168.1.42", 24),
		b.SetGateway("192.168.1.1"),
		b.AddDNS("8.8.8.8"),
		b.SetDomains("example.org"),
		b.AddDNS("8.8.4.4"),
		b.AddDNS(""),
		b.SetServerAddress("192.168.1.1"),
		b.SetLease(43200, ""),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	res, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.IPAddress() != netip.MustParseAddr("192.168.1.42") || res.PrefixLength() != 24 {
		t.Fatalf("unexpected address %s/%d", res.IPAddress(), res.PrefixLength())
	}
	if gw, ok := res.Gateway(); !ok || gw.String() != "192.168.1.1" {
		t.Fatalf("unexpected gateway %v (%v)", gw, ok)
	}
	dns := res.DNSServers()
	if len(dns) != 2 || dns[0].String() != "8.8.8.8" || dns[1].String() != "8.8.4.4" {
		t.Fatalf("unexpected dns %v", dns)
	}
	if res.LeaseDurationSeconds() != 43200 {
		t.Fatalf("unexpected lease %d", res.LeaseDurationSeconds())
	}
	if res.Prefix().String() != "192.168.1.0/24" {
		t.Fatalf("unexpected prefix %s", res.Prefix())
	}
}

func TestBuilderDNSLimitAndOrder(t *testing.T) {
	b := NewBuilder(FamilyV4, "eth0")
	b.SetIPAddress("10.0.0.2", 8)
	servers := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"}
	for _, s := range servers {
		if err := b.AddDNS(s); err != nil {
			t.Fatalf("AddDNS(%s): %v", s, err)
		}
	}
	res, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dns := res.DNSServers()
	if len(dns) != MaxDNSServers {
		t.Fatalf("expected %d servers, got %d", MaxDNSServers, len(dns))
	}
	for i, d := range dns {
		if d.String() != servers[i] {
			t.Fatalf("dns[%d] = %s, want %s", i, d, servers[i])
		}
	}
}

func TestBuilderFailFast(t *testing.T) {
	b := NewBuilder(FamilyV4, "eth0")
	if err := b.SetIPAddress("10.0.0.2", 24); err != nil {
		t.Fatalf("SetIPAddress: %v", err)
	}
	gwErr := b.SetGateway("not-an-address")
	if !errors.Is(gwErr, ErrAssembly) {
		t.Fatalf("expected ErrAssembly, got %v", gwErr)
	}

	if err := b.AddDNS("8.8.8.8"); err != gwErr {
		t.Fatalf("later step should return the sticky error, got %v", err)
	}
	if err := b.SetLease(60, "x"); err != gwErr {
		t.Fatalf("later step should return the sticky error, got %v", err)
	}

	res, err := b.Build()
	if res != nil {
		t.Fatal("Build must not return a partial result")
	}
	if !errors.Is(err, ErrAssembly) {
		t.Fatalf("expected ErrAssembly from Build, got %v", err)
	}
}

func TestBuilderRejects(t *testing.T) {
	tests := []struct {
		name string
		fam  Family
		run  func(b *Builder) error
	}{
		{"v6 address on v4", FamilyV4, func(b *Builder) error { return b.SetIPAddress("2001:db8::1", 64) }},
		{"v4 address on v6", FamilyV6, func(b *Builder) error { return b.SetIPAddress("10.0.0.1", 24) }},
		{"prefix too long", FamilyV4, func(b *Builder) error { return b.SetIPAddress("10.0.0.1", 33) }},
		{"empty address", FamilyPD, func(b *Builder) error { return b.SetIPAddress("", 56) }},
		{"gateway on v6", FamilyV6, func(b *Builder) error { return b.SetGateway("fe80::1") }},
		{"bad dns", FamilyV6, func(b *Builder) error { return b.AddDNS("dns.example") }},
		{"bad server", FamilyV4, func(b *Builder) error { return b.SetServerAddress("999.1.1.1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.fam, "eth0")
			if err := tt.run(b); !errors.Is(err, ErrAssembly) {
				t.Fatalf("expected ErrAssembly, got %v", err)
			}
		})
	}
}

func TestBuilderRequiresAddress(t *testing.T) {
	b := NewBuilder(FamilyPD, "eth0")
	b.SetLease(3600, "")
	if _, err := b.Build(); !errors.Is(err, ErrAssembly) {
		t.Fatalf("expected ErrAssembly without address, got %v", err)
	}
}

func TestBuilderResetClearsFailure(t *testing.T) {
	b := NewBuilder(FamilyV6, "eth0")
	b.SetIPAddress("bogus", 64)
	b.Reset()
	if err := b.SetIPAddress("2001:db8::10", 64); err != nil {
		t.Fatalf("SetIPAddress after Reset: %v", err)
	}
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build after Reset: %v", err)
	}
}

func TestResultIsImmutable(t *testing.T) {
	b := NewBuilder(FamilyV4, "eth0")
	b.SetIPAddress("10.1.1.1", 24)
	b.AddDNS("1.1.1.1")
	res, _ := b.Build()

	dns := res.DNSServers()
	dns[0] = netip.MustParseAddr("9.9.9.9")
	if res.DNSServers()[0].String() != "1.1.1.1" {
		t.Fatal("DNSServers must return a copy")
	}

	b.AddDNS("1.0.0.1")
	if len(res.DNSServers()) != 1 {
		t.Fatal("builder changes must not leak into a built result")
	}
}

func TestResultRecordRoundTrip(t *testing.T) {
	b := NewBuilder(FamilyV4, "wlan0")
	b.SetIPAddress("192.168.1.42", 24)
	b.SetGateway("192.168.1.1")
	b.AddDNS("8.8.8.8")
	b.SetServerAddress("192.168.1.1")
	b.SetLease(43200, "0a0b")
	res, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	again, err := FromRecord(res.Record())
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if again.Record().IPAddress != "192.168.1.42" || !again.ObtainedAt().Equal(res.ObtainedAt()) {
		t.Fatalf("unexpected record %+v", again.Record())
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if m["ip_address"] != "192.168.1.42" || m["gateway"] != "192.168.1.1" || m["vendor_info"] != "0a0b" {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestLastErrors(t *testing.T) {
	var l LastErrors
	if got := l.Get(FamilyV4); got != "" {
		t.Fatalf("expected empty slot, got %q", got)
	}
	l.Set(FamilyV6, "timeout waiting for advertise")
	if l.Get(FamilyV6) != l.Get(FamilyV6) {
		t.Fatal("Get must be idempotent")
	}
	if l.Get(FamilyV4) != "" || l.Get(FamilyPD) != "" {
		t.Fatal("slots must be independent")
	}
	if len(l.All()) != len(Families) {
		t.Fatalf("All should list every family")
	}
}

func TestNewClientError(t *testing.T) {
	ce := NewClientError(FamilyV4, OpRequest, "eth0", Failure(3, "no offer"))
	if ce.Code != 3 || ce.Message != "no offer" {
		t.Fatalf("unexpected %+v", ce)
	}

	ce = NewClientError(FamilyV6, OpRenew, "eth0", syscall.ETIMEDOUT)
	if ce.Code != int(syscall.ETIMEDOUT) || ce.Message == "" {
		t.Fatalf("unexpected %+v", ce)
	}
	if !errors.Is(ce, syscall.ETIMEDOUT) {
		t.Fatal("ClientError should unwrap to the cause")
	}

	ce = NewClientError(FamilyPD, OpStop, "eth0", Failure(7, ""))
	if ce.Message == "" {
		t.Fatal("message must never be empty")
	}
}

func TestParseFamily(t *testing.T) {
	for in, want := range map[string]Family{"v4": FamilyV4, "IPv6": FamilyV6, "pd": FamilyPD, "v6-pd": FamilyPD} {
		got, err := ParseFamily(in)
		if err != nil || got != want {
			t.Fatalf("ParseFamily(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFamily("v5"); err == nil {
		t.Fatal("expected error for v5")
	}
}
