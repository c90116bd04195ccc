package dhcpcd

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
)

func serializeLease(t *testing.T) []byte {
	t.Helper()

	lease := make([]byte, 4)
	binary.BigEndian.PutUint32(lease, 43200)

	msg := &layers.DHCPv4{
		Operation:    layers.DHCPOpReply,
		HardwareType: layers.LinkTypeEthernet,
		ClientHWAddr: net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		YourClientIP: net.IPv4(192, 168, 1, 42).To4(),
		Options: layers.DHCPOptions{
			layers.NewDHCPOption(layers.DHCPOptMessageType, []byte{byte(layers.DHCPMsgTypeAck)}),
			layers.NewDHCPOption(layers.DHCPOptSubnetMask, []byte{255, 255, 255, 0}),
			layers.NewDHCPOption(layers.DHCPOptRouter, []byte{192, 168, 1, 1}),
			layers.NewDHCPOption(layers.DHCPOptDNS, []byte{8, 8, 8, 8, 8, 8, 4, 4}),
			layers.NewDHCPOption(layers.DHCPOptDomainName, []byte("lan")),
			layers.NewDHCPOption(layers.DHCPOptServerID, []byte{192, 168, 1, 1}),
			layers.NewDHCPOption(layers.DHCPOptLeaseTime, lease),
		},
	}

	buf := gopacket.NewSerializeBuffer()
	if err := msg.SerializeTo(buf, gopacket.SerializeOptions{FixLengths: true}); err != nil {
		t.Fatalf("SerializeTo: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeLease(t *testing.T) {
	r, err := DecodeLease(serializeLease(t))
	if err != nil {
		t.Fatalf("DecodeLease: %v", err)
	}
	if r.IPAddress != "192.168.1.42" || r.PrefixLength != 24 || r.Gateway != "192.168.1.1" {
		t.Fatalf("unexpected reply %+v", r)
	}
	if len(r.DNS) != 2 || r.DNS[0] != "8.8.8.8" || r.DNS[1] != "8.8.4.4" {
		t.Fatalf("unexpected dns %v", r.DNS)
	}
	if r.Domains != "lan" || r.Server != "192.168.1.1" || r.LeaseSeconds != 43200 {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestDecodeLeaseRejectsGarbage(t *testing.T) {
	if _, err := DecodeLease([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for a truncated lease")
	}
}

func newTestProvider(t *testing.T) (*Provider, *[][]string) {
	t.Helper()
	cfg := config.Default()
	cfg.Lease.DHCPCD.LeaseDir = t.TempDir()

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := c.(*Provider)

	var calls [][]string
	p.run = func(ctx context.Context, args ...string) error {
		calls = append(calls, args)
		return nil
	}
	return p, &calls
}

func TestRequestReadsLeaseFile(t *testing.T) {
	p, calls := newTestProvider(t)
	if err := os.WriteFile(filepath.Join(p.cfg.LeaseDir, "wlan0.lease"), serializeLease(t), 0644); err != nil {
		t.Fatalf("write lease: %v", err)
	}

	r, err := p.Request(context.Background(), "wlan0")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if r.IPAddress != "192.168.1.42" {
		t.Fatalf("unexpected address %s", r.IPAddress)
	}

	got := (*calls)[0]
	if got[0] != "-4" || got[len(got)-1] != "wlan0" {
		t.Fatalf("unexpected dhcpcd args %v", got)
	}
}

func TestReleaseAndStopArgs(t *testing.T) {
	p, calls := newTestProvider(t)
	ctx := context.Background()

	p.Stop(ctx, "eth0")
	p.Release(ctx, "eth0")

	if (*calls)[0][1] != "-x" || (*calls)[1][1] != "-k" {
		t.Fatalf("unexpected calls %v", *calls)
	}
}

func TestExecFailureCarriesStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Lease.DHCPCD.Binary = "false"
	c, _ := New(cfg)

	err := c.Stop(context.Background(), "eth0")
	var ce *dhcp.ClientError
	if !errors.As(err, &ce) || ce.Code != 1 || ce.Message == "" {
		t.Fatalf("expected ClientError with exit status, got %v", err)
	}
}
