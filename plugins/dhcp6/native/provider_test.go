package native

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/dhcpv6/nclient6"
	"github.com/insomniacslk/dhcp/iana"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
)

var (
	clientDUID = &dhcpv6.DUIDLL{HWType: iana.HWTypeEthernet, LinkLayerAddr: net.HardwareAddr{2, 0, 0, 0, 0, 1}}
	serverDUID = &dhcpv6.DUIDLL{HWType: iana.HWTypeEthernet, LinkLayerAddr: net.HardwareAddr{2, 0, 0, 0, 0, 0xfe}}
)

func message(t *testing.T, msgType dhcpv6.MessageType, opts ...dhcpv6.Option) *dhcpv6.Message {
	t.Helper()
	msg, err := dhcpv6.NewMessage()
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	msg.MessageType = msgType
	msg.AddOption(dhcpv6.OptClientID(clientDUID))
	msg.AddOption(dhcpv6.OptServerID(serverDUID))
	for _, o := range opts {
		msg.AddOption(o)
	}
	return msg
}

func iaNA(addr string) *dhcpv6.OptIANA {
	return &dhcpv6.OptIANA{
		IaId: [4]byte{0, 0, 0, 1},
		Options: dhcpv6.IdentityOptions{Options: dhcpv6.Options{
			&dhcpv6.OptIAAddress{IPv6Addr: net.ParseIP(addr), PreferredLifetime: 1800 * time.Second, ValidLifetime: 3600 * time.Second},
		}},
	}
}

func iaPD(prefix string) *dhcpv6.OptIAPD {
	_, ipnet, _ := net.ParseCIDR(prefix)
	return &dhcpv6.OptIAPD{
		IaId: pdIAID,
		Options: dhcpv6.PDOptions{Options: dhcpv6.Options{
			&dhcpv6.OptIAPrefix{Prefix: ipnet, PreferredLifetime: 3600 * time.Second, ValidLifetime: 7200 * time.Second},
		}},
	}
}

type fakeExchanger struct {
	advertise *dhcpv6.Message
	reply     *dhcpv6.Message
	sent      []*dhcpv6.Message
}

func (f *fakeExchanger) Solicit(ctx context.Context, mods ...dhcpv6.Modifier) (*dhcpv6.Message, error) {
	return f.advertise, nil
}

func (f *fakeExchanger) SendAndRead(ctx context.Context, dest *net.UDPAddr, msg *dhcpv6.Message, expect nclient6.Matcher) (*dhcpv6.Message, error) {
	f.sent = append(f.sent, msg)
	return f.reply, nil
}

func (f *fakeExchanger) Close() error { return nil }

func TestRequestRenewRelease(t *testing.T) {
	ex := &fakeExchanger{
		advertise: message(t, dhcpv6.MessageTypeAdvertise, iaNA("2001:db8::10")),
		reply: message(t, dhcpv6.MessageTypeReply, iaNA("2001:db8::10"),
			dhcpv6.OptDNS(net.ParseIP("2001:4860:4860::8888"))),
	}
	c, _ := New(config.Default())
	p := c.(*Provider)
	p.dial = func(string) (exchanger, error) { return ex, nil }
	ctx := context.Background()

	r, err := p.Request(ctx, "eth0")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if r.IPAddress != "2001:db8::10" || r.LeaseSeconds != 3600 || r.PrefixLength != 0 {
		t.Fatalf("unexpected reply %+v", r)
	}
	if len(r.DNS) != 1 || r.DNS[0] != "2001:4860:4860::8888" {
		t.Fatalf("unexpected dns %v", r.DNS)
	}
	if ex.sent[0].MessageType != dhcpv6.MessageTypeRequest || ex.sent[0].Options.OneIANA() == nil {
		t.Fatalf("expected REQUEST with IA_NA, got %s", ex.sent[0].MessageType)
	}

	if _, err := p.Renew(ctx, "eth0", r.SessionID); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	renew := ex.sent[1]
	if renew.MessageType != dhcpv6.MessageTypeRenew {
		t.Fatalf("expected RENEW, got %s", renew.MessageType)
	}
	if sid := renew.Options.ServerID(); sid == nil || !bytes.Equal(sid.ToBytes(), serverDUID.ToBytes()) {
		t.Fatalf("RENEW must carry the server ID, got %v", sid)
	}

	if err := p.Release(ctx, "eth0", r.SessionID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ex.sent[2].MessageType != dhcpv6.MessageTypeRelease {
		t.Fatalf("expected RELEASE, got %s", ex.sent[2].MessageType)
	}
}

func TestRenewRejectsMalformedSession(t *testing.T) {
	c, _ := New(config.Default())
	if _, err := c.Renew(context.Background(), "eth0", "zz"); err == nil {
		t.Fatal("expected error for malformed session")
	}
}

func TestStatusCodeBecomesFailure(t *testing.T) {
	ex := &fakeExchanger{
		advertise: message(t, dhcpv6.MessageTypeAdvertise,
			&dhcpv6.OptStatusCode{StatusCode: iana.StatusNoAddrsAvail, StatusMessage: "pool exhausted"}),
	}
	c, _ := New(config.Default())
	p := c.(*Provider)
	p.dial = func(string) (exchanger, error) { return ex, nil }

	_, err := p.Request(context.Background(), "eth0")
	var ce *dhcp.ClientError
	if !errors.As(err, &ce) || ce.Code != int(iana.StatusNoAddrsAvail) || ce.Message != "pool exhausted" {
		t.Fatalf("expected status failure, got %v", err)
	}
}

func TestPDRequest(t *testing.T) {
	ex := &fakeExchanger{
		advertise: message(t, dhcpv6.MessageTypeAdvertise, iaPD("2001:db8:100::/56")),
		reply:     message(t, dhcpv6.MessageTypeReply, iaPD("2001:db8:100::/56")),
	}
	c, _ := NewPD(config.Default())
	p := c.(*PDProvider)
	p.dial = func(string) (exchanger, error) { return ex, nil }

	r, err := p.Request(context.Background(), "wan0")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if r.Prefix != "2001:db8:100::" || r.PrefixLength != 56 || r.LeaseSeconds != 7200 {
		t.Fatalf("unexpected reply %+v", r)
	}
	if ex.sent[0].Options.OneIAPD() == nil {
		t.Fatal("REQUEST must carry the IA_PD")
	}
}

func TestWithoutIANA(t *testing.T) {
	msg := message(t, dhcpv6.MessageTypeSolicit, iaNA("2001:db8::1"))
	withoutIANA()(msg)
	if msg.Options.OneIANA() != nil {
		t.Fatal("IA_NA should be removed")
	}
}
