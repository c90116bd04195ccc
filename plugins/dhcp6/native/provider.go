package native

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/insomniacslk/dhcp/dhcpv6"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/dhcp6"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

func init() {
	dhcp6.Register(lease.BackendNative, New)
	dhcp6.RegisterPD(lease.BackendNative, NewPD)
}

func newExchange(cfg *config.Config, name string) *exchange {
	e := &exchange{
		timeout: cfg.Lease.Timeout,
		retries: cfg.Lease.Retries,
		logger:  logger.Get(name),
	}
	e.dial = e.newClient
	return e
}

func info() provider.Info {
	return provider.Info{
		Name:    lease.BackendNative,
		Version: "1.0.0",
		Author:  "netbridge",
	}
}

// Provider acquires a single address through IA_NA.
type Provider struct {
	*exchange
}

func New(cfg *config.Config) (dhcp6.Client, error) {
	return &Provider{exchange: newExchange(cfg, logger.LeaseDHCP6)}, nil
}

func (p *Provider) Info() provider.Info { return info() }

func (p *Provider) Request(ctx context.Context, iface string) (*dhcp6.Reply, error) {
	reply, err := p.acquire(ctx, iface)
	if err != nil {
		return nil, err
	}
	return addressReply(reply)
}

func (p *Provider) Renew(ctx context.Context, iface, sessionID string) (*dhcp6.Reply, error) {
	reply, err := p.send(ctx, iface, dhcpv6.MessageTypeRenew, sessionID)
	if err != nil {
		return nil, err
	}
	return addressReply(reply)
}

// Stop has nothing to tear down; exchanges hold no socket between calls.
func (p *Provider) Stop(ctx context.Context, iface string) error {
	return nil
}

func (p *Provider) Release(ctx context.Context, iface, sessionID string) error {
	_, err := p.send(ctx, iface, dhcpv6.MessageTypeRelease, sessionID)
	return err
}

func addressReply(msg *dhcpv6.Message) (*dhcp6.Reply, error) {
	ia := msg.Options.OneIANA()
	if ia == nil {
		return nil, fmt.Errorf("DHCPv6 reply carries no IA_NA")
	}
	addrs := ia.Options.Addresses()
	if len(addrs) == 0 {
		return nil, fmt.Errorf("DHCPv6 IA_NA carries no address")
	}

	r := &dhcp6.Reply{
		IPAddress:    addrs[0].IPv6Addr.String(),
		LeaseSeconds: seconds(addrs[0].ValidLifetime),
		SessionID:    encodeSession(msg),
	}
	for _, d := range msg.Options.DNS() {
		r.DNS = append(r.DNS, d.String())
	}
	if labels := msg.Options.DomainSearchList(); labels != nil {
		r.Domains = strings.Join(labels.Labels, " ")
	}
	return r, nil
}

// PDProvider requests a delegated prefix through IA_PD.
type PDProvider struct {
	*exchange
	hint uint8
}

func NewPD(cfg *config.Config) (dhcp6.PDClient, error) {
	return &PDProvider{
		exchange: newExchange(cfg, logger.LeasePD),
		hint:     cfg.Lease.PD.PrefixLength,
	}, nil
}

func (p *PDProvider) Info() provider.Info { return info() }

func (p *PDProvider) solicitMods() []dhcpv6.Modifier {
	if p.hint == 0 {
		return []dhcpv6.Modifier{withoutIANA(), dhcpv6.WithIAPD(pdIAID)}
	}
	hint := &dhcpv6.OptIAPrefix{
		Prefix: &net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(int(p.hint), 128)},
	}
	return []dhcpv6.Modifier{withoutIANA(), dhcpv6.WithIAPD(pdIAID, hint)}
}

func (p *PDProvider) Request(ctx context.Context, iface string) (*dhcp6.PDReply, error) {
	reply, err := p.acquire(ctx, iface, p.solicitMods()...)
	if err != nil {
		return nil, err
	}
	return prefixReply(reply)
}

func (p *PDProvider) Renew(ctx context.Context, iface, sessionID string) (*dhcp6.PDReply, error) {
	reply, err := p.send(ctx, iface, dhcpv6.MessageTypeRenew, sessionID)
	if err != nil {
		return nil, err
	}
	return prefixReply(reply)
}

func (p *PDProvider) Stop(ctx context.Context, iface string) error {
	return nil
}

func (p *PDProvider) Release(ctx context.Context, iface, sessionID string) error {
	_, err := p.send(ctx, iface, dhcpv6.MessageTypeRelease, sessionID)
	return err
}

func prefixReply(msg *dhcpv6.Message) (*dhcp6.PDReply, error) {
	ia := msg.Options.OneIAPD()
	if ia == nil {
		return nil, fmt.Errorf("DHCPv6 reply carries no IA_PD")
	}
	for _, p := range ia.Options.Prefixes() {
		if p.Prefix == nil {
			continue
		}
		ones, _ := p.Prefix.Mask.Size()
		return &dhcp6.PDReply{
			Prefix:       p.Prefix.IP.String(),
			PrefixLength: uint8(ones),
			LeaseSeconds: seconds(p.ValidLifetime),
			SessionID:    encodeSession(msg),
		}, nil
	}
	return nil, fmt.Errorf("DHCPv6 IA_PD carries no prefix")
}
