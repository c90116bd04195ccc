// Package native runs DHCPv4 exchanges in-process with nclient4.
package native

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/dhcp4"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

func init() {
	dhcp4.Register(lease.BackendNative, New)
}

type exchanger interface {
	Request(ctx context.Context, modifiers ...dhcpv4.Modifier) (*nclient4.Lease, error)
	Renew(ctx context.Context, lease *nclient4.Lease, modifiers ...dhcpv4.Modifier) (*nclient4.Lease, error)
	Release(lease *nclient4.Lease, modifiers ...dhcpv4.Modifier) error
	Close() error
}

type Provider struct {
	timeout time.Duration
	retries int
	logger  *slog.Logger

	// dial opens one client per exchange; replaced in tests.
	dial func(iface string) (exchanger, error)

	mu     sync.Mutex
	leases map[string]*nclient4.Lease
}

func New(cfg *config.Config) (dhcp4.Client, error) {
	p := &Provider{
		timeout: cfg.Lease.Timeout,
		retries: cfg.Lease.Retries,
		logger:  logger.Get(logger.LeaseDHCP4),
		leases:  make(map[string]*nclient4.Lease),
	}
	p.dial = p.newClient
	return p, nil
}

func (p *Provider) Info() provider.Info {
	return provider.Info{
		Name:    lease.BackendNative,
		Version: "1.0.0",
		Author:  "netbridge",
	}
}

func (p *Provider) newClient(iface string) (exchanger, error) {
	var opts []nclient4.ClientOpt
	if p.timeout > 0 {
		opts = append(opts, nclient4.WithTimeout(p.timeout))
	}
	if p.retries > 0 {
		opts = append(opts, nclient4.WithRetry(p.retries))
	}
	c, err := nclient4.New(iface, opts...)
	if err != nil {
		return nil, fmt.Errorf("create DHCPv4 client on %s: %w", iface, err)
	}
	return c, nil
}

func (p *Provider) held(iface string) (*nclient4.Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.leases[iface]
	if !ok {
		return nil, dhcp.Failure(int(syscall.ENOENT), "no DHCPv4 lease held on %s", iface)
	}
	return l, nil
}

func (p *Provider) hold(iface string, l *nclient4.Lease) {
	p.mu.Lock()
	p.leases[iface] = l
	p.mu.Unlock()
}

func (p *Provider) forget(iface string) {
	p.mu.Lock()
	delete(p.leases, iface)
	p.mu.Unlock()
}

func (p *Provider) Request(ctx context.Context, iface string) (*dhcp4.Reply, error) {
	c, err := p.dial(iface)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	l, err := c.Request(ctx)
	if err != nil {
		return nil, fmt.Errorf("DHCPv4 request on %s: %w", iface, err)
	}

	p.hold(iface, l)
	p.logger.Debug("Received ACK", "interface", iface, "address", l.ACK.YourIPAddr, "server", l.ACK.ServerIdentifier())
	return replyFromACK(l.ACK), nil
}

func (p *Provider) Renew(ctx context.Context, iface string) (*dhcp4.Reply, error) {
	held, err := p.held(iface)
	if err != nil {
		return nil, err
	}

	c, err := p.dial(iface)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	l, err := c.Renew(ctx, held)
	if err != nil {
		return nil, fmt.Errorf("DHCPv4 renew on %s: %w", iface, err)
	}

	p.hold(iface, l)
	return replyFromACK(l.ACK), nil
}

// Stop forgets the held lease without telling the server.
func (p *Provider) Stop(ctx context.Context, iface string) error {
	p.forget(iface)
	return nil
}

func (p *Provider) Release(ctx context.Context, iface string) error {
	held, err := p.held(iface)
	if err != nil {
		return err
	}

	c, err := p.dial(iface)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Release(held); err != nil {
		return fmt.Errorf("DHCPv4 release on %s: %w", iface, err)
	}

	p.forget(iface)
	return nil
}

func replyFromACK(ack *dhcpv4.DHCPv4) *dhcp4.Reply {
	r := &dhcp4.Reply{
		IPAddress:    ack.YourIPAddr.String(),
		PrefixLength: 32,
		Domains:      ack.DomainName(),
		LeaseSeconds: uint32(ack.IPAddressLeaseTime(0) / time.Second),
	}

	if mask := ack.SubnetMask(); mask != nil {
		ones, _ := net.IPMask(mask).Size()
		r.PrefixLength = uint8(ones)
	}
	if routers := ack.Router(); len(routers) > 0 {
		r.Gateway = routers[0].String()
	}
	for _, d := range ack.DNS() {
		r.DNS = append(r.DNS, d.String())
	}
	if sid := ack.ServerIdentifier(); sid != nil {
		r.Server = sid.String()
	}
	if vendor := ack.Options.Get(dhcpv4.OptionVendorSpecificInformation); len(vendor) > 0 {
		r.VendorInfo = hex.EncodeToString(vendor)
	}

	return r
}
