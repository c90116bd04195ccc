// Package dhcpcd drives the dhcpcd binary for DHCPv4 and reads back the
// lease file it writes.
package dhcpcd

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/dhcp4"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

func init() {
	dhcp4.Register(lease.BackendDHCPCD, New)
}

type Provider struct {
	cfg     lease.DHCPCDConfig
	timeout time.Duration
	logger  *slog.Logger

	run func(ctx context.Context, args ...string) error
}

func New(cfg *config.Config) (dhcp4.Client, error) {
	p := &Provider{
		cfg:     cfg.Lease.DHCPCD,
		timeout: cfg.Lease.Timeout,
		logger:  logger.Get(logger.LeaseDHCP4),
	}
	p.run = p.exec
	return p, nil
}

func (p *Provider) Info() provider.Info {
	return provider.Info{
		Name:    lease.BackendDHCPCD,
		Version: "1.0.0",
		Author:  "netbridge",
	}
}

// exec runs dhcpcd and turns a non-zero exit into a client failure carrying
// the exit status and stderr.
func (p *Provider) exec(ctx context.Context, args ...string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	full := append(append([]string{}, p.cfg.Args...), args...)
	cmd := exec.CommandContext(ctx, p.cfg.Binary, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug("Running dhcpcd", "args", full)
	err := cmd.Run()
	if err == nil {
		return nil
	}

	msg := strings.TrimSpace(stderr.String())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg == "" {
			msg = exitErr.String()
		}
		return dhcp.Failure(exitErr.ExitCode(), "%s", msg)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("dhcpcd: %w", ctx.Err())
	}
	return fmt.Errorf("dhcpcd: %w", err)
}

func (p *Provider) leaseFile(iface string) string {
	return filepath.Join(p.cfg.LeaseDir, iface+".lease")
}

func (p *Provider) Request(ctx context.Context, iface string) (*dhcp4.Reply, error) {
	if err := p.run(ctx, "-4", "-1", "-w", iface); err != nil {
		return nil, err
	}
	return p.readLease(iface)
}

func (p *Provider) Renew(ctx context.Context, iface string) (*dhcp4.Reply, error) {
	if err := p.run(ctx, "-4", "-n", iface); err != nil {
		return nil, err
	}
	return p.readLease(iface)
}

func (p *Provider) Stop(ctx context.Context, iface string) error {
	return p.run(ctx, "-4", "-x", iface)
}

func (p *Provider) Release(ctx context.Context, iface string) error {
	return p.run(ctx, "-4", "-k", iface)
}

func (p *Provider) readLease(iface string) (*dhcp4.Reply, error) {
	data, err := os.ReadFile(p.leaseFile(iface))
	if err != nil {
		return nil, fmt.Errorf("read dhcpcd lease: %w", err)
	}
	return DecodeLease(data)
}

// DecodeLease parses the BOOTP message dhcpcd stores as its lease.
func DecodeLease(data []byte) (*dhcp4.Reply, error) {
	var msg layers.DHCPv4
	if err := msg.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("decode dhcpcd lease: %w", err)
	}

	r := &dhcp4.Reply{
		IPAddress:    msg.YourClientIP.String(),
		PrefixLength: 32,
	}

	for _, opt := range msg.Options {
		switch opt.Type {
		case layers.DHCPOptSubnetMask:
			if len(opt.Data) == 4 {
				ones, _ := net.IPMask(opt.Data).Size()
				r.PrefixLength = uint8(ones)
			}
		case layers.DHCPOptRouter:
			if len(opt.Data) >= 4 {
				r.Gateway = net.IP(opt.Data[:4]).String()
			}
		case layers.DHCPOptDNS:
			for i := 0; i+4 <= len(opt.Data); i += 4 {
				r.DNS = append(r.DNS, net.IP(opt.Data[i:i+4]).String())
			}
		case layers.DHCPOptDomainName:
			r.Domains = string(opt.Data)
		case layers.DHCPOptServerID:
			if len(opt.Data) == 4 {
				r.Server = net.IP(opt.Data).String()
			}
		case layers.DHCPOptLeaseTime:
			if len(opt.Data) == 4 {
				r.LeaseSeconds = binary.BigEndian.Uint32(opt.Data)
			}
		case layers.DHCPOptVendorOption:
			r.VendorInfo = hex.EncodeToString(opt.Data)
		}
	}

	return r, nil
}
