// Package dhcpcd runs dhcpcd in the background for DHCPv6 and prefix
// delegation. The daemon's pid is the session ID; renew and release are
// signals to it.
package dhcpcd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/dhcp6"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

func init() {
	dhcp6.Register(lease.BackendDHCPCD, New)
	dhcp6.RegisterPD(lease.BackendDHCPCD, NewPD)
}

const pollInterval = 100 * time.Millisecond

type daemon struct {
	cfg     lease.DHCPCDConfig
	timeout time.Duration
	logger  *slog.Logger

	start  func(args ...string) (int, error)
	run    func(ctx context.Context, args ...string) error
	signal func(pid int, sig syscall.Signal) error
	comm   func(pid int) (string, error)

	mu    sync.Mutex
	procs map[int]*exec.Cmd
	// owned maps each dhcpcd started here to its interface.
	owned map[int]string
}

func newDaemon(cfg *config.Config, name string) *daemon {
	d := &daemon{
		cfg:     cfg.Lease.DHCPCD,
		timeout: cfg.Lease.Timeout,
		logger:  logger.Get(name),
		procs:   make(map[int]*exec.Cmd),
		owned:   make(map[int]string),
	}
	d.start = d.startProcess
	d.run = d.runProcess
	d.signal = unix.Kill
	d.comm = procComm
	return d
}

func info() provider.Info {
	return provider.Info{
		Name:    lease.BackendDHCPCD,
		Version: "1.0.0",
		Author:  "netbridge",
	}
}

func (d *daemon) args(extra ...string) []string {
	return append(append([]string{}, d.cfg.Args...), extra...)
}

// startProcess launches dhcpcd without waiting for it. The child is reaped
// in the background when it exits.
func (d *daemon) startProcess(args ...string) (int, error) {
	cmd := exec.Command(d.cfg.Binary, d.args(args...)...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start dhcpcd: %w", err)
	}
	pid := cmd.Process.Pid

	d.mu.Lock()
	d.procs[pid] = cmd
	d.mu.Unlock()

	go func() {
		err := cmd.Wait()
		d.mu.Lock()
		delete(d.procs, pid)
		delete(d.owned, pid)
		d.mu.Unlock()
		d.logger.Debug("dhcpcd exited", "pid", pid, "error", err)
	}()

	return pid, nil
}

func (d *daemon) runProcess(ctx context.Context, args ...string) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.cfg.Binary, d.args(args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = exitErr.String()
		}
		return dhcp.Failure(exitErr.ExitCode(), "%s", msg)
	}
	return fmt.Errorf("dhcpcd: %w", err)
}

func (d *daemon) leaseFile(iface string) string {
	return filepath.Join(d.cfg.LeaseDir, iface+".lease6")
}

// pidFile is where dhcpcd records its pid when run per interface for v6.
func (d *daemon) pidFile(iface string) string {
	return filepath.Join(d.cfg.RunDir, iface+"-6.pid")
}

// snapshot returns the current lease file contents, nil when there is none.
func (d *daemon) snapshot(iface string) []byte {
	data, _ := os.ReadFile(d.leaseFile(iface))
	return data
}

// waitLease polls until the lease file holds something other than prev.
// Every REPLY carries a fresh transaction ID, so a rewritten lease never
// matches the previous one byte for byte.
func (d *daemon) waitLease(ctx context.Context, iface string, prev []byte) (*dhcpv6.Message, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	path := d.leaseFile(iface)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 && !bytes.Equal(data, prev) {
			msg, err := dhcpv6.MessageFromBytes(data)
			if err != nil {
				return nil, fmt.Errorf("decode dhcpcd lease: %w", err)
			}
			return msg, nil
		}

		select {
		case <-ctx.Done():
			return nil, dhcp.Failure(int(syscall.ETIMEDOUT), "timed out waiting for dhcpcd lease on %s", iface)
		case <-ticker.C:
		}
	}
}

// launch starts dhcpcd and waits for its first lease. The process is
// killed if no lease arrives.
func (d *daemon) launch(ctx context.Context, iface string, args ...string) (*dhcpv6.Message, int, error) {
	prev := d.snapshot(iface)
	pid, err := d.start(append(args, iface)...)
	if err != nil {
		return nil, 0, err
	}

	d.mu.Lock()
	d.owned[pid] = iface
	d.mu.Unlock()

	msg, err := d.waitLease(ctx, iface, prev)
	if err != nil {
		d.terminate(pid)
		return nil, 0, err
	}

	d.logger.Info("dhcpcd bound", "interface", iface, "pid", pid)
	return msg, pid, nil
}

// terminate stops a dhcpcd whose lease will not be handed out.
func (d *daemon) terminate(pid int) {
	if err := d.signal(pid, syscall.SIGTERM); err != nil {
		d.logger.Warn("Failed to terminate dhcpcd", "pid", pid, "error", err)
	}
	d.forget(pid)
}

func (d *daemon) forget(pid int) {
	d.mu.Lock()
	delete(d.owned, pid)
	d.mu.Unlock()
}

func (d *daemon) forgetInterface(iface string) {
	d.mu.Lock()
	for pid, name := range d.owned {
		if name == iface {
			delete(d.owned, pid)
		}
	}
	d.mu.Unlock()
}

func procComm(pid int) (string, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "comm"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// owns reports whether pid is the dhcpcd serving iface. Processes started
// by this daemon are known directly. One left by a previous run is adopted
// only when the interface pidfile names it and the process is still dhcpcd.
func (d *daemon) owns(iface string, pid int) bool {
	d.mu.Lock()
	name, ok := d.owned[pid]
	d.mu.Unlock()
	if ok {
		return name == iface
	}

	data, err := os.ReadFile(d.pidFile(iface))
	if err != nil {
		return false
	}
	recorded, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || recorded != pid {
		return false
	}

	comm, err := d.comm(pid)
	if err != nil {
		return false
	}
	// The kernel truncates comm to 15 bytes.
	want := filepath.Base(d.cfg.Binary)
	if len(want) > 15 {
		want = want[:15]
	}
	if comm != want {
		return false
	}

	d.mu.Lock()
	d.owned[pid] = iface
	d.mu.Unlock()
	return true
}

func parsePid(sessionID string) (int, error) {
	pid, err := strconv.Atoi(sessionID)
	if err != nil || pid <= 0 {
		return 0, dhcp.Failure(int(syscall.EINVAL), "invalid dhcpcd session %q", sessionID)
	}
	return pid, nil
}

func (d *daemon) signalSession(iface, sessionID string, sig syscall.Signal) (int, error) {
	pid, err := parsePid(sessionID)
	if err != nil {
		return 0, err
	}
	if !d.owns(iface, pid) {
		return 0, dhcp.Failure(int(syscall.ESRCH), "no dhcpcd with pid %d serves %s", pid, iface)
	}
	if err := d.signal(pid, sig); err != nil {
		var errno syscall.Errno
		if errors.As(err, &errno) {
			if errno == syscall.ESRCH {
				d.forget(pid)
			}
			return 0, dhcp.Failure(int(errno), "signal dhcpcd %d: %s", pid, errno.Error())
		}
		return 0, err
	}
	return pid, nil
}

// renew asks the running dhcpcd to renew and waits for the rewritten lease.
func (d *daemon) renew(ctx context.Context, iface, sessionID string) (*dhcpv6.Message, error) {
	prev := d.snapshot(iface)
	if _, err := d.signalSession(iface, sessionID, syscall.SIGUSR1); err != nil {
		return nil, err
	}
	return d.waitLease(ctx, iface, prev)
}

// release makes dhcpcd release its leases and exit.
func (d *daemon) release(iface, sessionID string) error {
	pid, err := d.signalSession(iface, sessionID, syscall.SIGALRM)
	if err != nil {
		return err
	}
	d.forget(pid)
	return nil
}

func (d *daemon) stop(ctx context.Context, iface string) error {
	if err := d.run(ctx, "-6", "-x", iface); err != nil {
		return err
	}
	d.forgetInterface(iface)
	return nil
}

type Provider struct {
	*daemon
}

func New(cfg *config.Config) (dhcp6.Client, error) {
	return &Provider{daemon: newDaemon(cfg, logger.LeaseDHCP6)}, nil
}

func (p *Provider) Info() provider.Info { return info() }

func (p *Provider) Request(ctx context.Context, iface string) (*dhcp6.Reply, error) {
	msg, pid, err := p.launch(ctx, iface, "-6", "-B")
	if err != nil {
		return nil, err
	}
	r, err := addressReply(msg)
	if err != nil {
		p.terminate(pid)
		return nil, err
	}
	r.SessionID = strconv.Itoa(pid)
	return r, nil
}

func (p *Provider) Renew(ctx context.Context, iface, sessionID string) (*dhcp6.Reply, error) {
	msg, err := p.renew(ctx, iface, sessionID)
	if err != nil {
		return nil, err
	}
	return addressReply(msg)
}

func (p *Provider) Stop(ctx context.Context, iface string) error {
	return p.stop(ctx, iface)
}

func (p *Provider) Release(ctx context.Context, iface, sessionID string) error {
	return p.release(iface, sessionID)
}

type PDProvider struct {
	*daemon
}

func NewPD(cfg *config.Config) (dhcp6.PDClient, error) {
	return &PDProvider{daemon: newDaemon(cfg, logger.LeasePD)}, nil
}

func (p *PDProvider) Info() provider.Info { return info() }

func (p *PDProvider) Request(ctx context.Context, iface string) (*dhcp6.PDReply, error) {
	msg, pid, err := p.launch(ctx, iface, "-6", "-B", "--ia_pd", "1")
	if err != nil {
		return nil, err
	}
	r, err := prefixReply(msg)
	if err != nil {
		p.terminate(pid)
		return nil, err
	}
	r.SessionID = strconv.Itoa(pid)
	return r, nil
}

func (p *PDProvider) Renew(ctx context.Context, iface, sessionID string) (*dhcp6.PDReply, error) {
	msg, err := p.renew(ctx, iface, sessionID)
	if err != nil {
		return nil, err
	}
	return prefixReply(msg)
}

func (p *PDProvider) Stop(ctx context.Context, iface string) error {
	return p.stop(ctx, iface)
}

func (p *PDProvider) Release(ctx context.Context, iface, sessionID string) error {
	return p.release(iface, sessionID)
}
