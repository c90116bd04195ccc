// Package lease presents one request/renew/stop/release contract over the
// DHCPv4, DHCPv6 and DHCPv6-PD clients.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	leasecfg "github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/dhcp4"
	"github.com/veesix-networks/netbridge/pkg/dhcp6"
	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/opdb"
)

// InterfaceResolver returns an error when the host has no interface called
// name.
type InterfaceResolver func(name string) error

func hostInterface(name string) error {
	_, err := net.InterfaceByName(name)
	return err
}

type Config struct {
	// V6PrefixLength and PDPrefixLength apply when the client reports 0.
	V6PrefixLength uint8
	PDPrefixLength uint8
}

func ConfigFrom(cfg leasecfg.LeaseConfig) Config {
	c := Config{
		V6PrefixLength: cfg.DHCP6.PrefixLength,
		PDPrefixLength: cfg.PD.PrefixLength,
	}
	if c.V6PrefixLength == 0 {
		c.V6PrefixLength = 64
	}
	if c.PDPrefixLength == 0 {
		c.PDPrefixLength = 64
	}
	return c
}

type Option func(*Adapter)

func WithInterfaceResolver(r InterfaceResolver) Option {
	return func(a *Adapter) { a.resolveIface = r }
}

// WithStore persists sessions so a restarted daemon can still renew.
func WithStore(s opdb.Store) Option {
	return func(a *Adapter) { a.store = s }
}

func WithEventBus(b events.Bus) Option {
	return func(a *Adapter) { a.bus = b }
}

type Adapter struct {
	cfg Config
	v4  dhcp4.Client
	v6  dhcp6.Client
	pd  dhcp6.PDClient

	lastErrors   dhcp.LastErrors
	resolveIface InterfaceResolver
	store        opdb.Store
	bus          events.Bus
	ipv6ConfDir  string
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[sessionKey]Session
}

var _ opdb.Provider = (*Adapter)(nil)

// New wires the three clients. A nil client makes its family report
// dhcp.ErrUnsupported.
func New(cfg Config, v4 dhcp4.Client, v6 dhcp6.Client, pd dhcp6.PDClient, opts ...Option) *Adapter {
	a := &Adapter{
		cfg:          cfg,
		v4:           v4,
		v6:           v6,
		pd:           pd,
		resolveIface: hostInterface,
		bus:          events.Nop{},
		ipv6ConfDir:  DefaultIPv6ConfDir,
		logger:       logger.Get(logger.Lease),
		sessions:     make(map[sessionKey]Session),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetLastError returns the most recent failure message for family. It never
// clears the slot.
func (a *Adapter) GetLastError(family dhcp.Family) string {
	return a.lastErrors.Get(family)
}

func (a *Adapter) LastErrors() map[dhcp.Family]string {
	return a.lastErrors.All()
}

func (a *Adapter) checkInterface(iface string) error {
	if iface == "" {
		return dhcp.ErrEmptyInterface
	}
	if err := a.resolveIface(iface); err != nil {
		return fmt.Errorf("%w: %s: %v", dhcp.ErrUnknownInterface, iface, err)
	}
	return nil
}

func (a *Adapter) supported(family dhcp.Family) error {
	var ok bool
	switch family {
	case dhcp.FamilyV4:
		ok = a.v4 != nil
	case dhcp.FamilyV6:
		ok = a.v6 != nil
	case dhcp.FamilyPD:
		ok = a.pd != nil
	default:
		return fmt.Errorf("unknown lease family %q", family)
	}
	if !ok {
		return fmt.Errorf("%w: no %s client", dhcp.ErrUnsupported, family)
	}
	return nil
}

// Do runs op for family on iface. Request and Renew return the assembled
// lease; Stop and Release return a nil Result.
func (a *Adapter) Do(ctx context.Context, family dhcp.Family, op dhcp.Op, iface string) (*dhcp.Result, error) {
	if err := a.supported(family); err != nil {
		return nil, err
	}
	if err := a.checkInterface(iface); err != nil {
		return nil, err
	}

	log := logger.WithLease(a.logger, logger.LeaseAttrs{
		Family:    family.String(),
		Interface: iface,
		Operation: string(op),
	})

	var (
		res       *dhcp.Result
		sessionID string
		err       error
	)
	switch op {
	case dhcp.OpRequest:
		res, sessionID, err = a.request(ctx, family, iface)
	case dhcp.OpRenew:
		res, sessionID, err = a.renew(ctx, family, iface)
	case dhcp.OpStop:
		err = a.stop(ctx, family, iface)
	case dhcp.OpRelease:
		err = a.release(ctx, family, iface)
	default:
		return nil, fmt.Errorf("unknown lease operation %q", op)
	}

	if errors.Is(err, dhcp.ErrNoSession) {
		log.Warn("No session held")
		a.publish(family, op, iface, "", nil, err)
		return nil, err
	}
	if err != nil {
		err = a.fail(family, op, iface, err)
		log.Warn("Lease operation failed", "error", err)
		a.publish(family, op, iface, sessionID, nil, err)
		return nil, err
	}

	switch {
	case res != nil:
		a.saveSession(ctx, Session{
			Family:    family,
			Interface: iface,
			SessionID: sessionID,
			Result:    res.Record(),
			UpdatedAt: time.Now(),
		})
		log.Info("Lease acquired", "address", res.IPAddress(), "prefix_length", res.PrefixLength(),
			"lease_seconds", res.LeaseDurationSeconds())
	case op == dhcp.OpStop || op == dhcp.OpRelease:
		a.dropSession(ctx, family, iface)
		log.Info("Lease client stopped")
	}

	a.publish(family, op, iface, sessionID, res, nil)
	return res, nil
}

// fail records the failure in the family's LastError slot. Client answers
// are normalised into a *dhcp.ClientError; assembly errors pass through.
func (a *Adapter) fail(family dhcp.Family, op dhcp.Op, iface string, err error) error {
	if errors.Is(err, dhcp.ErrAssembly) {
		a.lastErrors.Set(family, err.Error())
		return err
	}
	ce := dhcp.NewClientError(family, op, iface, err)
	a.lastErrors.Set(family, ce.Message)
	return ce
}

func (a *Adapter) publish(family dhcp.Family, op dhcp.Op, iface, sessionID string, res *dhcp.Result, err error) {
	ev := events.LeaseEvent{
		Family:    family.String(),
		Interface: iface,
		Op:        string(op),
		Success:   err == nil,
		SessionID: sessionID,
		Active:    a.activeCount(family),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if res != nil {
		ev.Result = res.Record()
	}
	a.bus.Publish(events.TopicLease, events.Event{
		Source: logger.Lease,
		Data:   ev,
	})
}

func (a *Adapter) request(ctx context.Context, family dhcp.Family, iface string) (*dhcp.Result, string, error) {
	switch family {
	case dhcp.FamilyV4:
		r, err := a.v4.Request(ctx, iface)
		if err != nil {
			return nil, "", err
		}
		res, err := assembleV4(iface, r)
		if err != nil {
			a.abandon(ctx, family, iface)
		}
		return res, "", err
	case dhcp.FamilyV6:
		r, err := a.v6.Request(ctx, iface)
		if err != nil {
			return nil, "", err
		}
		res, err := assembleV6(iface, r, a.cfg.V6PrefixLength)
		if err != nil {
			a.abandon(ctx, family, iface)
		}
		return res, r.SessionID, err
	default:
		r, err := a.pd.Request(ctx, iface)
		if err != nil {
			return nil, "", err
		}
		res, err := assemblePD(iface, r, a.cfg.PDPrefixLength)
		if err != nil {
			a.abandon(ctx, family, iface)
		}
		return res, r.SessionID, err
	}
}

// abandon stops a client whose lease could not be assembled. No session is
// stored for it, so nothing else would ever stop it.
func (a *Adapter) abandon(ctx context.Context, family dhcp.Family, iface string) {
	if err := a.stop(ctx, family, iface); err != nil {
		a.logger.Warn("Failed to stop client after rejected lease", "family", family, "interface", iface, "error", err)
	}
}

// renew needs the session from the last successful request for v6 and PD.
// Without one the client is not called.
func (a *Adapter) renew(ctx context.Context, family dhcp.Family, iface string) (*dhcp.Result, string, error) {
	if family == dhcp.FamilyV4 {
		r, err := a.v4.Renew(ctx, iface)
		if err != nil {
			return nil, "", err
		}
		res, err := assembleV4(iface, r)
		return res, "", err
	}

	s, ok := a.session(family, iface)
	if !ok || s.SessionID == "" {
		return nil, "", fmt.Errorf("%w: %s %s", dhcp.ErrNoSession, family, iface)
	}

	if family == dhcp.FamilyV6 {
		r, err := a.v6.Renew(ctx, iface, s.SessionID)
		if err != nil {
			return nil, s.SessionID, err
		}
		res, err := assembleV6(iface, r, a.cfg.V6PrefixLength)
		return res, keepSession(r.SessionID, s.SessionID), err
	}

	r, err := a.pd.Renew(ctx, iface, s.SessionID)
	if err != nil {
		return nil, s.SessionID, err
	}
	res, err := assemblePD(iface, r, a.cfg.PDPrefixLength)
	return res, keepSession(r.SessionID, s.SessionID), err
}

func keepSession(next, prev string) string {
	if next == "" {
		return prev
	}
	return next
}

func (a *Adapter) stop(ctx context.Context, family dhcp.Family, iface string) error {
	switch family {
	case dhcp.FamilyV4:
		return a.v4.Stop(ctx, iface)
	case dhcp.FamilyV6:
		return a.v6.Stop(ctx, iface)
	default:
		return a.pd.Stop(ctx, iface)
	}
}

func (a *Adapter) release(ctx context.Context, family dhcp.Family, iface string) error {
	if family == dhcp.FamilyV4 {
		return a.v4.Release(ctx, iface)
	}

	s, ok := a.session(family, iface)
	if !ok || s.SessionID == "" {
		return fmt.Errorf("%w: %s %s", dhcp.ErrNoSession, family, iface)
	}
	if family == dhcp.FamilyV6 {
		return a.v6.Release(ctx, iface, s.SessionID)
	}
	return a.pd.Release(ctx, iface, s.SessionID)
}

func (a *Adapter) Request(ctx context.Context, family dhcp.Family, iface string) (*dhcp.Result, error) {
	return a.Do(ctx, family, dhcp.OpRequest, iface)
}

func (a *Adapter) Renew(ctx context.Context, family dhcp.Family, iface string) (*dhcp.Result, error) {
	return a.Do(ctx, family, dhcp.OpRenew, iface)
}

// Stop reports whether the client accepted the stop.
func (a *Adapter) Stop(ctx context.Context, family dhcp.Family, iface string) bool {
	_, err := a.Do(ctx, family, dhcp.OpStop, iface)
	return err == nil
}

func (a *Adapter) Release(ctx context.Context, family dhcp.Family, iface string) bool {
	_, err := a.Do(ctx, family, dhcp.OpRelease, iface)
	return err == nil
}
