package lease

import (
	"context"

	"github.com/veesix-networks/netbridge/pkg/dhcp"
)

func (a *Adapter) RequestV4(ctx context.Context, iface string) (*dhcp.Result, error) {
	return a.Request(ctx, dhcp.FamilyV4, iface)
}

func (a *Adapter) RenewV4(ctx context.Context, iface string) (*dhcp.Result, error) {
	return a.Renew(ctx, dhcp.FamilyV4, iface)
}

func (a *Adapter) StopV4(ctx context.Context, iface string) bool {
	return a.Stop(ctx, dhcp.FamilyV4, iface)
}

func (a *Adapter) ReleaseV4(ctx context.Context, iface string) bool {
	return a.Release(ctx, dhcp.FamilyV4, iface)
}

func (a *Adapter) RequestV6(ctx context.Context, iface string) (*dhcp.Result, error) {
	return a.Request(ctx, dhcp.FamilyV6, iface)
}

func (a *Adapter) RenewV6(ctx context.Context, iface string) (*dhcp.Result, error) {
	return a.Renew(ctx, dhcp.FamilyV6, iface)
}

func (a *Adapter) StopV6(ctx context.Context, iface string) bool {
	return a.Stop(ctx, dhcp.FamilyV6, iface)
}

func (a *Adapter) ReleaseV6(ctx context.Context, iface string) bool {
	return a.Release(ctx, dhcp.FamilyV6, iface)
}

func (a *Adapter) RequestPD(ctx context.Context, iface string) (*dhcp.Result, error) {
	return a.Request(ctx, dhcp.FamilyPD, iface)
}

func (a *Adapter) RenewPD(ctx context.Context, iface string) (*dhcp.Result, error) {
	return a.Renew(ctx, dhcp.FamilyPD, iface)
}

func (a *Adapter) StopPD(ctx context.Context, iface string) bool {
	return a.Stop(ctx, dhcp.FamilyPD, iface)
}

func (a *Adapter) ReleasePD(ctx context.Context, iface string) bool {
	return a.Release(ctx, dhcp.FamilyPD, iface)
}
