package component

import (
	"net"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/pkg/opdb"
)

type Dependencies struct {
	EventBus events.Bus
	Config   *config.Config
	Store    opdb.Store

	Lease  *lease.Adapter
	Binder *binder.Binder

	// Dialer follows the process network binding. Nil dials on the host
	// default network.
	Dialer *net.Dialer
}
