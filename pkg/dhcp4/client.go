package dhcp4

import (
	"context"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

// Reply is the raw field set a DHCPv4 client reports for a lease. Values are
// kept as the client wrote them; parsing happens during result assembly.
type Reply struct {
	IPAddress    string
	PrefixLength uint8
	Gateway      string
	DNS          []string
	Domains      string
	Server       string
	LeaseSeconds uint32
	VendorInfo   string
}

// Client is the external DHCPv4 client. A nil error is the client's zero
// return code.
type Client interface {
	provider.Provider
	Request(ctx context.Context, iface string) (*Reply, error)
	Renew(ctx context.Context, iface string) (*Reply, error)
	Stop(ctx context.Context, iface string) error
	Release(ctx context.Context, iface string) error
}

type Factory func(cfg *config.Config) (Client, error)

var registry = provider.NewRegistry[Factory]("dhcp4")

func Register(name string, factory Factory) {
	registry.Register(name, factory)
}

func Get(name string) (Factory, bool) {
	return registry.Get(name)
}

func List() []string {
	return registry.List()
}

// New builds the backend selected by cfg.Lease.DHCP4.Backend.
func New(cfg *config.Config) (Client, error) {
	factory, err := registry.MustGet(cfg.Lease.DHCP4.Backend)
	if err != nil {
		return nil, err
	}
	return factory(cfg)
}
