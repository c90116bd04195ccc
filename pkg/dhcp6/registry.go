package dhcp6

import (
	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

var (
	clients   = provider.NewRegistry[Factory]("dhcp6")
	pdClients = provider.NewRegistry[PDFactory]("dhcp6-pd")
)

func Register(name string, factory Factory) {
	clients.Register(name, factory)
}

func RegisterPD(name string, factory PDFactory) {
	pdClients.Register(name, factory)
}

func Get(name string) (Factory, bool) {
	return clients.Get(name)
}

func GetPD(name string) (PDFactory, bool) {
	return pdClients.Get(name)
}

func List() []string {
	return clients.List()
}

func ListPD() []string {
	return pdClients.List()
}

func New(cfg *config.Config) (Client, error) {
	factory, err := clients.MustGet(cfg.Lease.DHCP6.Backend)
	if err != nil {
		return nil, err
	}
	return factory(cfg)
}

func NewPD(cfg *config.Config) (PDClient, error) {
	factory, err := pdClients.MustGet(cfg.Lease.PD.Backend)
	if err != nil {
		return nil, err
	}
	return factory(cfg)
}
