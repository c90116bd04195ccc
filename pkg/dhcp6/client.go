package dhcp6

import (
	"context"

	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/provider"
)

// Reply is the raw DHCPv6 lease as reported by the client. SessionID is
// opaque and must be handed back on Renew and Release.
type Reply struct {
	IPAddress    string
	PrefixLength uint8
	DNS          []string
	Domains      string
	Server       string
	LeaseSeconds uint32
	SessionID    string
}

type Client interface {
	provider.Provider
	Request(ctx context.Context, iface string) (*Reply, error)
	Renew(ctx context.Context, iface, sessionID string) (*Reply, error)
	Stop(ctx context.Context, iface string) error
	Release(ctx context.Context, iface, sessionID string) error
}

// PDReply is a delegated prefix. It has no gateway, DNS or vendor fields.
type PDReply struct {
	Prefix       string
	PrefixLength uint8
	LeaseSeconds uint32
	SessionID    string
}

type PDClient interface {
	provider.Provider
	Request(ctx context.Context, iface string) (*PDReply, error)
	Renew(ctx context.Context, iface, sessionID string) (*PDReply, error)
	Stop(ctx context.Context, iface string) error
	Release(ctx context.Context, iface, sessionID string) error
}

type Factory func(cfg *config.Config) (Client, error)

type PDFactory func(cfg *config.Config) (PDClient, error)
