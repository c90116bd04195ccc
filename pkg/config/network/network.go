package network

import (
	"fmt"
	"net/netip"
)

type NetdConfig struct {
	Netns    string          `json:"netns,omitempty" yaml:"netns,omitempty" env:"NETNS"`
	Networks []NetworkConfig `json:"networks,omitempty" yaml:"networks,omitempty"`
	// InstallRules controls whether policy rules are added on start.
	InstallRules bool `json:"install_rules,omitempty" yaml:"install_rules,omitempty" env:"INSTALL_RULES"`
}

type NetworkConfig struct {
	ID         uint32   `json:"id" yaml:"id"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Table      uint32   `json:"table,omitempty" yaml:"table,omitempty"`
	Interfaces []string `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	VPN        bool     `json:"vpn,omitempty" yaml:"vpn,omitempty"`
	DNS        []string `json:"dns,omitempty" yaml:"dns,omitempty"`
}

type FwmarkdConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	Socket  string `json:"socket,omitempty" yaml:"socket,omitempty" env:"SOCKET"`
}

const (
	MaxNetID = 0xffff
)

func (n *NetworkConfig) Validate() error {
	if n.ID == 0 || n.ID > MaxNetID {
		return fmt.Errorf("id %d out of range 1-%d", n.ID, MaxNetID)
	}
	for i, s := range n.DNS {
		if _, err := netip.ParseAddr(s); err != nil {
			return fmt.Errorf("dns[%d]: %w", i, err)
		}
	}
	return nil
}
