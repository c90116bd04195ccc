package config

import (
	"github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/config/network"
	"github.com/veesix-networks/netbridge/pkg/config/system"
)

type Config struct {
	Logging  system.LoggingConfig  `json:"logging,omitempty" yaml:"logging,omitempty" env-prefix:"LOG_"`
	Lease    lease.LeaseConfig     `json:"lease,omitempty" yaml:"lease,omitempty" env-prefix:"LEASE_"`
	Netd     network.NetdConfig    `json:"netd,omitempty" yaml:"netd,omitempty" env-prefix:"NETD_"`
	Fwmarkd  network.FwmarkdConfig `json:"fwmarkd,omitempty" yaml:"fwmarkd,omitempty" env-prefix:"FWMARKD_"`
	Storage  system.StorageConfig  `json:"storage,omitempty" yaml:"storage,omitempty" env-prefix:"STORAGE_"`
	API      system.APIConfig      `json:"api,omitempty" yaml:"api,omitempty" env-prefix:"API_"`
	Exporter system.ExporterConfig `json:"exporter,omitempty" yaml:"exporter,omitempty" env-prefix:"EXPORTER_"`
	MQTT     system.MQTTConfig     `json:"mqtt,omitempty" yaml:"mqtt,omitempty" env-prefix:"MQTT_"`
}

// Network returns the configured network with the given id.
func (c *Config) Network(id uint32) (*network.NetworkConfig, bool) {
	for i := range c.Netd.Networks {
		if c.Netd.Networks[i].ID == id {
			return &c.Netd.Networks[i], true
		}
	}
	return nil, false
}
