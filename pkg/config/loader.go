package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/veesix-networks/netbridge/pkg/config/lease"
	"github.com/veesix-networks/netbridge/pkg/config/system"
)

// EnvPrefix is prepended to every environment override, e.g.
// NETBRIDGE_LEASE_DHCP4_BACKEND.
const EnvPrefix = "NETBRIDGE_"

type envRoot struct {
	Config `env-prefix:"NETBRIDGE_"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var root envRoot
	if err := yaml.Unmarshal(data, &root.Config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cleanenv.ReadEnv(&root); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := root.Config
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Default returns a configuration with every default applied and no networks.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	defaults := lease.DefaultLeaseConfig()
	applyBackendDefaults(&c.Lease.DHCP4, defaults.DHCP4)
	applyBackendDefaults(&c.Lease.DHCP6, defaults.DHCP6)
	applyBackendDefaults(&c.Lease.PD, defaults.PD)
	if c.Lease.Timeout == 0 {
		c.Lease.Timeout = defaults.Timeout
	}
	if c.Lease.Retries == 0 {
		c.Lease.Retries = defaults.Retries
	}
	if c.Lease.DHCPCD.Binary == "" {
		c.Lease.DHCPCD.Binary = defaults.DHCPCD.Binary
	}
	if c.Lease.DHCPCD.LeaseDir == "" {
		c.Lease.DHCPCD.LeaseDir = defaults.DHCPCD.LeaseDir
	}
	if c.Lease.DHCPCD.RunDir == "" {
		c.Lease.DHCPCD.RunDir = defaults.DHCPCD.RunDir
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = system.StorageDriverSQLite
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/netbridge/opdb.db"
	}

	if c.API.ListenAddress == "" {
		c.API.ListenAddress = "127.0.0.1:8080"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 60 * time.Second
	}
	if c.Exporter.ListenAddress == "" {
		c.Exporter.ListenAddress = ":9090"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "netbridge/events"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "netbridged"
	}
	if c.Fwmarkd.Socket == "" {
		c.Fwmarkd.Socket = "/run/netbridge/fwmarkd.sock"
	}
}

func applyBackendDefaults(b *lease.BackendConfig, def lease.BackendConfig) {
	if b.Backend == "" {
		b.Backend = def.Backend
	}
	if b.PrefixLength == 0 {
		b.PrefixLength = def.PrefixLength
	}
}

func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}

	switch c.Storage.Driver {
	case system.StorageDriverSQLite, system.StorageDriverBolt:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	if c.Lease.DHCP6.PrefixLength > 128 {
		return fmt.Errorf("lease.dhcp6.prefix_length: %d exceeds 128", c.Lease.DHCP6.PrefixLength)
	}
	if c.Lease.PD.PrefixLength > 128 {
		return fmt.Errorf("lease.pd.prefix_length: %d exceeds 128", c.Lease.PD.PrefixLength)
	}
	if c.Lease.Timeout < 0 {
		return fmt.Errorf("lease.timeout: must not be negative")
	}

	seenIDs := make(map[uint32]bool, len(c.Netd.Networks))
	seenTables := make(map[uint32]bool, len(c.Netd.Networks))
	for i := range c.Netd.Networks {
		n := &c.Netd.Networks[i]
		if err := n.Validate(); err != nil {
			return fmt.Errorf("netd.networks[%d]: %w", i, err)
		}
		if seenIDs[n.ID] {
			return fmt.Errorf("netd.networks[%d]: duplicate id %d", i, n.ID)
		}
		seenIDs[n.ID] = true
		if n.Table != 0 {
			if seenTables[n.Table] {
				return fmt.Errorf("netd.networks[%d]: table %d already used", i, n.Table)
			}
			seenTables[n.Table] = true
		}
	}

	if c.MQTT.Enabled && len(c.MQTT.Brokers) == 0 {
		return fmt.Errorf("mqtt: enabled without brokers")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos: %d out of range 0-2", c.MQTT.QoS)
	}

	return nil
}
