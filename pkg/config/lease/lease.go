package lease

import "time"

const (
	BackendNative = "native"
	BackendDHCPCD = "dhcpcd"
)

type LeaseConfig struct {
	DHCP4   BackendConfig `json:"dhcp4,omitempty" yaml:"dhcp4,omitempty" env-prefix:"DHCP4_"`
	DHCP6   BackendConfig `json:"dhcp6,omitempty" yaml:"dhcp6,omitempty" env-prefix:"DHCP6_"`
	PD      BackendConfig `json:"pd,omitempty" yaml:"pd,omitempty" env-prefix:"PD_"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	Retries int           `json:"retries,omitempty" yaml:"retries,omitempty" env:"RETRIES"`
	DHCPCD  DHCPCDConfig  `json:"dhcpcd,omitempty" yaml:"dhcpcd,omitempty" env-prefix:"DHCPCD_"`

	// PersistSessions keeps v6 and PD session identifiers across restarts.
	PersistSessions bool `json:"persist_sessions,omitempty" yaml:"persist_sessions,omitempty" env:"PERSIST_SESSIONS"`
}

type BackendConfig struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty" env:"BACKEND"`
	// PrefixLength is the hint sent in IA_PD and the length assumed when the
	// server reply carries none.
	PrefixLength uint8 `json:"prefix_length,omitempty" yaml:"prefix_length,omitempty" env:"PREFIX_LENGTH"`
}

type DHCPCDConfig struct {
	Binary   string   `json:"binary,omitempty" yaml:"binary,omitempty" env:"BINARY"`
	LeaseDir string   `json:"lease_dir,omitempty" yaml:"lease_dir,omitempty" env:"LEASE_DIR"`
	// RunDir holds dhcpcd's per-interface pidfiles. A restarted daemon only
	// signals a persisted session pid that the pidfile still names.
	RunDir   string   `json:"run_dir,omitempty" yaml:"run_dir,omitempty" env:"RUN_DIR"`
	Args     []string `json:"args,omitempty" yaml:"args,omitempty"`
}

func DefaultLeaseConfig() LeaseConfig {
	return LeaseConfig{
		DHCP4:   BackendConfig{Backend: BackendNative},
		DHCP6:   BackendConfig{Backend: BackendNative, PrefixLength: 64},
		PD:      BackendConfig{Backend: BackendNative, PrefixLength: 64},
		Timeout: 30 * time.Second,
		Retries: 3,
		DHCPCD: DHCPCDConfig{
			Binary:   "dhcpcd",
			LeaseDir: "/var/lib/dhcpcd",
			RunDir:   "/var/run/dhcpcd",
		},
	}
}
