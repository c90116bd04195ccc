package system

import "time"

type APIConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	ListenAddress string        `json:"listen_address,omitempty" yaml:"listen_address,omitempty" env:"LISTEN_ADDRESS"`
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

type ExporterConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty" env:"LISTEN_ADDRESS"`
}

type MQTTConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled" env:"ENABLED"`
	Brokers  []string `json:"brokers,omitempty" yaml:"brokers,omitempty" env:"BROKERS"`
	ClientID string   `json:"client_id,omitempty" yaml:"client_id,omitempty" env:"CLIENT_ID"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty" env:"USERNAME"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty" env:"PASSWORD"`
	Topic    string   `json:"topic,omitempty" yaml:"topic,omitempty" env:"TOPIC"`
	QoS      int      `json:"qos,omitempty" yaml:"qos,omitempty" env:"QOS"`
}
