package system

type LoggingConfig struct {
	Format     string            `json:"format,omitempty" yaml:"format,omitempty" env:"FORMAT"`
	Level      string            `json:"level,omitempty" yaml:"level,omitempty" env:"LEVEL"`
	Components map[string]string `json:"components,omitempty" yaml:"components,omitempty"`
}
