package system

const (
	StorageDriverSQLite = "sqlite"
	StorageDriverBolt   = "bolt"
)

type StorageConfig struct {
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty" env:"DRIVER"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty" env:"PATH"`
}
