package lease

import (
	"io"
	"os"
	"path/filepath"
)

const DefaultIPv6ConfDir = "/proc/sys/net/ipv6/conf"

// GetRAFlags results below zero.
const (
	RAFlagsOpenFailed = -1
	RAFlagsReadFailed = -2
	RAFlagsInvalid    = -3
)

// WithIPv6ConfDir overrides the sysctl directory holding per-interface
// ra_info_flag files.
func WithIPv6ConfDir(dir string) Option {
	return func(a *Adapter) { a.ipv6ConfDir = dir }
}

// GetRAFlags reports the router advertisement flags the kernel recorded for
// iface: 0 to 4 on success, otherwise one of the RAFlags* codes.
func (a *Adapter) GetRAFlags(iface string) int {
	path := filepath.Join(a.ipv6ConfDir, iface, "ra_info_flag")
	f, err := os.Open(path)
	if err != nil {
		a.logger.Error("Cannot open RA flags", "path", path, "error", err)
		return RAFlagsOpenFailed
	}
	defer f.Close()

	var b [1]byte
	if _, err := io.ReadFull(f, b[:]); err != nil {
		if err == io.EOF {
			a.logger.Error("RA flags file is empty", "path", path)
			return RAFlagsInvalid
		}
		a.logger.Error("Cannot read RA flags", "path", path, "error", err)
		return RAFlagsReadFailed
	}

	if b[0] < '0' || b[0] > '4' {
		a.logger.Error("Unexpected RA flags value", "path", path, "value", b[0])
		return RAFlagsInvalid
	}
	flags := int(b[0] - '0')
	a.logger.Debug("Read RA flags", "interface", iface, "flags", flags)
	return flags
}
