package lease

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetRAFlags(t *testing.T) {
	dir := t.TempDir()
	write := func(iface, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Join(dir, iface), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, iface, "ra_info_flag"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("wlan0", "2\n")
	write("eth0", "9\n")
	write("eth1", "")
	write("eth2", "0")

	a := New(Config{}, nil, nil, nil, WithIPv6ConfDir(dir))

	tests := []struct {
		iface string
		want  int
	}{
		{"wlan0", 2},
		{"eth2", 0},
		{"eth0", RAFlagsInvalid},
		{"eth1", RAFlagsInvalid},
		{"missing0", RAFlagsOpenFailed},
	}
	for _, tt := range tests {
		if got := a.GetRAFlags(tt.iface); got != tt.want {
			t.Errorf("GetRAFlags(%q) = %d, want %d", tt.iface, got, tt.want)
		}
	}

	// A directory opens but cannot be read.
	if err := os.MkdirAll(filepath.Join(dir, "eth3", "ra_info_flag"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := a.GetRAFlags("eth3"); got != RAFlagsReadFailed {
		t.Errorf("GetRAFlags on a directory = %d, want %d", got, RAFlagsReadFailed)
	}
}
