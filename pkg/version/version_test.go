package version

import "testing"

func TestAPI(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	for in, want := range map[string]string{"dev": "0.0.0", "": "0.0.0", "v1.2.3": "1.2.3", "2.0.0": "2.0.0"} {
		Version = in
		if got := API(); got != want {
			t.Errorf("API() with %q = %q, want %q", in, got, want)
		}
	}
}
