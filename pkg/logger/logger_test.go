package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestComponentLevelInheritance(t *testing.T) {
	Configure("text", LogLevelWarn, map[string]LogLevel{
		Lease: LogLevelDebug,
	})
	t.Cleanup(func() { Configure("text", LogLevelInfo, nil) })

	var buf bytes.Buffer
	SetOutput(&buf)

	Get(LeaseDHCP4).Debug("Lease staged", "interface", "eth0")
	Get(Binder).Info("Bound process")

	out := buf.String()
	if !strings.Contains(out, "[lease.dhcp4] Lease staged interface=eth0") {
		t.Fatalf("expected debug line from lease.dhcp4, got %q", out)
	}
	if strings.Contains(out, "Bound process") {
		t.Fatalf("binder info should be filtered at warn, got %q", out)
	}
}

func TestJSONFormatAddsComponent(t *testing.T) {
	Configure("json", LogLevelInfo, nil)
	t.Cleanup(func() { Configure("text", LogLevelInfo, nil) })

	var buf bytes.Buffer
	SetOutput(&buf)

	Get(Netd).Info("Rule installed", "priority", 11000)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v (%q)", err, buf.String())
	}
	if rec["component"] != Netd {
		t.Fatalf("expected component %q, got %v", Netd, rec["component"])
	}
	if rec["msg"] != "Rule installed" {
		t.Fatalf("unexpected msg: %v", rec["msg"])
	}
}

func TestWithLease(t *testing.T) {
	Configure("text", LogLevelInfo, nil)

	var buf bytes.Buffer
	SetOutput(&buf)

	l := WithLease(Get(Lease), LeaseAttrs{Family: "v6", Interface: "wlan0", SessionID: "42"})
	l.Info("Renewed")

	out := buf.String()
	for _, want := range []string{"family=v6", "interface=wlan0", "session_id=42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "op=") {
		t.Fatalf("empty attrs should be omitted: %q", out)
	}
}

func TestComponentLevelsRoundTrip(t *testing.T) {
	Configure("text", LogLevelInfo, nil)
	SetComponentLevel(MQTT, LogLevelError)

	if got := GetComponentLevels()[MQTT]; got != LogLevelError {
		t.Fatalf("expected error level for mqtt, got %q", got)
	}

	ClearComponentLevel(MQTT)
	if _, ok := GetComponentLevels()[MQTT]; ok {
		t.Fatal("expected mqtt level to be cleared")
	}
	if GetDefaultLevel() != LogLevelInfo {
		t.Fatalf("unexpected default level %q", GetDefaultLevel())
	}
}
