package netd

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{NewErrno("bind", syscall.EBADF), -int(syscall.EBADF)},
		{fmt.Errorf("wrapped: %w", NewErrno("bind", syscall.ENONET)), -int(syscall.ENONET)},
		{syscall.EPERM, -int(syscall.EPERM)},
		{errors.New("opaque"), -int(syscall.EIO)},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFromCode(t *testing.T) {
	if FromCode("x", 0) != nil {
		t.Fatal("zero code must be nil")
	}
	err := FromCode("bind", -int(syscall.ENONET))
	if !errors.Is(err, syscall.ENONET) || Code(err) != -int(syscall.ENONET) {
		t.Fatalf("unexpected %v", err)
	}
}

func TestResetMask(t *testing.T) {
	if !ResetAllAddresses.IPv4() || !ResetAllAddresses.IPv6() || ResetAllAddresses.IgnoreInterfaceAddress() {
		t.Fatal("ResetAllAddresses should select both families only")
	}
	m := ResetIPv6Addresses | ResetIgnoreInterfaceAddress
	if m.IPv4() || !m.IPv6() || !m.IgnoreInterfaceAddress() {
		t.Fatalf("unexpected decode of 0x%x", uint32(m))
	}
}

func TestParseResetMask(t *testing.T) {
	tests := []struct {
		in   string
		want ResetMask
		err  bool
	}{
		{"all", ResetAllAddresses, false},
		{"v4", ResetIPv4Addresses, false},
		{"v6+any", ResetIPv6Addresses | ResetIgnoreInterfaceAddress, false},
		{"0x03", ResetAllAddresses, false},
		{"7", ResetAllAddresses | ResetIgnoreInterfaceAddress, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseResetMask(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseResetMask(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseResetMask(%q) = 0x%x, want 0x%x", tt.in, uint32(got), uint32(tt.want))
		}
	}
	if s := (ResetAllAddresses | ResetIgnoreInterfaceAddress).String(); s != "all+any" {
		t.Errorf("String() = %q", s)
	}
}
