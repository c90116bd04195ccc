package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/plugins/northbound/api"
)

func TestFormatSessionsTable(t *testing.T) {
	sessions := []lease.Session{{
		Family:    dhcp.FamilyV6,
		Interface: "wlan0",
		SessionID: "0123456789abcdef0123",
		Result: dhcp.ResultRecord{
			IPAddress:            "2001:db8::10",
			PrefixLength:         64,
			LeaseDurationSeconds: 3600,
		},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	out, err := NewFormatter().Format(sessions, FormatCLI)
	require.NoError(t, err)
	assert.Contains(t, out, "FAMILY")
	assert.Contains(t, out, "2001:db8::10/64")
	assert.Contains(t, out, "0123456789abcdef...")
	assert.Contains(t, out, "3600s")
	assert.Contains(t, out, "2026-01-02 03:04:05")

	out, err = NewFormatter().Format([]lease.Session{}, FormatCLI)
	require.NoError(t, err)
	assert.Equal(t, "No active sessions\n", out)
}

func TestFormatYAMLUsesJSONNames(t *testing.T) {
	out, err := NewFormatter().Format(api.NetworkResponse{Process: 100, Resolver: 0}, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "process: 100\nresolver: 0\n", out)

	_, err = NewFormatter().Format(nil, OutputFormat("xml"))
	assert.EqualError(t, err, "unsupported format: xml")
}
