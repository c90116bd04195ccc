// Package all links every built-in plugin into the binary.
package all

import (
	_ "github.com/veesix-networks/netbridge/plugins/dhcp4/dhcpcd"
	_ "github.com/veesix-networks/netbridge/plugins/dhcp4/native"
	_ "github.com/veesix-networks/netbridge/plugins/dhcp6/dhcpcd"
	_ "github.com/veesix-networks/netbridge/plugins/dhcp6/native"
	_ "github.com/veesix-networks/netbridge/plugins/events/mqtt"
	_ "github.com/veesix-networks/netbridge/plugins/exporter/prometheus"
	_ "github.com/veesix-networks/netbridge/plugins/northbound/api"
)
