package logger

const (
	Main       = "main"
	Config     = "config"
	Events     = "events"
	Lease      = "lease"
	Binder     = "binder"
	Netd       = "netd"
	Fwmarkd    = "fwmarkd"
	Storage    = "opdb"
	Northbound = "nb"
	Exporter   = "exporter"
	MQTT       = "mqtt"

	LeaseDHCP4 = "lease.dhcp4"
	LeaseDHCP6 = "lease.dhcp6"
	LeasePD    = "lease.pd"
)
