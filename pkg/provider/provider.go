package provider

type Info struct {
	Name    string
	Version string
	Author  string
}

// Provider is implemented by every pluggable backend.
type Provider interface {
	Info() Info
}
