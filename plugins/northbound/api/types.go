package api

import "github.com/veesix-networks/netbridge/pkg/dhcp"

type Status struct {
	State         string `json:"state"`
	ListenAddress string `json:"listen_address"`
	Running       bool   `json:"running"`
	Version       string `json:"version"`
}

type LeaseResponse struct {
	Family    string             `json:"family"`
	Interface string             `json:"interface"`
	Op        string             `json:"op"`
	Success   bool               `json:"success"`
	Result    *dhcp.ResultRecord `json:"result,omitempty"`
}

type LastErrorResponse struct {
	Family    string `json:"family"`
	LastError string `json:"last_error"`
}

// RAFlagsResponse carries 0 to 4, or a negative code when the kernel
// value could not be read.
type RAFlagsResponse struct {
	Interface string `json:"interface"`
	Flags     int    `json:"flags"`
}

type NetworkRequest struct {
	NetID uint32 `json:"net_id"`
}

type BindResponse struct {
	NetID   uint32 `json:"net_id"`
	Success bool   `json:"success"`
}

type NetworkResponse struct {
	Process  uint32 `json:"process"`
	Resolver uint32 `json:"resolver"`
}

type ResetRequest struct {
	Interface string `json:"interface"`
	Mask      string `json:"mask"`
}

// ResetResponse carries either the number of sockets destroyed or the
// daemon's negative code.
type ResetResponse struct {
	Interface string `json:"interface"`
	Mask      string `json:"mask"`
	Count     int    `json:"count"`
	Code      int    `json:"code"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}
