package events

// LeaseEvent is published once per lease adapter call.
type LeaseEvent struct {
	Family    string `json:"family"`
	Interface string `json:"interface"`
	Op        string `json:"op"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Result    any    `json:"result,omitempty"`
	// Active is the number of held leases for the family after the call.
	Active int `json:"active"`
}

// BindingEvent is published for every binder call that reaches the daemon.
type BindingEvent struct {
	Op        string `json:"op"`
	NetID     uint32 `json:"net_id"`
	FD        int    `json:"fd,omitempty"`
	Interface string `json:"interface,omitempty"`
	Code      int    `json:"code"`
}
