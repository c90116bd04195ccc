package dhcp

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrEmptyInterface   = errors.New("interface name is empty")
	ErrUnknownInterface = errors.New("interface not found")
	ErrNoSession        = errors.New("no lease session for interface")
	ErrAssembly         = errors.New("lease result assembly failed")
	ErrUnsupported      = errors.New("operation not supported by backend")
)

// ClientError is a non-zero answer from the DHCP client. It carries the
// client's message so callers do not depend on the shared LastError slot.
type ClientError struct {
	Family    Family
	Interface string
	Op        Op
	Code      int
	Message   string
	Err       error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("dhcp %s %s on %s failed (code %d): %s", e.Family, e.Op, e.Interface, e.Code, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError normalises a backend failure. Code and Message from an
// existing ClientError are kept; errno values become their numeric code.
func NewClientError(family Family, op Op, iface string, err error) *ClientError {
	ce := &ClientError{
		Family:    family,
		Interface: iface,
		Op:        op,
		Code:      1,
		Err:       err,
	}

	var inner *ClientError
	var errno syscall.Errno
	switch {
	case errors.As(err, &inner):
		ce.Code = inner.Code
		ce.Message = inner.Message
		ce.Err = inner.Err
	case errors.As(err, &errno):
		ce.Code = int(errno)
		ce.Message = err.Error()
	case err != nil:
		ce.Message = err.Error()
	}

	if ce.Message == "" {
		ce.Message = fmt.Sprintf("%s %s failed with code %d", family, op, ce.Code)
	}
	return ce
}

// Failure is what backends return for a non-zero client answer.
func Failure(code int, format string, args ...any) *ClientError {
	return &ClientError{Code: code, Message: fmt.Sprintf(format, args...)}
}
