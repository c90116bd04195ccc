// Package fwmarkd lets processes without CAP_NET_ADMIN bind and protect
// their sockets. The socket itself travels over a unix socket as SCM_RIGHTS.
package fwmarkd

import (
	"encoding/binary"
	"fmt"
)

type Command uint32

const (
	CommandBind Command = iota + 1
	CommandProtect
	CommandQuery
)

func (c Command) String() string {
	switch c {
	case CommandBind:
		return "bind"
	case CommandProtect:
		return "protect"
	case CommandQuery:
		return "query"
	}
	return fmt.Sprintf("command(%d)", uint32(c))
}

const (
	requestLen  = 8
	responseLen = 8
)

// request is {command, netID}, big endian.
type request struct {
	Command Command
	NetID   uint32
}

func (r request) marshal() []byte {
	b := make([]byte, requestLen)
	binary.BigEndian.PutUint32(b[0:4], uint32(r.Command))
	binary.BigEndian.PutUint32(b[4:8], r.NetID)
	return b
}

func parseRequest(b []byte) (request, error) {
	if len(b) != requestLen {
		return request{}, fmt.Errorf("request is %d bytes, want %d", len(b), requestLen)
	}
	return request{
		Command: Command(binary.BigEndian.Uint32(b[0:4])),
		NetID:   binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// response is {code, mark}. code is 0 or -errno; mark is only set for
// CommandQuery.
type response struct {
	Code int32
	Mark uint32
}

func (r response) marshal() []byte {
	b := make([]byte, responseLen)
	binary.BigEndian.PutUint32(b[0:4], uint32(r.Code))
	binary.BigEndian.PutUint32(b[4:8], r.Mark)
	return b
}

func parseResponse(b []byte) (response, error) {
	if len(b) != responseLen {
		return response{}, fmt.Errorf("response is %d bytes, want %d", len(b), responseLen)
	}
	return response{
		Code: int32(binary.BigEndian.Uint32(b[0:4])),
		Mark: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}
