package fwmarkd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/pkg/component"
	"github.com/veesix-networks/netbridge/pkg/fwmark"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

// Marker reads a socket's current mark.
type Marker interface {
	SocketMark(fd int) (fwmark.Mark, error)
}

type Server struct {
	*component.Base
	path   string
	binder *binder.Binder
	marker Marker
	logger *slog.Logger

	mu    sync.Mutex
	ln    *net.UnixListener
	conns map[*net.UnixConn]struct{}
}

// NewServer serves binder operations on the unix socket at path. marker may
// be nil, in which case queries answer -EOPNOTSUPP.
func NewServer(path string, b *binder.Binder, marker Marker) *Server {
	return &Server{
		Base:   component.NewBase("fwmarkd"),
		path:   path,
		binder: b,
		marker: marker,
		logger: logger.Get(logger.Fwmarkd),
		conns:  make(map[*net.UnixConn]struct{}),
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.StartContext(ctx)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.path, Net: "unix"})
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o666); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("fwmarkd listening", "path", s.path)
	s.Go(func() { s.accept(ln) })
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.ln != nil {
		s.ln.Close()
		s.ln = nil
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.StopContext()
	os.Remove(s.path)
	s.logger.Info("fwmarkd stopped")
	return nil
}

func (s *Server) accept(ln *net.UnixListener) {
	for {
		conn, err := ln.AcceptUnix()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("Accept failed", "error", err)
			}
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.Go(func() {
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
			}()
			s.serve(conn)
		})
	}
}

// serve answers requests on conn until the peer hangs up. Every request
// carries exactly one fd.
func (s *Server) serve(conn *net.UnixConn) {
	buf := make([]byte, requestLen)
	oob := make([]byte, unix.CmsgSpace(4*4))

	for {
		n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("Read failed", "error", err)
			}
			return
		}
		if n == 0 {
			return
		}

		fds, err := receivedFds(oob[:oobn])
		if err != nil {
			s.logger.Warn("Bad control message", "error", err)
		}

		resp := s.handle(buf[:n], fds)
		for _, fd := range fds {
			unix.Close(fd)
		}

		if _, err := conn.Write(resp.marshal()); err != nil {
			s.logger.Debug("Write failed", "error", err)
			return
		}
	}
}

func receivedFds(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("parse control message: %w", err)
	}
	var fds []int
	for i := range msgs {
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

func (s *Server) handle(b []byte, fds []int) response {
	req, err := parseRequest(b)
	if err != nil {
		return response{Code: -int32(syscall.EINVAL)}
	}
	if len(fds) != 1 {
		return response{Code: -int32(syscall.EBADF)}
	}
	fd := fds[0]

	var resp response
	switch req.Command {
	case CommandBind:
		resp.Code = int32(s.binder.BindSocketToNetwork(fd, req.NetID))
	case CommandProtect:
		resp.Code = int32(s.binder.ProtectSocket(fd))
	case CommandQuery:
		if s.marker == nil {
			resp.Code = -int32(syscall.EOPNOTSUPP)
			break
		}
		m, err := s.marker.SocketMark(fd)
		resp.Code = int32(netd.Code(err))
		resp.Mark = m.Value()
	default:
		resp.Code = -int32(syscall.EINVAL)
	}

	s.logger.Debug("Handled request", "command", req.Command, "net_id", req.NetID, "code", resp.Code)
	return resp
}
