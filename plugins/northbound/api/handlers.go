package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veesix-networks/netbridge/pkg/dhcp"
	"github.com/veesix-networks/netbridge/pkg/netd"
)

func (c *Component) handleLease(w http.ResponseWriter, r *http.Request) {
	family, err := dhcp.ParseFamily(r.PathValue("family"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error(), 0)
		return
	}
	op, err := dhcp.ParseOp(r.PathValue("op"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error(), 0)
		return
	}
	iface := r.PathValue("iface")

	ctx := r.Context()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := c.lease.Do(ctx, family, op, iface)
	if err != nil {
		c.logger.Debug("Lease call failed", "family", family, "op", op, "interface", iface, "error", err)
		c.writeLeaseError(w, err)
		return
	}

	resp := LeaseResponse{
		Family:    family.String(),
		Interface: iface,
		Op:        string(op),
		Success:   true,
	}
	if res != nil {
		rec := res.Record()
		resp.Result = &rec
	}
	c.writeJSON(w, http.StatusOK, resp)
}

func (c *Component) writeLeaseError(w http.ResponseWriter, err error) {
	var ce *dhcp.ClientError
	switch {
	case errors.Is(err, dhcp.ErrEmptyInterface):
		c.writeError(w, http.StatusBadRequest, err.Error(), 0)
	case errors.Is(err, dhcp.ErrUnknownInterface):
		c.writeError(w, http.StatusNotFound, err.Error(), 0)
	case errors.Is(err, dhcp.ErrNoSession):
		c.writeError(w, http.StatusConflict, err.Error(), 0)
	case errors.Is(err, dhcp.ErrUnsupported):
		c.writeError(w, http.StatusNotImplemented, err.Error(), 0)
	case errors.As(err, &ce):
		c.writeError(w, http.StatusBadGateway, ce.Message, ce.Code)
	case errors.Is(err, dhcp.ErrAssembly):
		c.writeError(w, http.StatusBadGateway, err.Error(), 0)
	default:
		c.writeError(w, http.StatusInternalServerError, err.Error(), 0)
	}
}

func (c *Component) handleLastError(w http.ResponseWriter, r *http.Request) {
	family, err := dhcp.ParseFamily(r.PathValue("family"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error(), 0)
		return
	}
	c.writeJSON(w, http.StatusOK, LastErrorResponse{
		Family:    family.String(),
		LastError: c.lease.GetLastError(family),
	})
}

func (c *Component) handleSessions(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, c.lease.Sessions())
}

func (c *Component) handleRAFlags(w http.ResponseWriter, r *http.Request) {
	iface := r.PathValue("iface")
	c.writeJSON(w, http.StatusOK, RAFlagsResponse{
		Interface: iface,
		Flags:     c.lease.GetRAFlags(iface),
	})
}

func (c *Component) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, NetworkResponse{
		Process:  c.binder.GetProcessBoundNetwork(),
		Resolver: c.binder.GetResolverBoundNetwork(),
	})
}

func (c *Component) handleBindProcess(w http.ResponseWriter, r *http.Request) {
	var req NetworkRequest
	if !c.decode(w, r, &req) {
		return
	}
	c.writeJSON(w, http.StatusOK, BindResponse{
		NetID:   req.NetID,
		Success: c.binder.BindProcessToNetwork(req.NetID),
	})
}

func (c *Component) handleBindResolver(w http.ResponseWriter, r *http.Request) {
	var req NetworkRequest
	if !c.decode(w, r, &req) {
		return
	}
	c.writeJSON(w, http.StatusOK, BindResponse{
		NetID:   req.NetID,
		Success: c.binder.BindResolverToNetwork(req.NetID),
	})
}

func (c *Component) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !c.decode(w, r, &req) {
		return
	}
	mask := netd.ResetAllAddresses
	if req.Mask != "" {
		m, err := netd.ParseResetMask(req.Mask)
		if err != nil {
			c.writeError(w, http.StatusBadRequest, err.Error(), 0)
			return
		}
		mask = m
	}

	resp := ResetResponse{Interface: req.Interface, Mask: mask.String()}
	if n := c.binder.ResetConnections(req.Interface, mask); n < 0 {
		resp.Code = n
	} else {
		resp.Count = n
	}
	c.writeJSON(w, http.StatusOK, resp)
}

func (c *Component) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid JSON body", 0)
		return false
	}
	return true
}

func (c *Component) writeError(w http.ResponseWriter, status int, message string, code int) {
	c.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func (c *Component) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(v)
}
