package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/plugins/northbound/api"
)

// Client talks to the netbridged northbound API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{},
	}
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
	Code    int
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d, http %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (http %d)", e.Message, e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error, Code: e.Code}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Lease(ctx context.Context, family, iface, op string) (*api.LeaseResponse, error) {
	var out api.LeaseResponse
	path := fmt.Sprintf("/api/lease/%s/%s/%s", url.PathEscape(family), url.PathEscape(iface), url.PathEscape(op))
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LastError(ctx context.Context, family string) (*api.LastErrorResponse, error) {
	var out api.LastErrorResponse
	if err := c.do(ctx, http.MethodGet, "/api/lease/"+url.PathEscape(family)+"/error", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sessions(ctx context.Context) ([]lease.Session, error) {
	var out []lease.Session
	if err := c.do(ctx, http.MethodGet, "/api/lease/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RAFlags(ctx context.Context, iface string) (*api.RAFlagsResponse, error) {
	var out api.RAFlagsResponse
	if err := c.do(ctx, http.MethodGet, "/api/interface/"+url.PathEscape(iface)+"/raflags", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Networks(ctx context.Context) (*api.NetworkResponse, error) {
	var out api.NetworkResponse
	if err := c.do(ctx, http.MethodGet, "/api/network/process", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BindProcess(ctx context.Context, netID uint32) (*api.BindResponse, error) {
	return c.bind(ctx, "/api/network/process", netID)
}

func (c *Client) BindResolver(ctx context.Context, netID uint32) (*api.BindResponse, error) {
	return c.bind(ctx, "/api/network/resolver", netID)
}

func (c *Client) bind(ctx context.Context, path string, netID uint32) (*api.BindResponse, error) {
	var out api.BindResponse
	if err := c.do(ctx, http.MethodPost, path, api.NetworkRequest{NetID: netID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reset(ctx context.Context, iface, mask string) (*api.ResetResponse, error) {
	var out api.ResetResponse
	if err := c.do(ctx, http.MethodPost, "/api/network/reset", api.ResetRequest{Interface: iface, Mask: mask}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
