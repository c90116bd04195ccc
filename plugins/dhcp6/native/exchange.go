// Package native runs DHCPv6 address and prefix delegation exchanges
// in-process with nclient6.
package native

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/dhcpv6/nclient6"
	"github.com/insomniacslk/dhcp/iana"

	"github.com/veesix-networks/netbridge/pkg/dhcp"
)

type exchanger interface {
	Solicit(ctx context.Context, modifiers ...dhcpv6.Modifier) (*dhcpv6.Message, error)
	SendAndRead(ctx context.Context, dest *net.UDPAddr, msg *dhcpv6.Message, expect nclient6.Matcher) (*dhcpv6.Message, error)
	Close() error
}

// pdIAID is the identity association used for delegated prefixes.
var pdIAID = [4]byte{0, 0, 0, 1}

type exchange struct {
	timeout time.Duration
	retries int
	logger  *slog.Logger

	dial func(iface string) (exchanger, error)
}

func (e *exchange) newClient(iface string) (exchanger, error) {
	var opts []nclient6.ClientOpt
	if e.timeout > 0 {
		opts = append(opts, nclient6.WithTimeout(e.timeout))
	}
	if e.retries > 0 {
		opts = append(opts, nclient6.WithRetry(e.retries))
	}
	c, err := nclient6.New(iface, opts...)
	if err != nil {
		return nil, fmt.Errorf("create DHCPv6 client on %s: %w", iface, err)
	}
	return c, nil
}

// withoutIANA drops the IA_NA that NewSolicit always adds, for prefix-only
// solicits.
func withoutIANA() dhcpv6.Modifier {
	return func(d dhcpv6.DHCPv6) {
		if msg, ok := d.(*dhcpv6.Message); ok {
			msg.Options.Del(dhcpv6.OptionIANA)
		}
	}
}

// acquire runs SOLICIT/ADVERTISE/REQUEST/REPLY.
func (e *exchange) acquire(ctx context.Context, iface string, mods ...dhcpv6.Modifier) (*dhcpv6.Message, error) {
	c, err := e.dial(iface)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	adv, err := c.Solicit(ctx, mods...)
	if err != nil {
		return nil, fmt.Errorf("DHCPv6 solicit on %s: %w", iface, err)
	}
	if err := checkStatus(adv); err != nil {
		return nil, err
	}

	req, err := followUp(dhcpv6.MessageTypeRequest, adv)
	if err != nil {
		return nil, err
	}
	reply, err := c.SendAndRead(ctx, nclient6.AllDHCPRelayAgentsAndServers, req, nclient6.IsMessageType(dhcpv6.MessageTypeReply))
	if err != nil {
		return nil, fmt.Errorf("DHCPv6 request on %s: %w", iface, err)
	}
	if err := checkStatus(reply); err != nil {
		return nil, err
	}

	e.logger.Debug("Received REPLY", "interface", iface, "server_id", reply.Options.ServerID())
	return reply, nil
}

// send issues a RENEW or RELEASE built from the session's last reply.
func (e *exchange) send(ctx context.Context, iface string, msgType dhcpv6.MessageType, sessionID string) (*dhcpv6.Message, error) {
	prev, err := decodeSession(sessionID)
	if err != nil {
		return nil, err
	}
	msg, err := followUp(msgType, prev)
	if err != nil {
		return nil, err
	}

	c, err := e.dial(iface)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reply, err := c.SendAndRead(ctx, nclient6.AllDHCPRelayAgentsAndServers, msg, nclient6.IsMessageType(dhcpv6.MessageTypeReply))
	if err != nil {
		return nil, fmt.Errorf("DHCPv6 %s on %s: %w", strings.ToLower(msgType.String()), iface, err)
	}
	if err := checkStatus(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// followUp builds a client message that continues the exchange in prev,
// carrying over the client and server IDs and the identity associations.
func followUp(msgType dhcpv6.MessageType, prev *dhcpv6.Message) (*dhcpv6.Message, error) {
	cid := prev.Options.ClientID()
	if cid == nil {
		return nil, fmt.Errorf("DHCPv6 %s: previous message has no client ID", msgType)
	}
	sid := prev.Options.ServerID()
	if sid == nil {
		return nil, fmt.Errorf("DHCPv6 %s: previous message has no server ID", msgType)
	}

	msg, err := dhcpv6.NewMessage()
	if err != nil {
		return nil, err
	}
	msg.MessageType = msgType
	msg.AddOption(dhcpv6.OptClientID(cid))
	msg.AddOption(dhcpv6.OptServerID(sid))
	msg.AddOption(dhcpv6.OptElapsedTime(0))
	if ia := prev.Options.OneIANA(); ia != nil {
		msg.AddOption(ia)
	}
	if ia := prev.Options.OneIAPD(); ia != nil {
		msg.AddOption(ia)
	}
	if msgType != dhcpv6.MessageTypeRelease {
		msg.AddOption(dhcpv6.OptRequestedOption(dhcpv6.OptionDNSRecursiveNameServer, dhcpv6.OptionDomainSearchList))
	}
	return msg, nil
}

func checkStatus(msg *dhcpv6.Message) error {
	st := msg.Options.Status()
	if st == nil || st.StatusCode == iana.StatusSuccess {
		return nil
	}
	text := st.StatusMessage
	if text == "" {
		text = st.StatusCode.String()
	}
	return dhcp.Failure(int(st.StatusCode), "%s", text)
}

// The session ID is the last REPLY in hex, which is everything a later
// RENEW or RELEASE needs, including after a restart.
func encodeSession(reply *dhcpv6.Message) string {
	return hex.EncodeToString(reply.ToBytes())
}

func decodeSession(sessionID string) (*dhcpv6.Message, error) {
	data, err := hex.DecodeString(sessionID)
	if err != nil {
		return nil, fmt.Errorf("malformed DHCPv6 session: %w", err)
	}
	msg, err := dhcpv6.MessageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("malformed DHCPv6 session: %w", err)
	}
	return msg, nil
}

func seconds(d time.Duration) uint32 {
	return uint32(d / time.Second)
}
