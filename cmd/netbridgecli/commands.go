package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/veesix-networks/netbridge/pkg/dhcp"
)

var (
	familyArg = &Argument{Name: "family", Description: "Address family", Values: familyValues()}
	ifaceArg  = &Argument{Name: "interface", Description: "Interface name"}
	netIDArg  = &Argument{Name: "net-id", Description: "Network ID, 0 for the default network"}
	maskArg   = &Argument{Name: "mask", Description: "Reset mask, numeric or +-joined", Suggest: []string{"v4", "v6", "all", "any", "all+any"}}
)

func familyValues() []string {
	out := make([]string, 0, len(dhcp.Families))
	for _, f := range dhcp.Families {
		out = append(out, f.String())
	}
	return out
}

func (c *CLI) buildTree() {
	t := c.tree

	t.AddRoot([]string{"lease"}, "DHCP lease operations")
	for _, op := range []string{"request", "renew", "stop", "release"} {
		t.AddCommand([]string{"lease", op}, "Run a lease "+op, leaseOp(op), familyArg, ifaceArg)
	}
	t.AddCommand([]string{"lease", "error"}, "Show the last lease error", cmdLastError, familyArg)
	t.AddCommand([]string{"lease", "sessions"}, "Show active lease sessions", cmdSessions)
	t.AddCommand([]string{"lease", "raflags"}, "Show IPv6 router advertisement flags", cmdRAFlags, ifaceArg)

	t.AddRoot([]string{"network"}, "Network binding")
	t.AddCommand([]string{"network", "bind"}, "Bind the daemon process to a network", cmdBindProcess, netIDArg)
	t.AddCommand([]string{"network", "resolver"}, "Bind the resolver to a network", cmdBindResolver, netIDArg)
	t.AddCommand([]string{"network", "show"}, "Show bound networks", cmdShowNetworks)

	t.AddCommand([]string{"reset"}, "Destroy sockets on an interface", cmdReset, ifaceArg, maskArg)
}

func leaseOp(op string) CommandHandler {
	return func(ctx context.Context, cli *CLI, args []string) error {
		resp, err := cli.client.Lease(ctx, args[0], args[1], op)
		if err != nil {
			return err
		}
		return cli.print(resp)
	}
}

func cmdLastError(ctx context.Context, cli *CLI, args []string) error {
	resp, err := cli.client.LastError(ctx, args[0])
	if err != nil {
		return err
	}
	return cli.print(resp)
}

func cmdSessions(ctx context.Context, cli *CLI, args []string) error {
	sessions, err := cli.client.Sessions(ctx)
	if err != nil {
		return err
	}
	return cli.print(sessions)
}

func cmdRAFlags(ctx context.Context, cli *CLI, args []string) error {
	resp, err := cli.client.RAFlags(ctx, args[0])
	if err != nil {
		return err
	}
	return cli.print(resp)
}

func parseNetID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid net-id %q", s)
	}
	return uint32(id), nil
}

func cmdBindProcess(ctx context.Context, cli *CLI, args []string) error {
	id, err := parseNetID(args[0])
	if err != nil {
		return err
	}
	resp, err := cli.client.BindProcess(ctx, id)
	if err != nil {
		return err
	}
	return cli.print(resp)
}

func cmdBindResolver(ctx context.Context, cli *CLI, args []string) error {
	id, err := parseNetID(args[0])
	if err != nil {
		return err
	}
	resp, err := cli.client.BindResolver(ctx, id)
	if err != nil {
		return err
	}
	return cli.print(resp)
}

func cmdShowNetworks(ctx context.Context, cli *CLI, args []string) error {
	resp, err := cli.client.Networks(ctx)
	if err != nil {
		return err
	}
	return cli.print(resp)
}

func cmdReset(ctx context.Context, cli *CLI, args []string) error {
	resp, err := cli.client.Reset(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return cli.print(resp)
}
