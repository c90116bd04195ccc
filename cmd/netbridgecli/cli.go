package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

const commandTimeout = 10 * time.Second

type CLI struct {
	client      *Client
	serverAddr  string
	format      OutputFormat
	out         io.Writer
	rl          *readline.Instance
	running     bool
	tree        *CommandTree
	currentLine string
}

func NewCLI(client *Client, serverAddr string, format OutputFormat) *CLI {
	cli := &CLI{
		client:     client,
		serverAddr: serverAddr,
		format:     format,
		out:        os.Stdout,
		running:    true,
		tree:       NewCommandTree(),
	}
	cli.buildTree()
	return cli
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:              "netbridge> ",
		HistoryFile:         os.ExpandEnv("$HOME/.netbridgecli_history"),
		AutoComplete:        c.buildCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: c.filterInputWithHelp,
		Listener:            c,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()
	c.out = c.rl.Stdout()

	c.printBanner()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			} else if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

// Exec runs a single command given on the command line.
func (c *CLI) Exec(args []string) error {
	return c.processCommand(strings.Join(args, " "))
}

func (c *CLI) Stop() {
	c.running = false
}

func (c *CLI) printBanner() {
	fmt.Fprintln(c.out, "=====================================")
	fmt.Fprintln(c.out, "    netbridge Interactive CLI")
	fmt.Fprintln(c.out, "=====================================")
	fmt.Fprintf(c.out, "Connected to: %s\n", c.serverAddr)
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	fmt.Fprintln(c.out, "Type 'exit' or 'quit' to exit")
	fmt.Fprintln(c.out)
}

func (c *CLI) OnChange(line []rune, pos int, key rune) (newLine []rune, newPos int, ok bool) {
	c.currentLine = string(line)
	return nil, 0, false
}

func (c *CLI) filterInputWithHelp(r rune) (rune, bool) {
	switch r {
	case '?':
		fmt.Fprint(c.out, "?\n")
		c.tree.ShowHelp(c.out, c.currentLine)
		c.rl.Write([]byte(c.currentLine))
		return 0, false
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (c *CLI) processCommand(line string) error {
	switch line {
	case "exit", "quit":
		c.Stop()
		return nil
	case "help":
		c.tree.ShowHelp(c.out, "")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	return c.tree.Execute(ctx, c, line)
}

func (c *CLI) print(data any) error {
	s, err := NewFormatter().Format(data, c.format)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, s)
	return nil
}
