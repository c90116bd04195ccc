package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

type CommandHandler func(ctx context.Context, cli *CLI, args []string) error

// Argument is a positional value a command expects. Values are offered
// for completion and enforced on execution; Suggest is completion only.
type Argument struct {
	Name        string
	Description string
	Values      []string
	Suggest     []string
}

type CommandNode struct {
	Name        string
	Description string
	Handler     CommandHandler
	Children    []*CommandNode
	Arguments   []*Argument
}

func (n *CommandNode) child(name string) *CommandNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type CommandTree struct {
	root *CommandNode
}

func NewCommandTree() *CommandTree {
	return &CommandTree{root: &CommandNode{Name: "root"}}
}

func (t *CommandTree) AddRoot(path []string, description string) {
	current := t.root
	for _, part := range path {
		next := current.child(part)
		if next == nil {
			next = &CommandNode{Name: part}
			current.Children = append(current.Children, next)
		}
		current = next
	}
	if current.Description == "" {
		current.Description = description
	}
}

func (t *CommandTree) AddCommand(path []string, description string, handler CommandHandler, args ...*Argument) {
	current := t.root
	for _, part := range path {
		next := current.child(part)
		if next == nil {
			next = &CommandNode{Name: part}
			current.Children = append(current.Children, next)
		}
		current = next
	}
	current.Description = description
	current.Handler = handler
	current.Arguments = args
}

// resolve walks tokens down the tree and returns the deepest node matched
// along with the number of tokens consumed.
func (t *CommandTree) resolve(tokens []string) (*CommandNode, int) {
	current := t.root
	for i, token := range tokens {
		next := current.child(token)
		if next == nil {
			return current, i
		}
		current = next
	}
	return current, len(tokens)
}

func (t *CommandTree) Execute(ctx context.Context, cli *CLI, input string) error {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return nil
	}

	node, depth := t.resolve(tokens)
	if node == t.root {
		return fmt.Errorf("unrecognized command: %s", tokens[0])
	}
	if node.Handler == nil {
		if depth < len(tokens) {
			return fmt.Errorf("unrecognized command: %s", strings.Join(tokens[:depth+1], " "))
		}
		return fmt.Errorf("incomplete command")
	}

	args := tokens[depth:]
	if err := validateArguments(node, args); err != nil {
		return err
	}
	return node.Handler(ctx, cli, args)
}

func validateArguments(cmd *CommandNode, args []string) error {
	if len(args) < len(cmd.Arguments) {
		missing := make([]string, 0, len(cmd.Arguments)-len(args))
		for _, a := range cmd.Arguments[len(args):] {
			missing = append(missing, a.Name)
		}
		if len(missing) == 1 {
			return fmt.Errorf("%s required", missing[0])
		}
		return fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}
	if len(args) > len(cmd.Arguments) {
		return fmt.Errorf("unexpected argument: %s", args[len(cmd.Arguments)])
	}

	for i, a := range cmd.Arguments {
		if len(a.Values) == 0 {
			continue
		}
		if !contains(a.Values, args[i]) {
			return fmt.Errorf("invalid %s %q, expected one of: %s", a.Name, args[i], strings.Join(a.Values, ", "))
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func (t *CommandTree) GetCompletions(input string) []string {
	tokens := strings.Fields(input)
	endsWithSpace := len(input) > 0 && input[len(input)-1] == ' '

	prefix := ""
	if !endsWithSpace && len(tokens) > 0 {
		prefix = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	node, depth := t.resolve(tokens)
	var candidates []string

	if depth == len(tokens) {
		for _, c := range node.Children {
			candidates = append(candidates, c.Name)
		}
	}
	if node.Handler != nil {
		pos := len(tokens) - depth
		if pos < len(node.Arguments) {
			candidates = append(candidates, node.Arguments[pos].Values...)
			candidates = append(candidates, node.Arguments[pos].Suggest...)
		}
	}

	var completions []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			completions = append(completions, c)
		}
	}
	sort.Strings(completions)
	return completions
}

func (t *CommandTree) ShowHelp(w io.Writer, input string) {
	tokens := strings.Fields(input)
	node, _ := t.resolve(tokens)

	if node.Handler != nil {
		fmt.Fprintf(w, "  %s\n", node.Description)
		for _, a := range node.Arguments {
			values := ""
			if len(a.Values) > 0 {
				values = " (" + strings.Join(a.Values, "|") + ")"
			} else if len(a.Suggest) > 0 {
				values = " (e.g. " + strings.Join(a.Suggest, "|") + ")"
			}
			fmt.Fprintf(w, "    <%s>%s  %s\n", a.Name, values, a.Description)
		}
	}

	for _, c := range node.Children {
		fmt.Fprintf(w, "  %-12s %s\n", c.Name, c.Description)
	}
	if node == t.root {
		fmt.Fprintf(w, "  %-12s %s\n", "exit", "Exit the CLI")
	}
}
