package main

import (
	"github.com/chzyer/readline"
)

func (c *CLI) buildCompleter() readline.AutoCompleter {
	return &treeCompleter{tree: c.tree}
}

type treeCompleter struct {
	tree *CommandTree
}

func (tc *treeCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	input := string(line[:pos])
	completions := tc.tree.GetCompletions(input)
	if len(completions) == 0 {
		return nil, 0
	}

	start := pos
	for start > 0 && line[start-1] != ' ' {
		start--
	}
	partialWord := string(line[start:pos])

	result := make([][]rune, len(completions))
	for i, c := range completions {
		result[i] = []rune(c[len(partialWord):] + " ")
	}
	return result, len([]rune(partialWord))
}
