package loaders

import (
	"fmt"

	"github.com/rnafold/rnafold/sstruct"
)

// pairTable matches brackets into a 0-based pair table, the same
// stack-based walk as dot_bracket_parser.go's pairTable: push an open
// bracket's index, pop and link on a matching close, error on imbalance.
func pairTable(structure string) ([]int, error) {
	table := make([]int, len(structure))
	stack := make([]int, 0, len(structure))

	for i := 0; i < len(structure); i++ {
		switch structure[i] {
		case '(':
			stack = append(stack, i)
			table[i] = -1
		case ')':
			if len(stack) == 0 {
				return nil, fmt.Errorf("loaders: unbalanced ')' at position %d in %q", i, structure)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			table[i] = open
			table[open] = i
		case '.':
			table[i] = -1
		default:
			return nil, fmt.Errorf("loaders: invalid dot-bracket character %q at position %d", structure[i], i)
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("loaders: unbalanced '(' in %q", structure)
	}
	return table, nil
}

// ParseDotBracket converts a dot-bracket string into a 1-indexed
// sstruct.Mapping (spec.md §3's pair-mapping convention: Unpaired = -1,
// positions otherwise 1-based).
func ParseDotBracket(structure string) (sstruct.Mapping, error) {
	table, err := pairTable(structure)
	if err != nil {
		return nil, err
	}
	m := make(sstruct.Mapping, len(table)+1)
	m[0] = sstruct.Unpaired
	for i, partner := range table {
		if partner == -1 {
			m[i+1] = sstruct.Unpaired
		} else {
			m[i+1] = partner + 1
		}
	}
	return m, nil
}

// WriteDotBracket renders a Mapping back to dot-bracket notation, the
// inverse of ParseDotBracket used by the `validate` subcommand's diff output
// (SPEC_FULL.md §4.9).
func WriteDotBracket(m sstruct.Mapping) string {
	l := len(m) - 1
	out := make([]byte, l)
	for i := 1; i <= l; i++ {
		switch {
		case m[i] == sstruct.Unpaired || m[i] == sstruct.Unknown:
			out[i-1] = '.'
		case m[i] > i:
			out[i-1] = '('
		default:
			out[i-1] = ')'
		}
	}
	return string(out)
}
