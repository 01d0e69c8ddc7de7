package loaders

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rnafold/rnafold/rna"
	"github.com/rnafold/rnafold/sstruct"
)

// ParseBPSEQ reads the BPSEQ format (one "<index> <base> <partner>" line per
// position, 1-based, partner 0 meaning unpaired), new to this module but
// grounded on the same nested-pairing invariant dot_bracket_parser.go's
// pairTable produces, so both loaders hand sstruct the same contract.
func ParseBPSEQ(r io.Reader) (*sstruct.SStruct, error) {
	scanner := bufio.NewScanner(r)
	var bases []rna.Nucleotide
	var partners []int

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("loaders: bpseq: expected 3 fields, got %d in %q", len(fields), line)
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("loaders: bpseq: bad index %q", fields[0])
		}
		if idx != len(bases)+1 {
			return nil, fmt.Errorf("loaders: bpseq: out-of-order index %d, expected %d", idx, len(bases)+1)
		}
		if len(fields[1]) != 1 {
			return nil, fmt.Errorf("loaders: bpseq: bad base %q at line %d", fields[1], idx)
		}
		partner, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("loaders: bpseq: bad partner %q at line %d", fields[2], idx)
		}
		bases = append(bases, rna.FromByte(fields[1][0]))
		partners = append(partners, partner)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loaders: %w", err)
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("loaders: bpseq: empty file")
	}

	var raw strings.Builder
	for _, b := range bases {
		raw.WriteString(b.String())
	}
	seq, err := rna.NewSequence(raw.String())
	if err != nil {
		return nil, err
	}

	mapping := make(sstruct.Mapping, len(bases)+1)
	mapping[0] = sstruct.Unpaired
	for i, p := range partners {
		if p == 0 {
			mapping[i+1] = sstruct.Unpaired
		} else {
			mapping[i+1] = p
		}
	}

	return sstruct.New("", seq, mapping, sstruct.Reactivity{})
}
