/*
Package loaders turns on-disk sequence/structure/reactivity files into the
values sstruct and the engine consume (FASTA records, a Mapping, a
Reactivity, or for BPSEQ a full sstruct.SStruct), the external collaborator
spec.md §6 places out of
scope for the hard core but SPEC_FULL.md §4.10 still needs a concrete
implementation of so the CLI has something to call.

Each format is intentionally thin: parse-and-validate only, delegating the
nested-pairing and length invariants to sstruct itself.
*/
package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/rnafold/rnafold/rna"
)

// fastaRecord mirrors bio/fasta.Record's Identifier/Sequence pair, adapted
// to avoid pulling in that package's concurrent-parser machinery the
// engine's batch loaders don't need.
type fastaRecord struct {
	Identifier string
	Sequence   string
}

// ParseFASTA reads one or more ">name\nSEQUENCE" records, the same
// line-driven state machine as bio/fasta.Parser.Next (start-of-record on
// '>', buffer lines until the next '>' or EOF).
func ParseFASTA(r io.Reader) ([]fastaRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []fastaRecord
	var id string
	var buf bytes.Buffer
	started := false

	flush := func() error {
		if !started {
			return nil
		}
		if buf.Len() == 0 {
			return fmt.Errorf("loaders: fasta record %q has no sequence", id)
		}
		records = append(records, fastaRecord{Identifier: id, Sequence: buf.String()})
		buf.Reset()
		return nil
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		switch {
		case len(line) == 0:
			continue
		case line[0] == ';':
			continue
		case line[0] == '>':
			if err := flush(); err != nil {
				return nil, err
			}
			id = string(line[1:])
			started = true
		case !started:
			return nil, fmt.Errorf("loaders: fasta data before first '>' header")
		default:
			buf.Write(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loaders: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}

// sequenceFromRaw builds an rna.Sequence from a FASTA record's raw bases.
func sequenceFromRaw(raw string) (rna.Sequence, error) {
	return rna.NewSequence(raw)
}
