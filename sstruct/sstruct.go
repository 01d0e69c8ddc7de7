/*
Package sstruct provides the immutable per-example view the InferenceEngine
is loaded from: a nucleotide sequence plus optional known pairing and
per-position reactivities (spec.md §2, "SStruct adapter").

SStruct owns no DP state; it is pure data plus the validation needed to
reject a malformed example before it reaches the engine.
*/
package sstruct

import (
	"fmt"

	"github.com/rnafold/rnafold/rna"
)

// Mapping position values reserved outside the range [1,L].
const (
	Unpaired = -1
	Unknown  = -2
)

// Mapping is the pair-mapping M described in spec.md §3: M[i] is the
// 1-based partner of position i, or Unpaired, or Unknown. M[0] is unused.
type Mapping []int

// NewUnknownMapping returns a Mapping of length L+1 with every position
// Unknown, the starting point for "no constraints known".
func NewUnknownMapping(l int) Mapping {
	m := make(Mapping, l+1)
	for i := range m {
		m[i] = Unknown
	}
	return m
}

// Validate checks invariants 1 and 2 from spec.md §8: symmetry (M[i]=j =>
// M[j]=i) and nesting (no two pairs (i,j),(k,l) with i<k<j<l).
func (m Mapping) Validate() error {
	l := len(m) - 1
	for i := 1; i <= l; i++ {
		j := m[i]
		if j == Unpaired || j == Unknown {
			continue
		}
		if j < 1 || j > l || j == i {
			return fmt.Errorf("sstruct: position %d maps to invalid partner %d", i, j)
		}
		if m[j] != i {
			return fmt.Errorf("sstruct: asymmetric mapping: M[%d]=%d but M[%d]=%d", i, j, j, m[j])
		}
	}
	for i := 1; i <= l; i++ {
		j := m[i]
		if j <= i {
			continue
		}
		for k := i + 1; k < j; k++ {
			p := m[k]
			if p > j || p != Unpaired && p != Unknown && p < i {
				return fmt.Errorf("sstruct: crossing pairs at (%d,%d) and (%d,%d)", i, j, k, p)
			}
		}
	}
	return nil
}

// Reactivity holds per-position chemical-probing signal (spec.md §6,
// "Reactivity"): one or two columns (unpaired propensity, paired propensity).
type Reactivity struct {
	Unpaired []float64 // length L+1, index 0 unused
	Paired   []float64 // length L+1, index 0 unused; nil if single-column file
}

// SStruct is the immutable per-example view supplied to the engine.
type SStruct struct {
	Name       string
	Seq        rna.Sequence
	Pairing    Mapping    // nil if no known/partial structure
	React      Reactivity // React.Unpaired == nil if no reactivity data
	hasPairing bool
	hasReact   bool
}

// New builds an SStruct from a required sequence and optional pairing /
// reactivity (pass nil/zero-value Reactivity{} when absent).
func New(name string, seq rna.Sequence, pairing Mapping, react Reactivity) (*SStruct, error) {
	if pairing != nil {
		if len(pairing) != seq.Len()+1 {
			return nil, fmt.Errorf("sstruct: pairing length %d does not match sequence length %d", len(pairing)-1, seq.Len())
		}
		if err := pairing.Validate(); err != nil {
			return nil, err
		}
	}
	if react.Unpaired != nil && len(react.Unpaired) != seq.Len()+1 {
		return nil, fmt.Errorf("sstruct: reactivity length %d does not match sequence length %d", len(react.Unpaired)-1, seq.Len())
	}
	return &SStruct{
		Name:       name,
		Seq:        seq,
		Pairing:    pairing,
		React:      react,
		hasPairing: pairing != nil,
		hasReact:   react.Unpaired != nil,
	}, nil
}

// HasPairing reports whether a known (possibly partial) structure is loaded.
func (s *SStruct) HasPairing() bool { return s.hasPairing }

// HasReactivity reports whether per-position reactivity is loaded.
func (s *SStruct) HasReactivity() bool { return s.hasReact }

// IsFullyKnown reports whether every position's pairing status is known
// (no Unknown entries) - the property that separates strongly- from
// weakly-labeled training examples.
func (s *SStruct) IsFullyKnown() bool {
	if !s.hasPairing {
		return false
	}
	for i := 1; i <= s.Seq.Len(); i++ {
		if s.Pairing[i] == Unknown {
			return false
		}
	}
	return true
}
