/*
Package rna defines the nucleotide alphabet and sequence type shared by the
FeatureMap and InferenceEngine packages.

Nucleotides are encoded as small integers rather than bytes so that they can
be used directly as array indices in FeatureMap's lookup caches and in the
InferenceEngine's DP matrices, the same fixed-alphabet-as-index-space
approach the teacher's energy_params package uses for its NucleotideEncodedIntMap.
*/
package rna

import "fmt"

// Nucleotide is a symbol drawn from the canonical RNA alphabet, encoded as a
// small integer for use as an array index. Index 0 is reserved as a sentinel
// so 1-based positions (the convention the DP engine uses throughout) can
// use 0 to mean "no such position" without colliding with a real base.
type Nucleotide int

const (
	// Sentinel is the zero value; never a real base.
	Sentinel Nucleotide = iota
	A
	C
	G
	U
	// Other is any symbol outside {A,C,G,U} (commonly N).
	Other
)

// NumBases is the number of real (non-sentinel) nucleotide codes, including Other.
const NumBases = int(Other)

func (n Nucleotide) String() string {
	switch n {
	case A:
		return "A"
	case C:
		return "C"
	case G:
		return "G"
	case U:
		return "U"
	case Other:
		return "N"
	default:
		return "."
	}
}

// FromByte maps a single FASTA/BPSEQ character to a Nucleotide. T is folded
// into U (spec.md §6: "T->U"), lowercase is accepted, anything else becomes
// Other.
func FromByte(b byte) Nucleotide {
	switch b {
	case 'A', 'a':
		return A
	case 'C', 'c':
		return C
	case 'G', 'g':
		return G
	case 'U', 'u', 'T', 't':
		return U
	default:
		return Other
	}
}

// Sequence is an ordered, 1-indexed vector of nucleotides. Sequence[0] is the
// Sentinel; the real sequence occupies Sequence[1:Len()+1], matching the DP
// engine's 1-based indexing convention (spec.md §3).
type Sequence struct {
	bases []Nucleotide
	raw   string
}

// NewSequence builds a Sequence from a raw string of {A,C,G,U,T,N} characters.
func NewSequence(raw string) (Sequence, error) {
	if len(raw) == 0 {
		return Sequence{}, fmt.Errorf("rna: empty sequence")
	}
	bases := make([]Nucleotide, len(raw)+1)
	bases[0] = Sentinel
	for i := 0; i < len(raw); i++ {
		bases[i+1] = FromByte(raw[i])
	}
	return Sequence{bases: bases, raw: raw}, nil
}

// Len returns the sequence length L (not counting the sentinel position).
func (s Sequence) Len() int { return len(s.bases) - 1 }

// At returns the nucleotide at 1-based position i. At(0) returns Sentinel.
func (s Sequence) At(i int) Nucleotide {
	if i < 0 || i >= len(s.bases) {
		return Sentinel
	}
	return s.bases[i]
}

// Raw returns the original (upper/lower-case as given, T-not-folded) string.
func (s Sequence) Raw() string { return s.raw }

// canonicalPairs lists the pairs the grammar treats as able to base-pair
// when non-complementary pairing is disallowed: Watson-Crick A-U, G-C, plus
// the G-U wobble pair (spec.md glossary: "canonical pairs are A-U, G-C, G-U").
var canonicalPairs = map[[2]Nucleotide]bool{
	{A, U}: true, {U, A}: true,
	{G, C}: true, {C, G}: true,
	{G, U}: true, {U, G}: true,
}

// CanPair reports whether i and j may form a base pair under the canonical
// (non-noncomplementary) grammar.
func CanPair(i, j Nucleotide) bool {
	return canonicalPairs[[2]Nucleotide{i, j}]
}
