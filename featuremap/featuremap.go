/*
Package featuremap implements the bidirectional registry between
human-readable feature names (e.g. "base_pair_AU",
"hairpin_length_at_least_5") and the dense integer indices the
InferenceEngine uses to read a parameter vector.

FeatureMap owns no numeric values: the parameter vector belongs to the
caller (spec.md §3, "FeatureMap state"). Each feature class gets a pair of
operations, find_X (read-only) and insert_X (idempotent, allocate-on-first-use),
ported from the cache/hash split in
_examples/original_source/src/FeatureMap.hpp. Classes keyed on one or two
nucleotides or on a clamped length use flat array caches; terminal_mismatch,
helix_stacking and dangle_left/dangle_right use Go maps keyed on nucleotide
tuples; hairpin_nucleotides and internal_nucleotides have no cache and go
through the name->index map.
*/
package featuremap

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rnafold/rnafold/rna"
)

// notFound is the cache sentinel meaning "not yet inserted", matching the
// source's "-1 marks not yet inserted" convention (spec.md §3).
const notFound = -1

// Threshold constants bound the size of length-bucket caches. Lengths longer
// than the threshold are clamped to it (spec.md §4.1, "Key encoding"):
// "discretize l by clamping to [0, THRESHOLD_LAST]".
const (
	MaxBasePairDist              = 4
	MaxHairpinLengthThreshold    = 30
	MaxHelixLengthThreshold      = 20
	MaxBulgeLengthThreshold      = 30
	MaxInternalLengthThreshold   = 30
	MaxInternalSymmetryThreshold = 15
	MaxInternalAsymmetryThreshold = 28
	MaxExplicitInternalLoopSize  = 4 // internal_explicit(i,j): i,j each clamped to [0,4]
	MaxHairpinNucleotidesLength  = 8
	MaxInternalNucleotidesLength = 4
)

// nb is the number of distinguishable nucleotide codes (including Sentinel
// and Other), used to size the 2-D/4-D caches keyed on nucleotide identity.
const nb = rna.NumBases + 1

// FeatureMap is the name<->index registry described by spec.md §3/§4.1.
type FeatureMap struct {
	names []string       // index -> name, dense from 0
	index map[string]int // name -> index

	cacheBasePair         [nb][nb]int
	cacheBasePairDist     [MaxBasePairDist + 1]int
	cacheTerminalMismatch map[[4]rna.Nucleotide]int
	cacheHairpinLength    [MaxHairpinLengthThreshold + 1]int
	cacheHelixLength      [MaxHelixLengthThreshold + 1]int
	cacheIsolatedBasePair int
	cacheInternalExplicit [MaxExplicitInternalLoopSize + 1][MaxExplicitInternalLoopSize + 1]int
	cacheBulgeLength      [MaxBulgeLengthThreshold + 1]int
	cacheInternalLength   [MaxInternalLengthThreshold + 1]int
	cacheInternalSym      [MaxInternalSymmetryThreshold + 1]int
	cacheInternalAsym     [MaxInternalAsymmetryThreshold + 1]int
	cacheHelixStacking    map[[4]rna.Nucleotide]int
	cacheHelixClosing     [nb][nb]int
	cacheMultiBase        int
	cacheMultiUnpaired    int
	cacheMultiPaired      int
	cacheDangleLeft       map[[3]rna.Nucleotide]int
	cacheDangleRight      map[[3]rna.Nucleotide]int
	cacheExternalUnpaired int
	cacheExternalPaired   int
}

// New returns an empty FeatureMap with all caches initialized to "not found".
func New() *FeatureMap {
	fm := &FeatureMap{
		index:                 make(map[string]int),
		cacheTerminalMismatch: make(map[[4]rna.Nucleotide]int),
		cacheHelixStacking:    make(map[[4]rna.Nucleotide]int),
		cacheDangleLeft:       make(map[[3]rna.Nucleotide]int),
		cacheDangleRight:      make(map[[3]rna.Nucleotide]int),
	}
	for i := range fm.cacheBasePair {
		for j := range fm.cacheBasePair[i] {
			fm.cacheBasePair[i][j] = notFound
		}
		for j := range fm.cacheHelixClosing[i] {
			fm.cacheHelixClosing[i][j] = notFound
		}
	}
	for i := range fm.cacheBasePairDist {
		fm.cacheBasePairDist[i] = notFound
	}
	for i := range fm.cacheHairpinLength {
		fm.cacheHairpinLength[i] = notFound
	}
	for i := range fm.cacheHelixLength {
		fm.cacheHelixLength[i] = notFound
	}
	for i := range fm.cacheInternalExplicit {
		for j := range fm.cacheInternalExplicit[i] {
			fm.cacheInternalExplicit[i][j] = notFound
		}
	}
	for i := range fm.cacheBulgeLength {
		fm.cacheBulgeLength[i] = notFound
	}
	for i := range fm.cacheInternalLength {
		fm.cacheInternalLength[i] = notFound
	}
	for i := range fm.cacheInternalSym {
		fm.cacheInternalSym[i] = notFound
	}
	for i := range fm.cacheInternalAsym {
		fm.cacheInternalAsym[i] = notFound
	}
	fm.cacheIsolatedBasePair = notFound
	fm.cacheMultiBase = notFound
	fm.cacheMultiUnpaired = notFound
	fm.cacheMultiPaired = notFound
	fm.cacheExternalUnpaired = notFound
	fm.cacheExternalPaired = notFound
	return fm
}

// Len returns the number of distinct feature names registered so far; this
// is also the length the caller's parameter vector must have.
func (fm *FeatureMap) Len() int { return len(fm.names) }

// Name returns the feature name at index i.
func (fm *FeatureMap) Name(i int) string { return fm.names[i] }

// FindKey is the generic, hash-backed read-only lookup by full feature name.
func (fm *FeatureMap) FindKey(key string) (int, bool) {
	idx, ok := fm.index[key]
	return idx, ok
}

// InsertKey is the generic, idempotent allocator every insert_X delegates
// to: it returns the existing index on a repeat call (Invariant 9,
// spec.md §8), or allocates the next dense index.
func (fm *FeatureMap) InsertKey(key string) int {
	if idx, ok := fm.index[key]; ok {
		return idx
	}
	idx := len(fm.names)
	fm.names = append(fm.names, key)
	fm.index[key] = idx
	return idx
}

func clamp(l, max int) int {
	if l > max {
		return max
	}
	if l < 0 {
		return 0
	}
	return l
}

// ---- base_pair ----

func (fm *FeatureMap) keyBasePair(i, j rna.Nucleotide) string {
	return fmt.Sprintf("base_pair_%s%s", i, j)
}

// FindBasePair looks up the feature index for a canonical base pair (i,j).
func (fm *FeatureMap) FindBasePair(i, j rna.Nucleotide) (int, bool) {
	v := fm.cacheBasePair[i][j]
	if v == notFound {
		return 0, false
	}
	return v, true
}

// InsertBasePair allocates (or returns the existing index for) base pair (i,j).
func (fm *FeatureMap) InsertBasePair(i, j rna.Nucleotide) int {
	if v := fm.cacheBasePair[i][j]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fm.keyBasePair(i, j))
	fm.cacheBasePair[i][j] = idx
	return idx
}

// ---- base_pair_dist_at_least ----

func (fm *FeatureMap) FindBasePairDistAtLeast(l int) (int, bool) {
	l = clamp(l, MaxBasePairDist)
	v := fm.cacheBasePairDist[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertBasePairDistAtLeast(l int) int {
	l = clamp(l, MaxBasePairDist)
	if v := fm.cacheBasePairDist[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("base_pair_dist_at_least_%d", l))
	fm.cacheBasePairDist[l] = idx
	return idx
}

// ---- terminal_mismatch ----

func (fm *FeatureMap) keyTerminalMismatch(i1, j1, i2, j2 rna.Nucleotide) ([4]rna.Nucleotide, string) {
	k := [4]rna.Nucleotide{i1, j1, i2, j2}
	return k, fmt.Sprintf("terminal_mismatch_%s%s%s%s", i1, j1, i2, j2)
}

func (fm *FeatureMap) FindTerminalMismatch(i1, j1, i2, j2 rna.Nucleotide) (int, bool) {
	k, _ := fm.keyTerminalMismatch(i1, j1, i2, j2)
	idx, ok := fm.cacheTerminalMismatch[k]
	return idx, ok
}

func (fm *FeatureMap) InsertTerminalMismatch(i1, j1, i2, j2 rna.Nucleotide) int {
	k, name := fm.keyTerminalMismatch(i1, j1, i2, j2)
	if idx, ok := fm.cacheTerminalMismatch[k]; ok {
		return idx
	}
	idx := fm.InsertKey(name)
	fm.cacheTerminalMismatch[k] = idx
	return idx
}

// ---- hairpin_length_at_least ----

func (fm *FeatureMap) FindHairpinLengthAtLeast(l int) (int, bool) {
	l = clamp(l, MaxHairpinLengthThreshold)
	v := fm.cacheHairpinLength[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertHairpinLengthAtLeast(l int) int {
	l = clamp(l, MaxHairpinLengthThreshold)
	if v := fm.cacheHairpinLength[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("hairpin_length_at_least_%d", l))
	fm.cacheHairpinLength[l] = idx
	return idx
}

// ---- hairpin_nucleotides (no fast-path cache: variable-length key) ----

func keyNucleotides(prefix string, seq rna.Sequence, i, l int) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	n := clamp(l, MaxHairpinNucleotidesLength)
	for k := 0; k < n; k++ {
		sb.WriteString(seq.At(i + k).String())
	}
	return sb.String()
}

func (fm *FeatureMap) FindHairpinNucleotides(seq rna.Sequence, i, l int) (int, bool) {
	return fm.FindKey(keyNucleotides("hairpin_nucleotides_", seq, i, l))
}

func (fm *FeatureMap) InsertHairpinNucleotides(seq rna.Sequence, i, l int) int {
	return fm.InsertKey(keyNucleotides("hairpin_nucleotides_", seq, i, l))
}

// ---- helix_length_at_least ----

func (fm *FeatureMap) FindHelixLengthAtLeast(l int) (int, bool) {
	l = clamp(l, MaxHelixLengthThreshold)
	v := fm.cacheHelixLength[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertHelixLengthAtLeast(l int) int {
	l = clamp(l, MaxHelixLengthThreshold)
	if v := fm.cacheHelixLength[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("helix_length_at_least_%d", l))
	fm.cacheHelixLength[l] = idx
	return idx
}

// ---- isolated_base_pair ----

func (fm *FeatureMap) FindIsolatedBasePair() (int, bool) {
	if fm.cacheIsolatedBasePair == notFound {
		return 0, false
	}
	return fm.cacheIsolatedBasePair, true
}

func (fm *FeatureMap) InsertIsolatedBasePair() int {
	if fm.cacheIsolatedBasePair != notFound {
		return fm.cacheIsolatedBasePair
	}
	fm.cacheIsolatedBasePair = fm.InsertKey("isolated_base_pair")
	return fm.cacheIsolatedBasePair
}

// ---- internal_explicit(i,j) ----

func (fm *FeatureMap) FindInternalExplicit(i, j int) (int, bool) {
	i, j = clamp(i, MaxExplicitInternalLoopSize), clamp(j, MaxExplicitInternalLoopSize)
	v := fm.cacheInternalExplicit[i][j]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertInternalExplicit(i, j int) int {
	i, j = clamp(i, MaxExplicitInternalLoopSize), clamp(j, MaxExplicitInternalLoopSize)
	if v := fm.cacheInternalExplicit[i][j]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("internal_explicit_%d_%d", i, j))
	fm.cacheInternalExplicit[i][j] = idx
	return idx
}

// ---- bulge_length_at_least ----

func (fm *FeatureMap) FindBulgeLengthAtLeast(l int) (int, bool) {
	l = clamp(l, MaxBulgeLengthThreshold)
	v := fm.cacheBulgeLength[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertBulgeLengthAtLeast(l int) int {
	l = clamp(l, MaxBulgeLengthThreshold)
	if v := fm.cacheBulgeLength[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("bulge_length_at_least_%d", l))
	fm.cacheBulgeLength[l] = idx
	return idx
}

// ---- internal_length_at_least ----

func (fm *FeatureMap) FindInternalLengthAtLeast(l int) (int, bool) {
	l = clamp(l, MaxInternalLengthThreshold)
	v := fm.cacheInternalLength[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertInternalLengthAtLeast(l int) int {
	l = clamp(l, MaxInternalLengthThreshold)
	if v := fm.cacheInternalLength[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("internal_length_at_least_%d", l))
	fm.cacheInternalLength[l] = idx
	return idx
}

// ---- internal_symmetric_length_at_least ----

func (fm *FeatureMap) FindInternalSymmetricLengthAtLeast(l int) (int, bool) {
	l = clamp(l, MaxInternalSymmetryThreshold)
	v := fm.cacheInternalSym[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertInternalSymmetricLengthAtLeast(l int) int {
	l = clamp(l, MaxInternalSymmetryThreshold)
	if v := fm.cacheInternalSym[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("internal_symmetric_length_at_least_%d", l))
	fm.cacheInternalSym[l] = idx
	return idx
}

// ---- internal_asymmetry_at_least ----

func (fm *FeatureMap) FindInternalAsymmetryAtLeast(l int) (int, bool) {
	l = clamp(l, MaxInternalAsymmetryThreshold)
	v := fm.cacheInternalAsym[l]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertInternalAsymmetryAtLeast(l int) int {
	l = clamp(l, MaxInternalAsymmetryThreshold)
	if v := fm.cacheInternalAsym[l]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("internal_asymmetry_at_least_%d", l))
	fm.cacheInternalAsym[l] = idx
	return idx
}

// ---- internal_nucleotides (no fast-path cache) ----

func keyInternalNucleotides(seq rna.Sequence, i, l, j, m int) string {
	var sb strings.Builder
	sb.WriteString("internal_nucleotides_")
	nl := clamp(l, MaxInternalNucleotidesLength)
	nm := clamp(m, MaxInternalNucleotidesLength)
	for k := 0; k < nl; k++ {
		sb.WriteString(seq.At(i + k).String())
	}
	sb.WriteByte('_')
	for k := 0; k < nm; k++ {
		sb.WriteString(seq.At(j + k).String())
	}
	return sb.String()
}

func (fm *FeatureMap) FindInternalNucleotides(seq rna.Sequence, i, l, j, m int) (int, bool) {
	return fm.FindKey(keyInternalNucleotides(seq, i, l, j, m))
}

func (fm *FeatureMap) InsertInternalNucleotides(seq rna.Sequence, i, l, j, m int) int {
	return fm.InsertKey(keyInternalNucleotides(seq, i, l, j, m))
}

// ---- helix_stacking ----

func (fm *FeatureMap) keyHelixStacking(i1, j1, i2, j2 rna.Nucleotide) ([4]rna.Nucleotide, string) {
	k := [4]rna.Nucleotide{i1, j1, i2, j2}
	return k, fmt.Sprintf("helix_stacking_%s%s%s%s", i1, j1, i2, j2)
}

func (fm *FeatureMap) FindHelixStacking(i1, j1, i2, j2 rna.Nucleotide) (int, bool) {
	k, _ := fm.keyHelixStacking(i1, j1, i2, j2)
	idx, ok := fm.cacheHelixStacking[k]
	return idx, ok
}

func (fm *FeatureMap) InsertHelixStacking(i1, j1, i2, j2 rna.Nucleotide) int {
	k, name := fm.keyHelixStacking(i1, j1, i2, j2)
	if idx, ok := fm.cacheHelixStacking[k]; ok {
		return idx
	}
	idx := fm.InsertKey(name)
	fm.cacheHelixStacking[k] = idx
	return idx
}

// ---- helix_closing ----

func (fm *FeatureMap) FindHelixClosing(i, j rna.Nucleotide) (int, bool) {
	v := fm.cacheHelixClosing[i][j]
	if v == notFound {
		return 0, false
	}
	return v, true
}

func (fm *FeatureMap) InsertHelixClosing(i, j rna.Nucleotide) int {
	if v := fm.cacheHelixClosing[i][j]; v != notFound {
		return v
	}
	idx := fm.InsertKey(fmt.Sprintf("helix_closing_%s%s", i, j))
	fm.cacheHelixClosing[i][j] = idx
	return idx
}

// ---- multi_base / multi_unpaired / multi_paired ----

func (fm *FeatureMap) FindMultiBase() (int, bool) {
	if fm.cacheMultiBase == notFound {
		return 0, false
	}
	return fm.cacheMultiBase, true
}
func (fm *FeatureMap) InsertMultiBase() int {
	if fm.cacheMultiBase == notFound {
		fm.cacheMultiBase = fm.InsertKey("multi_base")
	}
	return fm.cacheMultiBase
}

func (fm *FeatureMap) FindMultiUnpaired() (int, bool) {
	if fm.cacheMultiUnpaired == notFound {
		return 0, false
	}
	return fm.cacheMultiUnpaired, true
}
func (fm *FeatureMap) InsertMultiUnpaired() int {
	if fm.cacheMultiUnpaired == notFound {
		fm.cacheMultiUnpaired = fm.InsertKey("multi_unpaired")
	}
	return fm.cacheMultiUnpaired
}

func (fm *FeatureMap) FindMultiPaired() (int, bool) {
	if fm.cacheMultiPaired == notFound {
		return 0, false
	}
	return fm.cacheMultiPaired, true
}
func (fm *FeatureMap) InsertMultiPaired() int {
	if fm.cacheMultiPaired == notFound {
		fm.cacheMultiPaired = fm.InsertKey("multi_paired")
	}
	return fm.cacheMultiPaired
}

// ---- dangle_left / dangle_right ----

func (fm *FeatureMap) FindDangleLeft(i1, j1, i2 rna.Nucleotide) (int, bool) {
	idx, ok := fm.cacheDangleLeft[[3]rna.Nucleotide{i1, j1, i2}]
	return idx, ok
}

func (fm *FeatureMap) InsertDangleLeft(i1, j1, i2 rna.Nucleotide) int {
	k := [3]rna.Nucleotide{i1, j1, i2}
	if idx, ok := fm.cacheDangleLeft[k]; ok {
		return idx
	}
	idx := fm.InsertKey(fmt.Sprintf("dangle_left_%s%s%s", i1, j1, i2))
	fm.cacheDangleLeft[k] = idx
	return idx
}

func (fm *FeatureMap) FindDangleRight(i1, j1, j2 rna.Nucleotide) (int, bool) {
	idx, ok := fm.cacheDangleRight[[3]rna.Nucleotide{i1, j1, j2}]
	return idx, ok
}

func (fm *FeatureMap) InsertDangleRight(i1, j1, j2 rna.Nucleotide) int {
	k := [3]rna.Nucleotide{i1, j1, j2}
	if idx, ok := fm.cacheDangleRight[k]; ok {
		return idx
	}
	idx := fm.InsertKey(fmt.Sprintf("dangle_right_%s%s%s", i1, j1, j2))
	fm.cacheDangleRight[k] = idx
	return idx
}

// ---- external_unpaired / external_paired ----

func (fm *FeatureMap) FindExternalUnpaired() (int, bool) {
	if fm.cacheExternalUnpaired == notFound {
		return 0, false
	}
	return fm.cacheExternalUnpaired, true
}
func (fm *FeatureMap) InsertExternalUnpaired() int {
	if fm.cacheExternalUnpaired == notFound {
		fm.cacheExternalUnpaired = fm.InsertKey("external_unpaired")
	}
	return fm.cacheExternalUnpaired
}

func (fm *FeatureMap) FindExternalPaired() (int, bool) {
	if fm.cacheExternalPaired == notFound {
		return 0, false
	}
	return fm.cacheExternalPaired, true
}
func (fm *FeatureMap) InsertExternalPaired() int {
	if fm.cacheExternalPaired == notFound {
		fm.cacheExternalPaired = fm.InsertKey("external_paired")
	}
	return fm.cacheExternalPaired
}

// ---- persistence ----

// ReadFromFile parses a parameter file (spec.md §6: "<name> <float>" per
// line) and returns the parallel parameter vector, inserting each name into
// the FeatureMap in file order - mirroring
// FeatureMap::read_from_file in the source.
func (fm *FeatureMap) ReadFromFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("featuremap: %w", err)
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, &ParseError{Path: path, Line: lineNo, Reason: "expected '<name> <value>'"}
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf("bad float %q", fields[1])}
		}
		idx := fm.InsertKey(fields[0])
		for len(values) <= idx {
			values = append(values, 0)
		}
		values[idx] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("featuremap: %w", err)
	}
	return values, nil
}

// WriteToFile emits (name, value) pairs in index order, the inverse of
// ReadFromFile for any FeatureMap produced by the same class set
// (Invariant 7, spec.md §8).
func (fm *FeatureMap) WriteToFile(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("featuremap: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, name := range fm.names {
		v := 0.0
		if i < len(values) {
			v = values[i]
		}
		if _, err := fmt.Fprintf(w, "%s %g\n", name, v); err != nil {
			return fmt.Errorf("featuremap: %w", err)
		}
	}
	return w.Flush()
}

// ParseError reports a malformed parameter file (spec.md §7: "ParseError").
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("featuremap: %s:%d: %s", e.Path, e.Line, e.Reason)
}
