package engine

import (
	"fmt"

	"github.com/rnafold/rnafold/featuremap"
	"github.com/rnafold/rnafold/rna"
	"github.com/rnafold/rnafold/rnaerr"
	"github.com/rnafold/rnafold/sstruct"
)

// Engine is the DP inference engine (spec.md §2/§4.2-§4.5). One Engine is
// loaded with a single sequence and walked forward through its lifecycle
// exactly once; build a new Engine per example rather than resetting one.
type Engine struct {
	cfg Config
	fm  *featuremap.FeatureMap

	params     []float64 // the learned parameter vector, indexed by fm
	baseParams []float64 // optional Turner-hybrid second vector (SPEC_FULL.md §4.7), nil if unused

	seq rna.Sequence
	L   int

	state State

	// Hard constraints: known[i] is Unpaired, Unknown, or a required partner.
	constraints sstruct.Mapping
	useHard     bool

	// Soft constraints: per-position reactivity bias (spec.md §7).
	softReact   sstruct.Reactivity
	useSoft     bool
	softWeight  float64

	// Loss augmentation against a reference structure (max-margin training).
	useLoss          bool
	useLossBasePair  bool
	useLossPosition  bool
	useLossReactivity bool
	refMapping       sstruct.Mapping
	refReact         sstruct.Reactivity
	lossWeight       float64

	// Viterbi layer.
	f5      []float64
	f5Trace []traceback
	fc      [][]float64
	fcTrace [][]traceback
	fm_     [][]float64
	fmTrace [][]traceback
	fm1     [][]float64
	fm1Trace [][]traceback

	// Inside/outside layer (log-space).
	f5In, f5Out   []float64
	fcIn, fcOut   [][]float64
	fmIn, fmOut   [][]float64
	fm1In, fm1Out [][]float64
	logZ          float64

	posterior [][]float64

	// Sparse feature-count accumulator shared by ComputeViterbiFeatureCounts
	// and ComputeFeatureCountExpectations (spec.md §4.5, Invariant 4).
	counts map[int]float64
}

// New returns an Engine bound to fm and cfg, ready for LoadSequence.
func New(fm *featuremap.FeatureMap, cfg Config) *Engine {
	return &Engine{fm: fm, cfg: cfg, state: Fresh}
}

// State reports the engine's current lifecycle state (spec.md §4.6).
func (e *Engine) State() State { return e.state }

// LoadSequence binds a sequence to the engine, the first mandatory call
// (spec.md §4.6: Fresh -> Loaded).
func (e *Engine) LoadSequence(seq rna.Sequence) error {
	if err := e.require("LoadSequence", Fresh); err != nil {
		return err
	}
	e.seq = seq
	e.L = seq.Len()
	e.allocate()
	e.advance(Loaded)
	return nil
}

func (e *Engine) allocate() {
	n := e.L + 1
	e.f5 = make([]float64, n)
	e.f5Trace = make([]traceback, n)
	e.fc = make2D(n)
	e.fcTrace = make2DTrace(n)
	e.fm_ = make2D(n)
	e.fmTrace = make2DTrace(n)
	e.fm1 = make2D(n)
	e.fm1Trace = make2DTrace(n)
}

func make2D(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func make2DTrace(n int) [][]traceback {
	m := make([][]traceback, n)
	for i := range m {
		m[i] = make([]traceback, n)
	}
	return m
}

// LoadValues attaches the learned parameter vector (and an optional Turner
// hybrid base vector, SPEC_FULL.md §4.7) to the engine. Must be called while
// Loaded, before any Score-touching operation.
func (e *Engine) LoadValues(params []float64, baseParams []float64) error {
	if err := e.require("LoadValues", Loaded); err != nil {
		return err
	}
	if len(params) < e.fm.Len() {
		return &rnaerr.ConfigError{Reason: fmt.Sprintf("parameter vector length %d shorter than FeatureMap length %d", len(params), e.fm.Len())}
	}
	e.params = params
	e.baseParams = baseParams
	return nil
}

// value returns the effective weight of feature index idx: params[idx] plus,
// when a Turner hybrid base vector is loaded, baseParams[idx] (SPEC_FULL.md
// §4.7; a no-op addition when baseParams is nil). A class's find/insert pair
// can allocate a brand-new index mid-scan (the first sequence to exercise a
// given n-mer or length bucket), so idx may run ahead of the vector loaded at
// LoadValues time; an index beyond either vector contributes weight 0 rather
// than panicking, the same "unseen feature defaults to 0" convention
// InsertKey's allocate-on-first-use already implies.
func (e *Engine) value(idx int) float64 {
	var v float64
	if idx < len(e.params) {
		v = e.params[idx]
	}
	if e.baseParams != nil && idx < len(e.baseParams) {
		v += e.baseParams[idx]
	}
	return v
}

// UseConstraints loads a hard pairing constraint (spec.md §7: cells violating
// it score NegInf / are excluded from enumeration).
func (e *Engine) UseConstraints(m sstruct.Mapping) error {
	if err := e.require("UseConstraints", Loaded); err != nil {
		return err
	}
	e.constraints = m
	e.useHard = true
	return nil
}

// UseSoftConstraints loads a reactivity-proportional continuous bias
// (spec.md §7: "UseSoftConstraints").
func (e *Engine) UseSoftConstraints(react sstruct.Reactivity, weight float64) error {
	if err := e.require("UseSoftConstraints", Loaded); err != nil {
		return err
	}
	e.softReact = react
	e.softWeight = weight
	e.useSoft = true
	return nil
}

// UseLoss enables Hamming-distance loss augmentation against ref for
// max-margin training (spec.md Design Notes).
func (e *Engine) UseLoss(ref sstruct.Mapping, weight float64) error {
	if err := e.require("UseLoss", Loaded); err != nil {
		return err
	}
	e.useLoss = true
	e.refMapping = ref
	e.lossWeight = weight
	return nil
}

// UseLossBasePair restricts loss augmentation to base-pair decisions only.
func (e *Engine) UseLossBasePair(ref sstruct.Mapping, weight float64) error {
	if err := e.require("UseLossBasePair", Loaded); err != nil {
		return err
	}
	e.useLossBasePair = true
	e.refMapping = ref
	e.lossWeight = weight
	return nil
}

// UseLossPosition augments loss per unpaired/paired position independent of
// partner identity.
func (e *Engine) UseLossPosition(ref sstruct.Mapping, weight float64) error {
	if err := e.require("UseLossPosition", Loaded); err != nil {
		return err
	}
	e.useLossPosition = true
	e.refMapping = ref
	e.lossWeight = weight
	return nil
}

// UseLossReactivity augments loss using reactivity-derived soft labels
// instead of a known base-pair mapping (weakly-labeled training examples).
func (e *Engine) UseLossReactivity(react sstruct.Reactivity, weight float64) error {
	if err := e.require("UseLossReactivity", Loaded); err != nil {
		return err
	}
	e.useLossReactivity = true
	e.refReact = react
	e.lossWeight = weight
	return nil
}

// canPair reports whether positions i,j may form a base pair under the
// active config and constraints.
func (e *Engine) canPair(i, j int) bool {
	if j-i-1 < e.cfg.MinHairpinLength {
		return false
	}
	if e.cfg.MaxSpan > 0 && j-i+1 > e.cfg.MaxSpan {
		return false
	}
	if !e.cfg.AllowNoncomplementary && !rna.CanPair(e.seq.At(i), e.seq.At(j)) {
		return false
	}
	if e.useHard {
		mi, mj := e.constraints[i], e.constraints[j]
		if mi != sstruct.Unknown && mi != j {
			return false
		}
		if mj != sstruct.Unknown && mj != i {
			return false
		}
	}
	return true
}

// canUnpair reports whether position i may be left unpaired under hard
// constraints.
func (e *Engine) canUnpair(i int) bool {
	if !e.useHard {
		return true
	}
	return e.constraints[i] == sstruct.Unpaired || e.constraints[i] == sstruct.Unknown
}

// addCount records a feature-index contribution into the shared accumulator
// (spec.md §4.5, Invariant 4: "the same index set a Score reads is the one a
// Count increments").
func (e *Engine) addCount(idx int, weight float64) {
	if e.counts == nil {
		e.counts = make(map[int]float64)
	}
	e.counts[idx] += weight
}

// ensureCounts resets the accumulator before a fresh feature-count pass.
func (e *Engine) ensureCounts() {
	e.counts = make(map[int]float64)
}

// Counts returns the sparse index->accumulated-weight map built by the most
// recent ComputeViterbiFeatureCounts or ComputeFeatureCountExpectations call.
func (e *Engine) Counts() map[int]float64 { return e.counts }
