package engine

// TracebackRule names the production that won a DP cell under the
// folded-into-FC grammar variant (SPEC_FULL.md §4.2-4.5), the common tail of
// _examples/original_source/src/InferenceEngine.hpp's TRACEBACK_TYPE enum
// (the TB_FC_*/TB_FM_*/TB_FM1_*/TB_F5_* members, with TB_FE_*/TB_FN_* folded
// away since this variant never instantiates them).
type TracebackRule int

const (
	RuleNone TracebackRule = iota
	RuleF5Zero
	RuleF5Unpaired
	RuleF5Bifurcation
	RuleFCHairpin
	RuleFCSingle
	RuleFCBifurcation
	RuleFMBifurcation
	RuleFMUnpaired
	RuleFMFromFM1
	RuleFM1Paired
	RuleFM1Unpaired
)

// splitBits is wide enough for any sequence length this engine is meant to
// run on (spec.md's Size Budget never approaches 2^20 nucleotides).
const splitBits = 20
const splitMask = 1<<splitBits - 1

// traceback packs a (rule, split-index) pair the way
// _examples/bebop-poly/fold/fold.go packs traceback pointers into a single
// cache cell: one scalar per DP cell instead of a struct, keeping the
// traceback layer's memory footprint next to the score layer's.
type traceback int

// encodeTraceback packs rule and an optional split/partner index k into one
// int. k must lie in [0, 1<<splitBits); rules that carry no index use noSplit.
func encodeTraceback(rule TracebackRule, k int) traceback {
	return traceback(int(rule)<<splitBits | (k & splitMask))
}

func (t traceback) rule() TracebackRule { return TracebackRule(int(t) >> splitBits) }
func (t traceback) split() int          { return int(t) & splitMask }

// noSplit marks a traceback entry that carries no split index (e.g. hairpin).
const noSplit = 0
