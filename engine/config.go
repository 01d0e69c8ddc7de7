/*
Package engine implements the DP inference engine described by spec.md §4:
Viterbi decoding, inside/outside, posterior base-pair probabilities,
MEA/GCE decoding, and sparse feature-count gradients, all driven by a shared
featuremap.FeatureMap.

The engine standardizes on the "folded-into-FC" grammar variant (SPEC_FULL.md
§4.2-4.5): isolated-base-pair feature contributions are additive terms on
the ordinary FC/FM/FM1/F5 recurrences rather than separate FE/FN
productions, and helix-length features are not scored at all, matching the
#else branch of
_examples/original_source/src/InferenceEngine.hpp's TRACEBACK_TYPE enum.
*/
package engine

// Config replaces the C++ PARAMS_* preprocessor flags with a single runtime
// record (spec.md §9, Design Notes: "a runtime Config record"). It selects
// which feature classes are active and bounds the DP recurrences.
type Config struct {
	// MaxSingleLength bounds internal/bulge loop enumeration: a single loop
	// with more than this many unpaired bases is never considered.
	MaxSingleLength int
	// MinHairpinLength is the minimum number of unpaired bases in a hairpin
	// loop (i.e. minimum j-i-1 for a closing pair (i,j)).
	MinHairpinLength int
	// MaxSpan bounds j-i+1 for any considered pair (0 = unbounded).
	MaxSpan int

	// AllowNoncomplementary permits base pairs outside the canonical
	// {A-U, G-C, G-U} set when true.
	AllowNoncomplementary bool

	// UseHelixLength is not read by the recurrences: helix_length_at_least
	// features are never scored, whatever its value.
	UseHelixLength bool
	// UseIsolatedBasePair enables the isolated_base_pair penalty feature.
	UseIsolatedBasePair bool
	// UseDangle enables dangle_left/dangle_right feature contributions.
	UseDangle bool
	// UseHelixStacking enables helix_stacking feature contributions
	// (stacked-pair energies) versus collapsing stacks into base_pair only.
	UseHelixStacking bool
}

// DefaultConfig mirrors the source's default constructor arguments
// (InferenceEngine(allow_noncomplementary=false, max_single_length=30, ...)).
func DefaultConfig() Config {
	return Config{
		MaxSingleLength:       30,
		MinHairpinLength:      3,
		MaxSpan:               0,
		AllowNoncomplementary: false,
		UseHelixLength:        false,
		UseIsolatedBasePair:   true,
		UseDangle:             true,
		UseHelixStacking:      true,
	}
}
