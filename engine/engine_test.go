package engine

import (
	"math"
	"testing"

	"github.com/rnafold/rnafold/featuremap"
	"github.com/rnafold/rnafold/rna"
	"github.com/rnafold/rnafold/sstruct"
)

// biasedFeatureMap returns a FeatureMap/param-vector pair where every feature
// defaults to a large positive weight except external_unpaired and
// multi_unpaired, which are pinned to 0 - enough to make forming base pairs
// strictly better than leaving everything unpaired, so Viterbi has a clear
// structure to find.
func biasedFeatureMap() (*featuremap.FeatureMap, []float64) {
	fm := featuremap.New()
	extIdx := fm.InsertExternalUnpaired()
	multiIdx := fm.InsertMultiUnpaired()
	params := make([]float64, 500)
	for i := range params {
		params[i] = 5.0
	}
	params[extIdx] = 0
	params[multiIdx] = 0
	return fm, params
}

func newLoadedEngine(t *testing.T, raw string) (*Engine, rna.Sequence) {
	t.Helper()
	seq, err := rna.NewSequence(raw)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	fm, params := biasedFeatureMap()
	e := New(fm, DefaultConfig())
	if err := e.LoadSequence(seq); err != nil {
		t.Fatalf("LoadSequence: %v", err)
	}
	if err := e.LoadValues(params, nil); err != nil {
		t.Fatalf("LoadValues: %v", err)
	}
	return e, seq
}

func TestLifecycleRejectsOutOfOrderCalls(t *testing.T) {
	fm := featuremap.New()
	e := New(fm, DefaultConfig())
	if err := e.ComputeViterbi(); err == nil {
		t.Error("expected error calling ComputeViterbi before LoadSequence")
	}
	seq, _ := rna.NewSequence("GGGG")
	if err := e.LoadSequence(seq); err != nil {
		t.Fatalf("LoadSequence: %v", err)
	}
	if err := e.LoadSequence(seq); err == nil {
		t.Error("expected error calling LoadSequence twice")
	}
	if _, err := e.GetViterbiScore(); err == nil {
		t.Error("expected error calling GetViterbiScore before ComputeViterbi")
	}
}

func TestLoadValuesRejectsShortVector(t *testing.T) {
	fm := featuremap.New()
	fm.InsertExternalUnpaired()
	fm.InsertMultiUnpaired()
	e := New(fm, DefaultConfig())
	seq, _ := rna.NewSequence("GGGG")
	if err := e.LoadSequence(seq); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadValues([]float64{1.0}, nil); err == nil {
		t.Error("expected error for parameter vector shorter than FeatureMap")
	}
}

func TestViterbiFindsHairpin(t *testing.T) {
	e, _ := newLoadedEngine(t, "GGGAAACCC")
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	score, err := e.GetViterbiScore()
	if err != nil {
		t.Fatalf("GetViterbiScore: %v", err)
	}
	if score <= 0 {
		t.Errorf("expected a positive score once pairing is favored, got %v", score)
	}

	pairing, err := e.PredictPairingsViterbi()
	if err != nil {
		t.Fatalf("PredictPairingsViterbi: %v", err)
	}
	if pairing[1] != 9 || pairing[9] != 1 {
		t.Errorf("expected outermost pair (1,9), got pairing=%v", pairing)
	}
	for i := 1; i <= 9; i++ {
		p := pairing[i]
		if p == -1 {
			continue
		}
		if pairing[p] != i {
			t.Errorf("asymmetric predicted pairing: pairing[%d]=%d but pairing[%d]=%d", i, p, p, pairing[p])
		}
	}
}

func TestScoreCountLockStep(t *testing.T) {
	e, _ := newLoadedEngine(t, "GGGAAACCC")
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	score, err := e.GetViterbiScore()
	if err != nil {
		t.Fatal(err)
	}
	counts, err := e.ComputeViterbiFeatureCounts()
	if err != nil {
		t.Fatalf("ComputeViterbiFeatureCounts: %v", err)
	}

	var reconstructed float64
	for idx, w := range counts {
		reconstructed += w * e.value(idx)
	}
	if math.Abs(reconstructed-score) > 1e-9 {
		t.Errorf("sum(count[idx]*value(idx)) = %v, want GetViterbiScore() = %v", reconstructed, score)
	}
}

func TestHardConstraintsForceStructure(t *testing.T) {
	seq, err := rna.NewSequence("GGGAAACCC")
	if err != nil {
		t.Fatal(err)
	}
	fm, params := biasedFeatureMap()
	e := New(fm, DefaultConfig())
	if err := e.LoadSequence(seq); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadValues(params, nil); err != nil {
		t.Fatal(err)
	}

	constraints := sstruct.NewUnknownMapping(seq.Len())
	constraints[4] = sstruct.Unpaired
	constraints[5] = sstruct.Unpaired
	constraints[6] = sstruct.Unpaired
	if err := e.UseConstraints(constraints); err != nil {
		t.Fatal(err)
	}
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	pairing, err := e.PredictPairingsViterbi()
	if err != nil {
		t.Fatal(err)
	}
	for _, pos := range []int{4, 5, 6} {
		if pairing[pos] != -1 {
			t.Errorf("position %d constrained unpaired but predicted paired with %d", pos, pairing[pos])
		}
	}
}

// TestConstraintInfeasibleYieldsNegInf mirrors seed scenario S4 (spec.md
// §8): a hard constraint that forces two positions that cannot canonically
// pair (here, two G's) to pair with each other must leave Viterbi stuck at
// the NegInf sentinel rather than falling back to some other structure.
func TestConstraintInfeasibleYieldsNegInf(t *testing.T) {
	seq, err := rna.NewSequence("GGGAAACCC")
	if err != nil {
		t.Fatal(err)
	}
	fm, params := biasedFeatureMap()
	e := New(fm, DefaultConfig())
	if err := e.LoadSequence(seq); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadValues(params, nil); err != nil {
		t.Fatal(err)
	}

	constraints := sstruct.NewUnknownMapping(seq.Len())
	constraints[1] = 2
	constraints[2] = 1
	if err := e.UseConstraints(constraints); err != nil {
		t.Fatal(err)
	}
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	score, err := e.GetViterbiScore()
	if err != nil {
		t.Fatalf("GetViterbiScore: %v", err)
	}
	if !math.IsInf(score, -1) {
		t.Errorf("expected NegInf for an infeasible constraint (G-G forced pair), got %v", score)
	}
}

func TestLogPartitionCoefficientDominatesViterbi(t *testing.T) {
	e, _ := newLoadedEngine(t, "GGGAAACCC")
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	viterbiScore, err := e.GetViterbiScore()
	if err != nil {
		t.Fatalf("GetViterbiScore: %v", err)
	}
	if err := e.ComputeInside(); err != nil {
		t.Fatalf("ComputeInside: %v", err)
	}
	logZ, err := e.ComputeLogPartitionCoefficient()
	if err != nil {
		t.Fatalf("ComputeLogPartitionCoefficient: %v", err)
	}
	// Invariant 5 (spec.md §8): the sum over all structures is never smaller
	// than the single best structure, in log-space log Z >= Viterbi score.
	if logZ < viterbiScore-1e-9 {
		t.Errorf("log Z = %v is less than Viterbi score %v, violating Invariant 5", logZ, viterbiScore)
	}
}

func TestPosteriorIsProbability(t *testing.T) {
	e, _ := newLoadedEngine(t, "GGGAAACCC")
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	if err := e.ComputeInside(); err != nil {
		t.Fatalf("ComputeInside: %v", err)
	}
	if err := e.ComputeOutside(); err != nil {
		t.Fatalf("ComputeOutside: %v", err)
	}
	if err := e.ComputePosterior(); err != nil {
		t.Fatalf("ComputePosterior: %v", err)
	}
	for i := 1; i <= 9; i++ {
		for j := i + 1; j <= 9; j++ {
			p := e.GetPosterior(i, j)
			if p < 0 || p > 1 {
				t.Errorf("GetPosterior(%d,%d) = %v, want in [0,1]", i, j, p)
			}
		}
	}
	p19 := e.GetPosterior(1, 9)
	if p19 <= 0.5 {
		t.Errorf("expected the outer pair (1,9) to be a likely pair under heavily pairing-favored weights, got P=%v", p19)
	}
}

func TestMEADecodeProducesSymmetricPairing(t *testing.T) {
	e, _ := newLoadedEngine(t, "GGGAAACCC")
	if err := e.ComputeViterbi(); err != nil {
		t.Fatalf("ComputeViterbi: %v", err)
	}
	if err := e.ComputeInside(); err != nil {
		t.Fatalf("ComputeInside: %v", err)
	}
	if err := e.ComputeOutside(); err != nil {
		t.Fatalf("ComputeOutside: %v", err)
	}
	if err := e.ComputePosterior(); err != nil {
		t.Fatalf("ComputePosterior: %v", err)
	}
	pairing, err := e.PredictPairingsPosterior(ModeMEA, 1.0)
	if err != nil {
		t.Fatalf("PredictPairingsPosterior: %v", err)
	}
	for i := 1; i <= 9; i++ {
		p := pairing[i]
		if p == -1 {
			continue
		}
		if pairing[p] != i {
			t.Errorf("asymmetric MEA pairing: pairing[%d]=%d but pairing[%d]=%d", i, p, p, pairing[p])
		}
	}
}
