package engine

// Each production below is split into a private <x>Features helper that
// returns the exact set of FeatureMap indices (with per-index weight, for
// the rare feature counted more than once) a production touches, and a
// Score<X>/Count<X> pair that both consume it. This mechanically guarantees
// Invariant 4 (spec.md §8): the index set a Score reads is always the one
// the paired Count increments, since they are the same slice.

// featureWeight pairs a FeatureMap index with how many times it fires.
type featureWeight struct {
	idx    int
	weight float64
}

func (e *Engine) sumFeatures(fw []featureWeight) float64 {
	var total float64
	for _, f := range fw {
		total += f.weight * e.value(f.idx)
	}
	return total
}

func (e *Engine) countFeatures(fw []featureWeight, scale float64) {
	for _, f := range fw {
		e.addCount(f.idx, f.weight*scale)
	}
}

// ---- base_pair ----

func (e *Engine) basePairFeatures(i, j int) []featureWeight {
	idx := e.fm.InsertBasePair(e.seq.At(i), e.seq.At(j))
	return []featureWeight{{idx, 1}}
}

func (e *Engine) ScoreBasePair(i, j int) float64 { return e.sumFeatures(e.basePairFeatures(i, j)) }
func (e *Engine) CountBasePair(i, j int, scale float64) {
	e.countFeatures(e.basePairFeatures(i, j), scale)
}

// ---- isolated_base_pair ----

func (e *Engine) isolatedFeatures(stacked bool) []featureWeight {
	if !e.cfg.UseIsolatedBasePair || stacked {
		return nil
	}
	idx := e.fm.InsertIsolatedBasePair()
	return []featureWeight{{idx, 1}}
}

func (e *Engine) ScoreIsolated(stacked bool) float64 { return e.sumFeatures(e.isolatedFeatures(stacked)) }
func (e *Engine) CountIsolated(stacked bool, scale float64) {
	e.countFeatures(e.isolatedFeatures(stacked), scale)
}

// ---- junction (terminal mismatch + base-pair-distance bucket at a
// helix-closing junction): InferenceEngine.hpp's ScoreJunctionHairpin /
// ScoreJunctionA / ScoreJunctionB all reduce to the same pair of feature
// lookups, keyed on the closing pair and the loop-facing base on each side. ----

// junctionFeatures scores the junction formed by closing pair (lo,hi) as
// seen from inside its loop, where loAdj/hiAdj are the loop-facing
// unpaired (or opposite-strand) bases adjacent to lo and hi.
func (e *Engine) junctionFeatures(lo, hi, loAdj, hiAdj int) []featureWeight {
	mismatch := e.fm.InsertTerminalMismatch(e.seq.At(lo), e.seq.At(hi), e.seq.At(loAdj), e.seq.At(hiAdj))
	dist := e.fm.InsertBasePairDistAtLeast(hi - lo)
	return []featureWeight{{mismatch, 1}, {dist, 1}}
}

// ---- hairpin ----

func (e *Engine) hairpinFeatures(i, j int) []featureWeight {
	l := j - i - 1
	fw := e.basePairFeatures(i, j)
	fw = append(fw, featureWeight{e.fm.InsertHairpinLengthAtLeast(l), 1})
	fw = append(fw, featureWeight{e.fm.InsertHairpinNucleotides(e.seq, i, l+2), 1})
	fw = append(fw, e.isolatedFeatures(false)...)
	fw = append(fw, e.junctionFeatures(i, j, i+1, j-1)...)
	return fw
}

func (e *Engine) ScoreHairpin(i, j int) float64 { return e.sumFeatures(e.hairpinFeatures(i, j)) }
func (e *Engine) CountHairpin(i, j int, scale float64) { e.countFeatures(e.hairpinFeatures(i, j), scale) }

// ---- single loop (stack / bulge / internal loop), closing pair (i,j) over inner pair (p,q) ----

func (e *Engine) singleFeatures(i, j, p, q int) []featureWeight {
	fw := e.basePairFeatures(i, j)
	lenL, lenR := p-i-1, j-q-1
	stacked := lenL == 0 && lenR == 0
	fw = append(fw, e.isolatedFeatures(stacked)...)
	// Outer junction (i,j) looks inward at i+1,j-1; inner junction (p,q) looks
	// inward (toward the loop, i.e. away from the helix) at p-1,q+1.
	fw = append(fw, e.junctionFeatures(i, j, i+1, j-1)...)
	fw = append(fw, e.junctionFeatures(p, q, p-1, q+1)...)

	switch {
	case stacked:
		if e.cfg.UseHelixStacking {
			idx := e.fm.InsertHelixStacking(e.seq.At(i), e.seq.At(j), e.seq.At(p), e.seq.At(q))
			fw = append(fw, featureWeight{idx, 1})
		}
	case lenL == 0 || lenR == 0:
		bulgeLen := lenL + lenR
		fw = append(fw, featureWeight{e.fm.InsertBulgeLengthAtLeast(bulgeLen), 1})
		if bulgeLen <= e.cfg.MaxSingleLength {
			fw = append(fw, featureWeight{e.fm.InsertInternalExplicit(lenL, lenR), 1})
		}
	default:
		total := lenL + lenR
		fw = append(fw, featureWeight{e.fm.InsertInternalLengthAtLeast(total), 1})
		if lenL == lenR {
			fw = append(fw, featureWeight{e.fm.InsertInternalSymmetricLengthAtLeast(lenL), 1})
		}
		asym := lenL - lenR
		if asym < 0 {
			asym = -asym
		}
		fw = append(fw, featureWeight{e.fm.InsertInternalAsymmetryAtLeast(asym), 1})
		if total <= e.cfg.MaxSingleLength {
			fw = append(fw, featureWeight{e.fm.InsertInternalExplicit(lenL, lenR), 1})
			fw = append(fw, featureWeight{e.fm.InsertInternalNucleotides(e.seq, i, lenL, q, lenR), 1})
		}
	}
	return fw
}

func (e *Engine) ScoreSingle(i, j, p, q int) float64 { return e.sumFeatures(e.singleFeatures(i, j, p, q)) }
func (e *Engine) CountSingle(i, j, p, q int, scale float64) {
	e.countFeatures(e.singleFeatures(i, j, p, q), scale)
}

// ---- multiloop base/unpaired/paired ----

func (e *Engine) multiBaseFeatures(i, j int) []featureWeight {
	fw := e.basePairFeatures(i, j)
	fw = append(fw, featureWeight{e.fm.InsertMultiBase(), 1})
	fw = append(fw, e.isolatedFeatures(false)...)
	return fw
}

func (e *Engine) ScoreMultiBase(i, j int) float64 { return e.sumFeatures(e.multiBaseFeatures(i, j)) }
func (e *Engine) CountMultiBase(i, j int, scale float64) {
	e.countFeatures(e.multiBaseFeatures(i, j), scale)
}

func (e *Engine) multiUnpairedFeatures(k int) []featureWeight {
	return []featureWeight{{e.fm.InsertMultiUnpaired(), 1}}
}

func (e *Engine) ScoreMultiUnpaired(k int) float64 { return e.sumFeatures(e.multiUnpairedFeatures(k)) }
func (e *Engine) CountMultiUnpaired(k int, scale float64) {
	e.countFeatures(e.multiUnpairedFeatures(k), scale)
}

func (e *Engine) multiPairedFeatures(i, j int) []featureWeight {
	fw := []featureWeight{{e.fm.InsertMultiPaired(), 1}}
	if e.cfg.UseDangle {
		if i > 1 {
			fw = append(fw, featureWeight{e.fm.InsertDangleLeft(e.seq.At(i), e.seq.At(j), e.seq.At(i-1)), 1})
		}
		if j < e.L {
			fw = append(fw, featureWeight{e.fm.InsertDangleRight(e.seq.At(i), e.seq.At(j), e.seq.At(j+1)), 1})
		}
	}
	return fw
}

func (e *Engine) ScoreMultiPaired(i, j int) float64 { return e.sumFeatures(e.multiPairedFeatures(i, j)) }
func (e *Engine) CountMultiPaired(i, j int, scale float64) {
	e.countFeatures(e.multiPairedFeatures(i, j), scale)
}

// ---- external loop unpaired/paired ----

func (e *Engine) externalUnpairedFeatures(k int) []featureWeight {
	return []featureWeight{{e.fm.InsertExternalUnpaired(), 1}}
}

func (e *Engine) ScoreExternalUnpaired(k int) float64 { return e.sumFeatures(e.externalUnpairedFeatures(k)) }
func (e *Engine) CountExternalUnpaired(k int, scale float64) {
	e.countFeatures(e.externalUnpairedFeatures(k), scale)
}

func (e *Engine) externalPairedFeatures(i, j int) []featureWeight {
	fw := []featureWeight{{e.fm.InsertExternalPaired(), 1}}
	if e.cfg.UseDangle {
		if i > 1 {
			fw = append(fw, featureWeight{e.fm.InsertDangleLeft(e.seq.At(i), e.seq.At(j), e.seq.At(i-1)), 1})
		}
		if j < e.L {
			fw = append(fw, featureWeight{e.fm.InsertDangleRight(e.seq.At(i), e.seq.At(j), e.seq.At(j+1)), 1})
		}
	}
	return fw
}

func (e *Engine) ScoreExternalPaired(i, j int) float64 { return e.sumFeatures(e.externalPairedFeatures(i, j)) }
func (e *Engine) CountExternalPaired(i, j int, scale float64) {
	e.countFeatures(e.externalPairedFeatures(i, j), scale)
}

// ---- soft-constraint and loss-augmentation bias (not FeatureMap-backed: a
// fixed per-position additive term, spec.md §7) ----

// softBias returns the reactivity-proportional bias for treating position i
// as paired (pair=true) or unpaired (pair=false), zero if soft constraints
// are not in use.
func (e *Engine) softBias(i int, pair bool) float64 {
	if !e.useSoft || e.softReact.Unpaired == nil {
		return 0
	}
	u := e.softReact.Unpaired[i]
	if pair {
		return -e.softWeight * u
	}
	return e.softWeight * u
}

// lossBias returns the Hamming-style loss-augmentation bonus added to a
// production's score during max-margin training (spec.md Design Notes:
// "UseLoss/UseLossBasePair/UseLossPosition/UseLossReactivity"), 0 if no loss
// mode is active.
func (e *Engine) lossBias(i, j int, pair bool) float64 {
	if e.useLossReactivity && e.refReact.Unpaired != nil {
		u := e.refReact.Unpaired[i]
		if pair {
			return e.lossWeight * u
		}
		return e.lossWeight * (1 - u)
	}
	if !e.useLoss && !e.useLossBasePair && !e.useLossPosition {
		return 0
	}
	if e.refMapping == nil {
		return 0
	}
	truePartner := e.refMapping[i]
	if e.useLossPosition {
		// per position: only whether i is truly paired matters, not its partner
		if pair != (truePartner >= 1) {
			return e.lossWeight
		}
		return 0
	}
	switch {
	case pair && truePartner != j:
		return e.lossWeight
	case !pair && truePartner >= 1:
		// position i is truly paired but this candidate leaves it unpaired
		return e.lossWeight
	}
	return 0
}
