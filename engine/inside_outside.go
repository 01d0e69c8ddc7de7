package engine

import "math"

// ComputeInside fills the log-space inside tables, the sum-product analogue
// of ComputeViterbi (spec.md §4.4): every max in the Viterbi recurrence
// becomes logSumExp, every production score becomes an additive log-weight
// exactly as in score.go's ScoreX - no second set of Score functions is needed.
func (e *Engine) ComputeInside() error {
	if err := e.require("ComputeInside", Scored); err != nil {
		return err
	}
	L := e.L
	e.fcIn, e.fmIn, e.fm1In = make2D(L+1), make2D(L+1), make2D(L+1)
	e.f5In = make([]float64, L+1)
	for i := 0; i <= L; i++ {
		for j := 0; j <= L; j++ {
			e.fcIn[i][j], e.fmIn[i][j], e.fm1In[i][j] = NegInf, NegInf, NegInf
		}
	}

	for d := 0; d <= L-1; d++ {
		for i := 1; i+d <= L; i++ {
			j := i + d

			if e.canPair(i, j) {
				vals := []float64{e.ScoreHairpin(i, j) + e.pairBias(i, j)}
				maxLoop := e.cfg.MaxSingleLength
				for p := i + 1; p < j && p-i-1 <= maxLoop; p++ {
					for q := j - 1; q > p && (p-i-1)+(j-q-1) <= maxLoop; q-- {
						if e.fcIn[p][q] == NegInf || !e.canPair(p, q) {
							continue
						}
						vals = append(vals, e.fcIn[p][q]+e.ScoreSingle(i, j, p, q)+e.pairBias(i, j))
					}
				}
				for k := i + 1; k <= j-2; k++ {
					if e.fmIn[i+1][k] == NegInf || e.fm1In[k+1][j-1] == NegInf {
						continue
					}
					vals = append(vals, e.fmIn[i+1][k]+e.fm1In[k+1][j-1]+e.ScoreMultiBase(i, j)+e.pairBias(i, j))
				}
				e.fcIn[i][j] = logSumExpAll(vals)
			}

			if j >= i {
				var vals []float64
				if e.canPair(i, j) && e.fcIn[i][j] != NegInf {
					vals = append(vals, e.fcIn[i][j]+e.ScoreMultiPaired(i, j))
				}
				if j > i && e.fm1In[i][j-1] != NegInf && e.canUnpair(j) {
					vals = append(vals, e.fm1In[i][j-1]+e.ScoreMultiUnpaired(j))
				}
				e.fm1In[i][j] = logSumExpAll(vals)
			}

			if j >= i {
				var vals []float64
				if j > i && e.fmIn[i+1][j] != NegInf && e.canUnpair(i) {
					vals = append(vals, e.fmIn[i+1][j]+e.ScoreMultiUnpaired(i))
				}
				if e.fm1In[i][j] != NegInf {
					vals = append(vals, e.fm1In[i][j])
				}
				for k := i; k < j; k++ {
					if e.fmIn[i][k] == NegInf || e.fm1In[k+1][j] == NegInf {
						continue
					}
					vals = append(vals, e.fmIn[i][k]+e.fm1In[k+1][j])
				}
				if d == 0 && e.canUnpair(i) {
					vals = append(vals, e.ScoreMultiUnpaired(i))
				}
				e.fmIn[i][j] = logSumExpAll(vals)
			}
		}
	}

	e.f5In[0] = 0
	for j := 1; j <= L; j++ {
		var vals []float64
		if e.canUnpair(j) && e.f5In[j-1] != NegInf {
			vals = append(vals, e.f5In[j-1]+e.ScoreExternalUnpaired(j))
		}
		for i := 1; i <= j; i++ {
			if !e.canPair(i, j) || e.fcIn[i][j] == NegInf || e.f5In[i-1] == NegInf {
				continue
			}
			vals = append(vals, e.f5In[i-1]+e.fcIn[i][j]+e.ScoreExternalPaired(i, j))
		}
		e.f5In[j] = logSumExpAll(vals)
	}

	e.advance(Inside)
	return nil
}

// ComputeLogPartitionCoefficient returns log Z = F5in[L] (spec.md §4.4).
func (e *Engine) ComputeLogPartitionCoefficient() (float64, error) {
	if err := e.require("ComputeLogPartitionCoefficient", Inside, Outside, Posterior, Decoded); err != nil {
		return 0, err
	}
	e.logZ = e.f5In[e.L]
	return e.logZ, nil
}

// ComputeOutside fills the log-space outside tables by walking spans in
// decreasing order, the mirror image of ComputeInside (spec.md §4.4).
func (e *Engine) ComputeOutside() error {
	if err := e.require("ComputeOutside", Inside); err != nil {
		return err
	}
	L := e.L
	e.fcOut, e.fmOut, e.fm1Out = make2D(L+1), make2D(L+1), make2D(L+1)
	e.f5Out = make([]float64, L+1)
	for i := range e.f5Out {
		e.f5Out[i] = NegInf
	}
	for i := 0; i <= L; i++ {
		for j := 0; j <= L; j++ {
			e.fcOut[i][j], e.fmOut[i][j], e.fm1Out[i][j] = NegInf, NegInf, NegInf
		}
	}
	e.f5Out[L] = 0

	for j := L; j >= 1; j-- {
		if e.f5Out[j] == NegInf {
			continue
		}
		if e.canUnpair(j) && e.f5In[j-1] != NegInf {
			e.f5Out[j-1] = logSumExp(e.f5Out[j-1], e.f5Out[j]+e.ScoreExternalUnpaired(j))
		}
		for i := 1; i <= j; i++ {
			if !e.canPair(i, j) || e.fcIn[i][j] == NegInf || e.f5In[i-1] == NegInf {
				continue
			}
			contribExt := e.f5Out[j] + e.ScoreExternalPaired(i, j)
			e.f5Out[i-1] = logSumExp(e.f5Out[i-1], contribExt+e.fcIn[i][j])
			e.fcOut[i][j] = logSumExp(e.fcOut[i][j], contribExt+e.f5In[i-1])
		}
	}

	for d := L - 1; d >= 0; d-- {
		for i := 1; i+d <= L; i++ {
			j := i + d

			if e.fcOut[i][j] != NegInf {
				maxLoop := e.cfg.MaxSingleLength
				for p := i + 1; p < j && p-i-1 <= maxLoop; p++ {
					for q := j - 1; q > p && (p-i-1)+(j-q-1) <= maxLoop; q-- {
						if e.fcIn[p][q] == NegInf || !e.canPair(p, q) {
							continue
						}
						e.fcOut[p][q] = logSumExp(e.fcOut[p][q], e.fcOut[i][j]+e.ScoreSingle(i, j, p, q)+e.pairBias(i, j))
					}
				}
				for k := i + 1; k <= j-2; k++ {
					if e.fmIn[i+1][k] == NegInf || e.fm1In[k+1][j-1] == NegInf {
						continue
					}
					contrib := e.fcOut[i][j] + e.ScoreMultiBase(i, j) + e.pairBias(i, j)
					e.fmOut[i+1][k] = logSumExp(e.fmOut[i+1][k], contrib+e.fm1In[k+1][j-1])
					e.fm1Out[k+1][j-1] = logSumExp(e.fm1Out[k+1][j-1], contrib+e.fmIn[i+1][k])
				}
			}

			if e.fm1Out[i][j] != NegInf {
				if e.canPair(i, j) && e.fcIn[i][j] != NegInf {
					e.fcOut[i][j] = logSumExp(e.fcOut[i][j], e.fm1Out[i][j]+e.ScoreMultiPaired(i, j))
				}
				if j > i && e.fm1In[i][j-1] != NegInf && e.canUnpair(j) {
					e.fm1Out[i][j-1] = logSumExp(e.fm1Out[i][j-1], e.fm1Out[i][j]+e.ScoreMultiUnpaired(j))
				}
			}

			if e.fmOut[i][j] != NegInf {
				if j > i && e.fmIn[i+1][j] != NegInf && e.canUnpair(i) {
					e.fmOut[i+1][j] = logSumExp(e.fmOut[i+1][j], e.fmOut[i][j]+e.ScoreMultiUnpaired(i))
				}
				e.fm1Out[i][j] = logSumExp(e.fm1Out[i][j], e.fmOut[i][j])
				for k := i; k < j; k++ {
					if e.fmIn[i][k] == NegInf || e.fm1In[k+1][j] == NegInf {
						continue
					}
					e.fmOut[i][k] = logSumExp(e.fmOut[i][k], e.fmOut[i][j]+e.fm1In[k+1][j])
					e.fm1Out[k+1][j] = logSumExp(e.fm1Out[k+1][j], e.fmOut[i][j]+e.fmIn[i][k])
				}
			}
		}
	}

	e.advance(Outside)
	return nil
}

// ComputeFeatureCountExpectations returns E[count(feature)] under the
// posterior distribution, the sparse gradient spec.md §4.5 describes for
// log-likelihood training: for every DP cell, the posterior weight of that
// cell (inside*outside/Z) times the production's feature multiset,
// accumulated exactly like ComputeViterbiFeatureCounts but summed over every
// derivation instead of only the best one.
func (e *Engine) ComputeFeatureCountExpectations() (map[int]float64, error) {
	if err := e.require("ComputeFeatureCountExpectations", Outside, Posterior); err != nil {
		return nil, err
	}
	e.ensureCounts()
	L := e.L
	logZ := e.f5In[L]

	weight := func(in, out float64) float64 {
		if in == NegInf || out == NegInf {
			return 0
		}
		return expClamped(in + out - logZ)
	}

	for j := 1; j <= L; j++ {
		if e.canUnpair(j) && e.f5In[j-1] != NegInf {
			w := weight(e.f5In[j-1]+e.ScoreExternalUnpaired(j), e.f5Out[j])
			e.CountExternalUnpaired(j, w)
		}
	}
	for i := 1; i <= L; i++ {
		for j := i; j <= L; j++ {
			if e.canPair(i, j) && e.fcIn[i][j] != NegInf {
				w := weight(e.f5In[i-1]+e.fcIn[i][j]+e.ScoreExternalPaired(i, j), e.f5Out[j])
				e.CountExternalPaired(i, j, w)

				hw := weight(e.ScoreHairpin(i, j)+e.pairBias(i, j), e.fcOut[i][j])
				e.CountHairpin(i, j, hw)

				maxLoop := e.cfg.MaxSingleLength
				for p := i + 1; p < j && p-i-1 <= maxLoop; p++ {
					for q := j - 1; q > p && (p-i-1)+(j-q-1) <= maxLoop; q-- {
						if e.fcIn[p][q] == NegInf || !e.canPair(p, q) {
							continue
						}
						sw := weight(e.fcIn[p][q]+e.ScoreSingle(i, j, p, q)+e.pairBias(i, j), e.fcOut[i][j])
						e.CountSingle(i, j, p, q, sw)
					}
				}
				for k := i + 1; k <= j-2; k++ {
					if e.fmIn[i+1][k] == NegInf || e.fm1In[k+1][j-1] == NegInf {
						continue
					}
					mw := weight(e.fmIn[i+1][k]+e.fm1In[k+1][j-1]+e.ScoreMultiBase(i, j)+e.pairBias(i, j), e.fcOut[i][j])
					e.CountMultiBase(i, j, mw)
				}
			}

			if e.canPair(i, j) && e.fcIn[i][j] != NegInf {
				w := weight(e.fcIn[i][j]+e.ScoreMultiPaired(i, j), e.fm1Out[i][j])
				e.CountMultiPaired(i, j, w)
			}
			if j > i && e.fm1In[i][j-1] != NegInf && e.canUnpair(j) {
				w := weight(e.fm1In[i][j-1]+e.ScoreMultiUnpaired(j), e.fm1Out[i][j])
				e.CountMultiUnpaired(j, w)
			}
			if j > i && e.fmIn[i+1][j] != NegInf && e.canUnpair(i) {
				w := weight(e.fmIn[i+1][j]+e.ScoreMultiUnpaired(i), e.fmOut[i][j])
				e.CountMultiUnpaired(i, w)
			}
			if j == i && e.canUnpair(i) {
				w := weight(e.ScoreMultiUnpaired(i), e.fmOut[i][j])
				e.CountMultiUnpaired(i, w)
			}
		}
	}

	return e.counts, nil
}

// ComputePosterior derives P(i,j) = exp(FCin(i,j)+FCout(i,j)-logZ) for every
// pair, clipped to [0,1] against floating point drift (spec.md §4.4,
// Invariant 5).
func (e *Engine) ComputePosterior() error {
	if err := e.require("ComputePosterior", Outside); err != nil {
		return err
	}
	L := e.L
	logZ := e.f5In[L]
	e.posterior = make2D(L + 1)
	for i := 1; i <= L; i++ {
		for j := i + 1; j <= L; j++ {
			if e.fcIn[i][j] == NegInf || e.fcOut[i][j] == NegInf {
				continue
			}
			p := expClamped(e.fcIn[i][j] + e.fcOut[i][j] - logZ)
			if p < 0 {
				p = 0
			}
			if p > 1 {
				p = 1
			}
			e.posterior[i][j] = p
		}
	}
	e.advance(Posterior)
	return nil
}

// GetPosterior returns P(i,j), 0 if i,j cannot pair or Posterior hasn't run.
func (e *Engine) GetPosterior(i, j int) float64 {
	if e.posterior == nil || i < 0 || i > e.L || j < 0 || j > e.L {
		return 0
	}
	return e.posterior[i][j]
}

func expClamped(x float64) float64 {
	if x > 0 {
		x = 0
	}
	return math.Exp(x)
}
