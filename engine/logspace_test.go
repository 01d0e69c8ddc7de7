package engine

import (
	"math"
	"testing"
)

func TestLogSumExpAbsorbsNegInf(t *testing.T) {
	if got := logSumExp(NegInf, NegInf); got != NegInf {
		t.Errorf("logSumExp(-Inf,-Inf) = %v, want -Inf", got)
	}
	if got := logSumExp(NegInf, 3.0); got != 3.0 {
		t.Errorf("logSumExp(-Inf,3) = %v, want 3", got)
	}
}

func TestLogSumExpMatchesDirectComputation(t *testing.T) {
	a, b := 1.0, 2.0
	got := logSumExp(a, b)
	want := math.Log(math.Exp(a) + math.Exp(b))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("logSumExp(%v,%v) = %v, want %v", a, b, got, want)
	}
}

func TestLogSumExpAllEmpty(t *testing.T) {
	if got := logSumExpAll(nil); got != NegInf {
		t.Errorf("logSumExpAll(nil) = %v, want -Inf", got)
	}
}

func TestLogSumExpAllMatchesPairwise(t *testing.T) {
	vals := []float64{0.5, 1.5, -0.5, 2.0}
	got := logSumExpAll(vals)
	want := vals[0]
	for _, v := range vals[1:] {
		want = logSumExp(want, v)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("logSumExpAll(%v) = %v, want %v", vals, got, want)
	}
}

func TestEncodeDecodeTraceback(t *testing.T) {
	tb := encodeTraceback(RuleFCSingle, 12<<10|34)
	if tb.rule() != RuleFCSingle {
		t.Errorf("rule() = %v, want RuleFCSingle", tb.rule())
	}
	p, q := tb.split()>>10, tb.split()&0x3FF
	if p != 12 || q != 34 {
		t.Errorf("split decode = (%d,%d), want (12,34)", p, q)
	}
}

func TestEncodeDecodeTracebackNoSplit(t *testing.T) {
	tb := encodeTraceback(RuleF5Bifurcation, 7)
	if tb.rule() != RuleF5Bifurcation {
		t.Errorf("rule() = %v, want RuleF5Bifurcation", tb.rule())
	}
	if tb.split() != 7 {
		t.Errorf("split() = %d, want 7", tb.split())
	}
}
