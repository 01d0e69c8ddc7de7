package rnaerr

import "testing"

func TestKinds(t *testing.T) {
	for _, test := range []struct {
		err  Error
		kind string
	}{
		{&ParseError{Source: "x", Reason: "bad"}, "ParseError"},
		{&ConstraintError{Reason: "no structure fits"}, "ConstraintInfeasible"},
		{&StateError{Op: "ComputeViterbi", State: "Fresh"}, "InvalidState"},
		{&ConfigError{Reason: "bad flag combo"}, "ConfigError"},
	} {
		if got := test.err.Kind(); got != test.kind {
			t.Errorf("Kind() = %q, want %q", got, test.kind)
		}
		if test.err.Error() == "" {
			t.Errorf("Error() returned empty string for %T", test.err)
		}
	}
}
