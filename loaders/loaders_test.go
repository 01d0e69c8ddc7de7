package loaders

import (
	"strings"
	"testing"

	"github.com/rnafold/rnafold/sstruct"
)

func TestParseFASTA(t *testing.T) {
	content := ">seq1\nGGGAAACCC\n>seq2\nAUAUAU\n"
	records, err := ParseFASTA(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseFASTA: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Identifier != "seq1" || records[0].Sequence != "GGGAAACCC" {
		t.Errorf("record[0] = %+v", records[0])
	}
	if records[1].Identifier != "seq2" || records[1].Sequence != "AUAUAU" {
		t.Errorf("record[1] = %+v", records[1])
	}
}

func TestParseFASTAMultilineSequence(t *testing.T) {
	content := ">seq1\nGGG\nAAA\nCCC\n"
	records, err := ParseFASTA(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseFASTA: %v", err)
	}
	if len(records) != 1 || records[0].Sequence != "GGGAAACCC" {
		t.Errorf("got %+v, want one joined sequence", records)
	}
}

func TestParseFASTARejectsDataBeforeHeader(t *testing.T) {
	if _, err := ParseFASTA(strings.NewReader("GGGAAA\n>seq1\nCCC\n")); err == nil {
		t.Error("expected error for data before first header, got nil")
	}
}

func TestDotBracketRoundTrip(t *testing.T) {
	structure := "((..))"
	m, err := ParseDotBracket(structure)
	if err != nil {
		t.Fatalf("ParseDotBracket: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("parsed mapping invalid: %v", err)
	}
	got := WriteDotBracket(m)
	if got != structure {
		t.Errorf("WriteDotBracket round trip = %q, want %q", got, structure)
	}
}

func TestDotBracketUnbalanced(t *testing.T) {
	if _, err := ParseDotBracket("(((.."); err == nil {
		t.Error("expected error for unbalanced brackets, got nil")
	}
	if _, err := ParseDotBracket("..))"); err == nil {
		t.Error("expected error for unbalanced close bracket, got nil")
	}
}

func TestDotBracketInvalidChar(t *testing.T) {
	if _, err := ParseDotBracket("((xx))"); err == nil {
		t.Error("expected error for invalid character, got nil")
	}
}

func TestParseBPSEQ(t *testing.T) {
	content := "1 G 6\n2 G 5\n3 A 0\n4 A 0\n5 C 2\n6 C 1\n"
	ex, err := ParseBPSEQ(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseBPSEQ: %v", err)
	}
	if ex.Seq.Raw() != "GGAACC" {
		t.Errorf("Seq.Raw() = %q, want %q", ex.Seq.Raw(), "GGAACC")
	}
	want := sstruct.Mapping{sstruct.Unpaired, 6, 5, sstruct.Unpaired, sstruct.Unpaired, 2, 1}
	for i := 1; i <= 6; i++ {
		if ex.Pairing[i] != want[i] {
			t.Errorf("Pairing[%d] = %d, want %d", i, ex.Pairing[i], want[i])
		}
	}
}

func TestParseBPSEQRejectsOutOfOrder(t *testing.T) {
	content := "1 G 0\n3 A 0\n"
	if _, err := ParseBPSEQ(strings.NewReader(content)); err == nil {
		t.Error("expected error for out-of-order index, got nil")
	}
}

func TestParseReactivityOneColumn(t *testing.T) {
	content := "0.1\n0.9\n0.05\n"
	react, err := ParseReactivity(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseReactivity: %v", err)
	}
	if len(react.Unpaired) != 4 {
		t.Fatalf("len(Unpaired) = %d, want 4 (dummy index 0 + 3 positions)", len(react.Unpaired))
	}
	if react.Unpaired[1] != 0.1 || react.Unpaired[2] != 0.9 || react.Unpaired[3] != 0.05 {
		t.Errorf("Unpaired = %v", react.Unpaired)
	}
	if react.Paired != nil {
		t.Error("expected Paired nil for single-column file")
	}
}

func TestParseReactivityTwoColumn(t *testing.T) {
	content := "0.1 0.8\n0.9 0.05\n"
	react, err := ParseReactivity(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseReactivity: %v", err)
	}
	if react.Paired == nil {
		t.Fatal("expected Paired column for two-column file")
	}
	if react.Paired[1] != 0.8 || react.Paired[2] != 0.05 {
		t.Errorf("Paired = %v", react.Paired)
	}
}
