package featuremap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rnafold/rnafold/rna"
)

func TestInsertIsIdempotent(t *testing.T) {
	fm := New()
	i1 := fm.InsertBasePair(rna.A, rna.U)
	i2 := fm.InsertBasePair(rna.A, rna.U)
	if i1 != i2 {
		t.Errorf("InsertBasePair not idempotent: %d != %d", i1, i2)
	}
	if fm.Len() != 1 {
		t.Errorf("Len() = %d, want 1", fm.Len())
	}
	if _, ok := fm.FindBasePair(rna.A, rna.U); !ok {
		t.Error("FindBasePair did not find inserted key")
	}
	if _, ok := fm.FindBasePair(rna.G, rna.C); ok {
		t.Error("FindBasePair found a key that was never inserted")
	}
}

func TestLengthBucketClamping(t *testing.T) {
	fm := New()
	atThreshold := fm.InsertHairpinLengthAtLeast(MaxHairpinLengthThreshold)
	beyond := fm.InsertHairpinLengthAtLeast(MaxHairpinLengthThreshold + 50)
	if atThreshold != beyond {
		t.Errorf("clamping broken: index at threshold %d != index beyond threshold %d", atThreshold, beyond)
	}
	if fm.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (clamped keys must collapse to one feature)", fm.Len())
	}
}

func TestNameRoundTrip(t *testing.T) {
	fm := New()
	idx := fm.InsertMultiBase()
	if fm.Name(idx) != "multi_base" {
		t.Errorf("Name(%d) = %q, want %q", idx, fm.Name(idx), "multi_base")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	fm := New()
	fm.InsertBasePair(rna.A, rna.U)
	fm.InsertMultiBase()
	fm.InsertExternalUnpaired()
	values := []float64{1.5, -2.25, 0.75}

	dir := t.TempDir()
	path := filepath.Join(dir, "params.txt")
	if err := fm.WriteToFile(path, values); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}

	fm2 := New()
	readBack, err := fm2.ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	if len(readBack) != len(values) {
		t.Fatalf("readBack length %d, want %d", len(readBack), len(values))
	}
	for i, v := range values {
		name := fm.Name(i)
		idx2, ok := fm2.FindKey(name)
		if !ok {
			t.Fatalf("round-tripped FeatureMap missing key %q", name)
		}
		if readBack[idx2] != v {
			t.Errorf("value for %q = %v, want %v", name, readBack[idx2], v)
		}
	}
}

func TestReadFromFileRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("only_one_field\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fm := New()
	if _, err := fm.ReadFromFile(path); err == nil {
		t.Error("expected ParseError for malformed line, got nil")
	} else if _, ok := err.(*ParseError); !ok {
		t.Errorf("expected *ParseError, got %T", err)
	}
}
