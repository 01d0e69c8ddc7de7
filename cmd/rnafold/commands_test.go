package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFile is a small helper following the teacher's style of building
// fixture files under t.TempDir() for CLI command tests.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeFile %s: %v", path, err)
	}
	return path
}

func TestPredictCommandProducesDotBracket(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.txt", "external_unpaired 0\nmulti_unpaired 0\n")
	fastaPath := writeFile(t, dir, "seq.fasta", ">seq1\nGGGAAACCC\n")

	var out bytes.Buffer
	app := application()
	app.Writer = &out

	args := []string{"rnafold", "predict", "--params", paramsPath, fastaPath}
	if err := app.Run(args); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d output lines, want 3 (header, sequence, structure): %q", len(lines), out.String())
	}
	if lines[0] != ">seq1" {
		t.Errorf("header line = %q, want %q", lines[0], ">seq1")
	}
	if lines[1] != "GGGAAACCC" {
		t.Errorf("sequence line = %q, want %q", lines[1], "GGGAAACCC")
	}
	if len(lines[2]) != 9 {
		t.Fatalf("structure line length = %d, want 9: %q", len(lines[2]), lines[2])
	}
	for _, c := range lines[2] {
		if c != '.' && c != '(' && c != ')' {
			t.Errorf("structure line contains unexpected character %q", c)
		}
	}
}

func TestValidateCommandReportsResult(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.txt", "external_unpaired 0\nmulti_unpaired 0\n")
	bpseqPath := writeFile(t, dir, "ex1.bpseq", "1 G 0\n2 G 0\n3 G 0\n4 A 0\n5 A 0\n6 A 0\n7 C 0\n8 C 0\n9 C 0\n")
	listPath := writeFile(t, dir, "structures.txt", bpseqPath+"\n")

	var out bytes.Buffer
	app := application()
	app.Writer = &out

	args := []string{"rnafold", "validate", "--params", paramsPath, "--structure", listPath}
	if err := app.Run(args); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), bpseqPath) {
		t.Errorf("expected output to mention %q, got %q", bpseqPath, out.String())
	}
	if !strings.Contains(out.String(), "validated 1/1") {
		t.Errorf("expected summary line, got %q", out.String())
	}
}

// TestValidateCommandReportsInfeasible mirrors seed scenario S4 (spec.md
// §8): a BPSEQ ground truth that forces two adjacent G's to pair, which no
// canonical pair nor minimum hairpin length allows, must make the
// constrained Viterbi run report NG rather than silently falling back to
// some other structure.
func TestValidateCommandReportsInfeasible(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.txt", "external_unpaired 0\nmulti_unpaired 0\n")
	bpseqPath := writeFile(t, dir, "infeasible.bpseq",
		"1 G 2\n2 G 1\n3 G 0\n4 A 0\n5 A 0\n6 A 0\n7 C 0\n8 C 0\n9 C 0\n")
	listPath := writeFile(t, dir, "structures.txt", bpseqPath+"\n")

	var out bytes.Buffer
	app := application()
	app.Writer = &out

	args := []string{"rnafold", "validate", "--params", paramsPath, "--structure", listPath}
	if err := app.Run(args); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "NG") {
		t.Errorf("expected NG for an infeasible constraint, got %q", out.String())
	}
	if !strings.Contains(out.String(), "validated 0/1") {
		t.Errorf("expected 0 feasible structures, got %q", out.String())
	}
}
