/*
File is structured like the teacher's poly/commands.go: one function per
subcommand (predictCommand, trainCommand, validateCommand), followed by
shared helper functions. Flags and usage text live in main.go; this file is
where the work happens.
*/
package main

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-wordwrap"
	"github.com/mroth/weightedrand"
	"github.com/olekukonko/tablewriter"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/urfave/cli/v2"

	"github.com/lunny/log"

	"github.com/rnafold/rnafold/engine"
	"github.com/rnafold/rnafold/featuremap"
	"github.com/rnafold/rnafold/ledger"
	"github.com/rnafold/rnafold/loaders"
	"github.com/rnafold/rnafold/paramhash"
	"github.com/rnafold/rnafold/rna"
	"github.com/rnafold/rnafold/sstruct"
)

// predictCommand loads parameters and one or more sequences, runs the
// requested decode mode, and writes the resulting structure(s) to c.App.Writer.
func predictCommand(c *cli.Context) error {
	fm := featuremap.New()
	params, err := fm.ReadFromFile(c.String("params"))
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	var baseParams []float64
	if bp := c.String("base-params"); bp != "" {
		baseParams, err = fm.ReadFromFile(bp)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
	}

	var constraints sstruct.Mapping
	if cf := c.String("constraints"); cf != "" {
		f, err := os.Open(cf)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		defer f.Close()
		data, err := bufioReadAll(f)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		constraints, err = loaders.ParseDotBracket(strings.TrimSpace(data))
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
	}

	var react sstruct.Reactivity
	hasReact := false
	if rf := c.String("reactivity"); rf != "" {
		f, err := os.Open(rf)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		defer f.Close()
		react, err = loaders.ParseReactivity(f)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		hasReact = true
	}

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"sequence", "score", "pairs", "structure"})

	for _, path := range c.Args().Slice() {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		records, err := loaders.ParseFASTA(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}

		for _, rec := range records {
			seq, err := rna.NewSequence(rec.Sequence)
			if err != nil {
				log.Errorf("predict: %s: %v", rec.Identifier, err)
				continue
			}

			eng := engine.New(fm, engine.DefaultConfig())
			if err := eng.LoadSequence(seq); err != nil {
				return err
			}
			if err := eng.LoadValues(params, baseParams); err != nil {
				return err
			}
			if constraints != nil {
				if err := eng.UseConstraints(constraints); err != nil {
					return err
				}
			}
			if hasReact {
				if err := eng.UseSoftConstraints(react, c.Float64("soft-weight")); err != nil {
					return err
				}
			}

			var pairing []int
			var score float64
			switch c.String("mode") {
			case "mea", "gce":
				if err := eng.ComputeViterbi(); err != nil {
					return err
				}
				if err := eng.ComputeInside(); err != nil {
					return err
				}
				if err := eng.ComputeOutside(); err != nil {
					return err
				}
				if err := eng.ComputePosterior(); err != nil {
					return err
				}
				mode := engine.ModeMEA
				if c.String("mode") == "gce" {
					mode = engine.ModeGCE
				}
				pairing, err = eng.PredictPairingsPosterior(mode, c.Float64("gamma"))
				if err != nil {
					return err
				}
				score, _ = eng.ComputeLogPartitionCoefficient()
			default:
				if err := eng.ComputeViterbi(); err != nil {
					return err
				}
				score, _ = eng.GetViterbiScore()
				pairing, err = eng.PredictPairingsViterbi()
				if err != nil {
					return err
				}
			}

			nPairs := 0
			for _, p := range pairing[1:] {
				if p > 0 {
					nPairs++
				}
			}
			nPairs /= 2

			var out string
			if c.Bool("bpseq") {
				out = renderBPSEQ(seq, pairing)
			} else {
				out = loaders.WriteDotBracket(sstruct.Mapping(pairing))
			}

			if c.Bool("stats") {
				table.Append([]string{rec.Identifier, fmt.Sprintf("%.3f", score), fmt.Sprintf("%d", nPairs), out})
			} else {
				fmt.Fprintf(c.App.Writer, ">%s\n%s\n%s\n", rec.Identifier, rec.Sequence, out)
			}
		}
	}

	if c.Bool("stats") {
		table.Render()
	}
	return nil
}

func renderBPSEQ(seq rna.Sequence, pairing []int) string {
	var sb strings.Builder
	for i := 1; i <= seq.Len(); i++ {
		partner := 0
		if pairing[i] > 0 {
			partner = pairing[i]
		}
		fmt.Fprintf(&sb, "%d %s %d\n", i, seq.At(i).String(), partner)
	}
	return sb.String()
}

func bufioReadAll(f *os.File) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
	}
	return sb.String(), scanner.Err()
}

// trainExample pairs a parsed training example with whether it carries a
// fully known structure (strong label) or only reactivity (weak label).
type trainExample struct {
	sstructEx *sstruct.SStruct
	strong    bool
}

// trainCommand runs a simplified fixed-learning-rate gradient update over
// one or more epochs, writing the resulting parameter vector to --out
// (SPEC_FULL.md §4.9: a full AdaGrad/FOBOS optimizer is explicitly out of
// scope; this exercises the gradient map end-to-end).
func trainCommand(c *cli.Context) error {
	fm := featuremap.New()

	var examples []trainExample

	if sf := c.String("structure"); sf != "" {
		paths, err := readLines(sf)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		for _, p := range paths {
			f, err := os.Open(p)
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}
			ex, err := loaders.ParseBPSEQ(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}
			examples = append(examples, trainExample{sstructEx: ex, strong: true})
		}
	}
	if rf := c.String("reactivity"); rf != "" {
		log.Infof("train: reactivity-only examples listed in %s are not loaded; only --structure examples are trained on", rf)
	}

	if len(examples) == 0 {
		return fmt.Errorf("train: no training examples supplied")
	}

	params := make([]float64, 0)
	eta := c.Float64("eta")
	lambda := c.Float64("lambda")

	runID := "run"
	var led *ledger.Ledger
	if lp := c.String("ledger"); lp != "" {
		var err error
		led, err = ledger.Open(lp)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		defer led.Close()
		started := time.Now().UTC()
		runID = fmt.Sprintf("run-%d", started.UnixNano())
		_ = led.StartRun(runID, started.Format(time.RFC3339), fmt.Sprintf("epochs=%d eta=%.4f lambda=%.4f", c.Int("epochs"), eta, lambda))
	}

	rng := rand.New(rand.NewSource(c.Int64("random-seed")))

	for epoch := 0; epoch < c.Int("epochs"); epoch++ {
		order := shuffleEpoch(examples, rng)
		var totalLoss float64

		for _, idx := range order {
			ex := examples[idx]
			seq := ex.sstructEx.Seq

			eng := engine.New(fm, engine.DefaultConfig())
			if err := eng.LoadSequence(seq); err != nil {
				return err
			}
			for len(params) < fm.Len() {
				params = append(params, 0)
			}
			if err := eng.LoadValues(params, nil); err != nil {
				return err
			}
			switch c.String("loss") {
			case "hamming":
				_ = eng.UseLoss(ex.sstructEx.Pairing, 1.0)
			case "base-pair":
				_ = eng.UseLossBasePair(ex.sstructEx.Pairing, 1.0)
			case "position":
				_ = eng.UseLossPosition(ex.sstructEx.Pairing, 1.0)
			case "reactivity":
				_ = eng.UseLossReactivity(ex.sstructEx.React, 1.0)
			}

			if err := eng.ComputeViterbi(); err != nil {
				return err
			}
			predScore, _ := eng.GetViterbiScore()
			predCounts, err := eng.ComputeViterbiFeatureCounts()
			if err != nil {
				return err
			}

			refEng := engine.New(fm, engine.DefaultConfig())
			_ = refEng.LoadSequence(seq)
			for len(params) < fm.Len() {
				params = append(params, 0)
			}
			_ = refEng.LoadValues(params, nil)
			refScore, refCounts := scoreReference(refEng, ex.sstructEx.Pairing)

			loss := predScore - refScore
			totalLoss += loss

			for len(params) < fm.Len() {
				params = append(params, 0)
			}
			for idx, w := range predCounts {
				params[idx] -= eta * w
			}
			for idx, w := range refCounts {
				params[idx] += eta * w
			}
			for i := range params {
				params[i] -= eta * lambda * params[i]
			}
		}

		meanLoss := totalLoss / float64(len(order))
		log.Infof("train: epoch %d mean loss %.4f", epoch, meanLoss)
		if led != nil {
			names := make([]string, fm.Len())
			for i := range names {
				names[i] = fm.Name(i)
			}
			sum, _ := paramhash.Sum(paramhash.Blake3, names, params)
			_ = led.RecordIteration(runID, epoch, meanLoss, sum)
		}
	}

	if err := fm.WriteToFile(c.String("out"), params); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return nil
}

// scoreReference runs the engine constrained to exactly the reference
// structure (a no-choice traceback walk), returning its score and the exact
// feature counts that structure touches, so the trainer can contrast it with
// the unconstrained Viterbi prediction (max-margin-style update).
func scoreReference(eng *engine.Engine, ref sstruct.Mapping) (float64, map[int]float64) {
	if err := eng.UseConstraints(ref); err != nil {
		return 0, nil
	}
	if err := eng.ComputeViterbi(); err != nil {
		return 0, nil
	}
	score, _ := eng.GetViterbiScore()
	counts, _ := eng.ComputeViterbiFeatureCounts()
	return score, counts
}

// shuffleEpoch returns a per-epoch training order of len(examples) picks
// drawn with replacement from a weightedrand chooser, so an epoch can repeat
// some examples and skip others. Every example has weight 1: only
// strongly-labeled examples are loaded and --weight-weak-label is not
// applied. This is the one place in the system where example order is
// nondeterministic by design, kept isolated from the DP engine's own
// deterministic tie-breaking.
func shuffleEpoch(examples []trainExample, rng *rand.Rand) []int {
	choices := make([]weightedrand.Choice, len(examples))
	for i, ex := range examples {
		w := uint(1)
		if !ex.strong {
			w = 1 // --weight-weak-label is not applied
		}
		choices[i] = weightedrand.Choice{Item: i, Weight: w}
	}
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		order := make([]int, len(examples))
		for i := range order {
			order[i] = i
		}
		return order
	}
	order := make([]int, len(examples))
	for i := range order {
		order[i] = chooser.PickSource(rng).(int)
	}
	return order
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// validateCommand checks whether a parameter vector is feasible against a
// set of known structures: it constrains the Viterbi engine to each ground
// truth (spec.md §6, §7: "validate: parameter-vs-ground-truth feasibility
// check") and reports OK if the constrained Viterbi score is finite, NG if
// the engine hits the ConstraintInfeasible NegInf sentinel (spec.md §7,
// seed scenario S4). On NG it additionally prints a diff between the
// unconstrained Viterbi prediction and the ground truth as a supplementary
// hint at where the constraint broke down (SPEC_FULL.md §4.9).
func validateCommand(c *cli.Context) error {
	fm := featuremap.New()
	params, err := fm.ReadFromFile(c.String("params"))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	paths, err := readLines(c.String("structure"))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	dmp := diffmatchpatch.New()
	nOK, nTotal := 0, 0

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		ex, err := loaders.ParseBPSEQ(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		nTotal++

		for len(params) < fm.Len() {
			params = append(params, 0)
		}

		eng := engine.New(fm, engine.DefaultConfig())
		if err := eng.LoadSequence(ex.Seq); err != nil {
			return err
		}
		if err := eng.LoadValues(params, nil); err != nil {
			return err
		}
		if err := eng.UseConstraints(ex.Pairing); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		if err := eng.ComputeViterbi(); err != nil {
			return err
		}
		score, err := eng.GetViterbiScore()
		if err != nil {
			return err
		}

		if !math.IsInf(score, -1) {
			nOK++
			fmt.Fprintf(c.App.Writer, "%s OK\n", p)
			continue
		}

		fmt.Fprintf(c.App.Writer, "%s NG\n", p)

		unconstrained := engine.New(fm, engine.DefaultConfig())
		if err := unconstrained.LoadSequence(ex.Seq); err != nil {
			return err
		}
		if err := unconstrained.LoadValues(params, nil); err != nil {
			return err
		}
		if err := unconstrained.ComputeViterbi(); err != nil {
			return err
		}
		pred, err := unconstrained.PredictPairingsViterbi()
		if err != nil {
			return err
		}
		want := loaders.WriteDotBracket(ex.Pairing)
		got := loaders.WriteDotBracket(sstruct.Mapping(pred))
		diffs := dmp.DiffMain(want, got, false)
		fmt.Fprintf(c.App.Writer, "%s\n", dmp.DiffPrettyText(diffs))
	}

	summary := wordwrap.WrapString(fmt.Sprintf("validated %d/%d structures feasible", nOK, nTotal), 78)
	fmt.Fprintln(c.App.Writer, summary)
	return nil
}
