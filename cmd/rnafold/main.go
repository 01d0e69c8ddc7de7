/*
Command rnafold is the CLI front end for the discriminative RNA
secondary-structure inference engine (SPEC_FULL.md §4.9). Its three
subcommands - predict, train, validate - and their flags are declared in
application() below.

This file is the entry point and flag template, following the same split the
teacher's poly/main.go uses: flags and command wiring live here, command
bodies live in commands.go.
*/
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	run(os.Args)
}

// run is separated from main for testability, the same split poly/main.go uses.
func run(args []string) {
	app := application()
	if err := app.Run(args); err != nil {
		log.Fatal(err)
	}
}

func application() *cli.App {
	return &cli.App{
		Name:  "rnafold",
		Usage: "Discriminative RNA secondary structure prediction and training.",
		Commands: []*cli.Command{
			{
				Name:  "predict",
				Usage: "Predict secondary structure(s) for one or more sequences.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "params", Usage: "Parameter file path."},
					&cli.StringFlag{Name: "base-params", Usage: "Optional Turner-hybrid base parameter file."},
					&cli.StringFlag{Name: "constraints", Usage: "Dot-bracket constraint file (hard constraints)."},
					&cli.StringFlag{Name: "reactivity", Usage: "Reactivity file (soft constraints)."},
					&cli.Float64Flag{Name: "soft-weight", Value: 1.0, Usage: "Soft constraint weight."},
					&cli.StringFlag{Name: "mode", Value: "viterbi", Usage: "Decode mode: viterbi, mea, gce."},
					&cli.Float64Flag{Name: "gamma", Value: 1.0, Usage: "MEA/GCE gamma weight."},
					&cli.BoolFlag{Name: "bpseq", Usage: "Emit BPSEQ instead of dot-bracket."},
					&cli.BoolFlag{Name: "stats", Usage: "Print a summary statistics table."},
				},
				Action: func(c *cli.Context) error { return predictCommand(c) },
			},
			{
				Name:  "train",
				Usage: "Fit parameters against labeled structures and/or reactivity.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "structure", Usage: "File listing structure training examples, one path per line."},
					&cli.StringFlag{Name: "reactivity", Usage: "File listing reactivity-only training examples; the list is not read and these examples are not trained on."},
					&cli.StringFlag{Name: "out", Required: true, Usage: "Output parameter file path."},
					&cli.IntFlag{Name: "epochs", Value: 10, Usage: "Number of training epochs."},
					&cli.Float64Flag{Name: "eta", Value: 0.1, Usage: "Learning rate."},
					&cli.Float64Flag{Name: "lambda", Value: 0.0001, Usage: "L2 shrinkage."},
					&cli.Float64Flag{Name: "weight-weak-label", Value: 0.5, Usage: "Sampling weight for weakly-labeled (reactivity-only) examples; has no effect, since those examples are not loaded."},
					&cli.Int64Flag{Name: "random-seed", Value: 1, Usage: "Seed for epoch example shuffling."},
					&cli.StringFlag{Name: "loss", Value: "hamming", Usage: "Loss augmentation mode: none, hamming, base-pair, position, reactivity."},
					&cli.StringFlag{Name: "ledger", Usage: "Optional sqlite path to record per-iteration training stats."},
				},
				Action: func(c *cli.Context) error { return trainCommand(c) },
			},
			{
				Name:  "validate",
				Usage: "Compare constrained-Viterbi predictions against known structures.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "params", Usage: "Parameter file path."},
					&cli.StringFlag{Name: "structure", Required: true, Usage: "File listing structure examples to validate against, one path per line."},
				},
				Action: func(c *cli.Context) error { return validateCommand(c) },
			},
		},
	}
}
