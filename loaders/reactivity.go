package loaders

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rnafold/rnafold/sstruct"
)

// ParseReactivity reads a whitespace-separated per-position reactivity file
// (one or two float columns per line; spec.md §6, "Reactivity"). A second
// column, when present, is the paired-propensity signal; absent, React.Paired
// stays nil and only the unpaired column is used (SHAPE-style single-channel
// data).
func ParseReactivity(r io.Reader) (sstruct.Reactivity, error) {
	scanner := bufio.NewScanner(r)
	var unpaired, paired []float64
	twoColumn := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			v, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return sstruct.Reactivity{}, fmt.Errorf("loaders: reactivity line %d: %w", lineNo, err)
			}
			unpaired = append(unpaired, v)
		case 2:
			twoColumn = true
			u, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return sstruct.Reactivity{}, fmt.Errorf("loaders: reactivity line %d: %w", lineNo, err)
			}
			p, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return sstruct.Reactivity{}, fmt.Errorf("loaders: reactivity line %d: %w", lineNo, err)
			}
			unpaired = append(unpaired, u)
			paired = append(paired, p)
		default:
			return sstruct.Reactivity{}, fmt.Errorf("loaders: reactivity line %d: expected 1 or 2 fields", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return sstruct.Reactivity{}, fmt.Errorf("loaders: %w", err)
	}

	react := sstruct.Reactivity{Unpaired: append([]float64{0}, unpaired...)}
	if twoColumn {
		react.Paired = append([]float64{0}, paired...)
	}
	return react, nil
}
