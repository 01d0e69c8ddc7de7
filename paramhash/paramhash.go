/*
Package paramhash fingerprints a parameter file's contents so a trained
checkpoint can be identified without comparing full vectors byte-for-byte
(SPEC_FULL.md §3, "Checksums"). The trainer stores it in each ledger
iteration row.

Blake3 is the fast default, the same choice hash.go's Blake3SequenceHash
makes for sequence fingerprints in the teacher repo; SHA3-256 and
BLAKE2b-256 are selectable alternates for environments that standardize on
a NIST/RFC hash, mirroring hash.go's GenericSequenceHash dispatch over
crypto.Hash.
*/
package paramhash

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	_ "golang.org/x/crypto/blake2b"
	_ "golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Algorithm selects the hash used by Sum.
type Algorithm int

const (
	Blake3 Algorithm = iota
	SHA3_256
	Blake2b_256
)

// Sum hashes the (name, value) lines exactly as WriteToFile would emit them,
// so two FeatureMap/parameter pairs round-trip-equal under
// featuremap.WriteToFile+ReadFromFile hash identically (spec.md §8,
// Invariant 7).
func Sum(algo Algorithm, names []string, values []float64) (string, error) {
	switch algo {
	case Blake3:
		h := blake3.New(32, nil)
		writeLines(h, names, values)
		return hex.EncodeToString(h.Sum(nil)), nil
	case SHA3_256:
		return genericSum(crypto.SHA3_256, names, values)
	case Blake2b_256:
		return genericSum(crypto.BLAKE2b_256, names, values)
	default:
		return "", errors.New("paramhash: unknown algorithm")
	}
}

func genericSum(hash crypto.Hash, names []string, values []float64) (string, error) {
	if !hash.Available() {
		return "", fmt.Errorf("paramhash: hash %v unavailable", hash)
	}
	h := hash.New()
	writeLines(h, names, values)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeLines(w io.Writer, names []string, values []float64) {
	for i, name := range names {
		v := 0.0
		if i < len(values) {
			v = values[i]
		}
		fmt.Fprintf(w, "%s %g\n", name, v)
	}
}
