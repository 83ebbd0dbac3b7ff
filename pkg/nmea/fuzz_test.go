// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

const sentenceAlphabet = "$*,\r\n0123456789ABCDEFGNPLSZ.-"

// ============================================================
// Parser Fuzz Tests
// ============================================================

// TestFuzz_ParseRandomBytes feeds garbage to Parse; it must never panic and
// anything it accepts must validate.
func TestFuzz_ParseRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		n := rng.Intn(MaxSentenceLength + 16)
		raw := make([]byte, n)
		for j := range raw {
			if rng.Intn(4) == 0 {
				raw[j] = byte(rng.Intn(256))
			} else {
				raw[j] = sentenceAlphabet[rng.Intn(len(sentenceAlphabet))]
			}
		}

		s := Parse(raw)
		if _, bad := s.(*Bad); !bad && !Validate(raw) {
			t.Fatalf("round %d: Parse accepted invalid sentence %q as %T", i, raw, s)
		}
	}
}

// TestFuzz_BitFlip corrupts one bit of a valid sentence; the result must
// never decode as the original sentence.
func TestFuzz_BitFlip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	corpus := []string{gllScenario, gllClassic, zdaExample, gsaExample, gllNoFix}

	for i := 0; i < rounds; i++ {
		orig := []byte(corpus[rng.Intn(len(corpus))])
		raw := append([]byte(nil), orig...)
		pos := rng.Intn(len(raw))
		raw[pos] ^= 1 << uint(rng.Intn(8))
		if raw[pos]|0x20 == orig[pos]|0x20 && orig[pos] >= 'A' && orig[pos] <= 'F' {
			// Case change of a hex digit is still a valid checksum
			continue
		}

		if Validate(raw) {
			t.Fatalf("round %d: single bit flip at %d still validates: %q", i, pos, raw)
		}
		if _, bad := Parse(raw).(*Bad); !bad {
			t.Fatalf("round %d: corrupted sentence %q not reported bad", i, raw)
		}
	}
}

// TestFuzz_BuildParse checks Build output always validates and splits back to
// the same fields.
func TestFuzz_BuildParse(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	const fieldAlphabet = "0123456789ABCDEFNSWE.-"

	for i := 0; i < rounds; i++ {
		fields := make([]string, 1+rng.Intn(20))
		for j := range fields {
			b := make([]byte, rng.Intn(10))
			for k := range b {
				b[k] = fieldAlphabet[rng.Intn(len(fieldAlphabet))]
			}
			fields[j] = string(b)
		}

		raw := Build("GPXYZ", fields...)
		if !Validate(raw) {
			t.Fatalf("round %d: Build produced invalid sentence %q", i, raw)
		}
		got := SplitFields(raw, len(fields)+1)
		if got[0] != "GPXYZ" {
			t.Fatalf("round %d: address %q", i, got[0])
		}
		for j, f := range fields {
			if got[j+1] != f {
				t.Fatalf("round %d: field %d = %q, want %q", i, j+1, got[j+1], f)
			}
		}
		if s := Parse(raw); !bytes.Equal([]byte(s.String()), raw) {
			t.Fatalf("round %d: String = %q, want %q", i, s.String(), raw)
		}
	}
}
