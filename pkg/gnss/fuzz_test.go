// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
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

const fieldAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.-"

// payloadAlphabet deliberately includes NMEA delimiters so sentences-in-
// payload are exercised. It excludes the UBX sync byte and '*', which could
// form a genuine nested frame.
var payloadAlphabet = []byte("$,\r\nabcdefXYZ0123456789\x00\x01\x62\xFF\xB4\xB6")

var fuzzClasses = []uint8{ubx.ClassNAV, ubx.ClassMON, ubx.ClassINF, ubx.ClassTIM, ubx.ClassRXM}

func randomSentence(rng *rand.Rand) []byte {
	// Formatters without a typed decoder, so random fields stay valid
	formatters := []string{"GPTXT", "GNRMC", "GNGGA", "GPVTG", "GLGSV"}
	fields := make([]string, rng.Intn(10))
	for i := range fields {
		b := make([]byte, rng.Intn(8))
		for j := range b {
			b[j] = fieldAlphabet[rng.Intn(len(fieldAlphabet))]
		}
		fields[i] = string(b)
	}
	return nmea.Build(formatters[rng.Intn(len(formatters))], fields...)
}

func randomUBX(rng *rand.Rand) []byte {
	payload := make([]byte, rng.Intn(120))
	for i := range payload {
		payload[i] = payloadAlphabet[rng.Intn(len(payloadAlphabet))]
	}
	return ubx.Encode(fuzzClasses[rng.Intn(len(fuzzClasses))], uint8(rng.Intn(0x40)), payload)
}

func randomStream(rng *rand.Rand, count int) ([]byte, [][]byte) {
	var stream []byte
	frames := make([][]byte, count)
	for i := range frames {
		if rng.Intn(2) == 0 {
			frames[i] = randomSentence(rng)
		} else {
			frames[i] = randomUBX(rng)
		}
		stream = append(stream, frames[i]...)
	}
	return stream, frames
}

// ============================================================
// Stream Recovery Fuzz Tests
// ============================================================

// TestFuzz_InterleavedSplitStream concatenates random sentences and frames,
// delivers them in two ingestion events split at a random point with an
// optional poll in between, and expects every frame back in order.
func TestFuzz_InterleavedSplitStream(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		stream, want := randomStream(rng, 1+rng.Intn(12))

		dev, _, w := newTestDevice(64, 64)
		frames := collect(dev)

		split := rng.Intn(len(stream) + 1)
		w.write(stream[:split])
		if rng.Intn(2) == 0 {
			dev.Poll()
		}
		w.write(stream[split:])
		dev.Poll()

		got := *frames
		if len(got) != len(want) {
			t.Fatalf("round %d (split %d): got %d frames, want %d\nstream % X", i, split, len(got), len(want), stream)
		}
		for j := range want {
			if !bytes.Equal(got[j].Raw(), want[j]) {
				t.Fatalf("round %d frame %d = % X, want % X", i, j, got[j].Raw(), want[j])
			}
			if got[j].Bad() {
				t.Fatalf("round %d frame %d decoded as bad: %v", i, j, got[j].Err())
			}
		}
		if dev.Rx().Used() != 0 {
			t.Fatalf("round %d: %d bytes left over", i, dev.Rx().Used())
		}
	}
}

// TestFuzz_ChunkedStream feeds a long stream in random chunk sizes, polling
// after random chunks.
func TestFuzz_ChunkedStream(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds() / 10
	if rounds == 0 {
		rounds = 1
	}

	for i := 0; i < rounds; i++ {
		stream, want := randomStream(rng, 40)

		dev, _, w := newTestDevice(DefaultRxSize, 64)
		frames := collect(dev)

		for off := 0; off < len(stream); {
			n := 1 + rng.Intn(300)
			if off+n > len(stream) {
				n = len(stream) - off
			}
			w.write(stream[off : off+n])
			off += n
			if rng.Intn(3) == 0 {
				dev.Poll()
			}
		}
		dev.Poll()

		if len(*frames) != len(want) {
			t.Fatalf("round %d: got %d frames, want %d", i, len(*frames), len(want))
		}
		for j, f := range *frames {
			if !bytes.Equal(f.Raw(), want[j]) {
				t.Fatalf("round %d frame %d mismatch", i, j)
			}
		}
	}
}

// TestFuzz_ScanNeverPanics throws random bytes at the scanner and checks
// the structural guarantees of its result.
func TestFuzz_ScanNeverPanics(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	alphabet := append([]byte("$*\r\n,0123456789ABCDEF"), ubx.Sync1, ubx.Sync2, 0x00, 0x01)

	for i := 0; i < rounds; i++ {
		buf := make([]byte, rng.Intn(600))
		for j := range buf {
			if rng.Intn(4) == 0 {
				buf[j] = byte(rng.Intn(256))
			} else {
				buf[j] = alphabet[rng.Intn(len(alphabet))]
			}
		}
		capacity := len(buf) + rng.Intn(512)

		res := Scan(buf, capacity)

		prev := 0
		for _, f := range res.Frames {
			if f.Start < prev || f.End <= f.Start || f.End > len(buf) {
				t.Fatalf("round %d: bad span %+v after %d", i, f, prev)
			}
			prev = f.End
		}
		if res.Carry < res.Consumed || res.Carry > len(buf) {
			t.Fatalf("round %d: carry %d outside [%d, %d]", i, res.Carry, res.Consumed, len(buf))
		}
		if len(buf)-res.Carry >= capacity && len(buf) > 0 {
			t.Fatalf("round %d: carry of %d bytes fills capacity %d", i, len(buf)-res.Carry, capacity)
		}
		if res.Discarded() < 0 {
			t.Fatalf("round %d: negative discard", i)
		}

		// Decoding never panics either
		for _, f := range res.Frames {
			_ = DecodeFrame(f.Protocol, buf[f.Start:f.End], time.Time{})
		}
	}
}

// TestFuzz_CorruptionIsContained flips random bytes of one frame in a clean
// stream; frames that do not overlap the corruption must still come out.
func TestFuzz_CorruptionIsContained(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		stream, want := randomStream(rng, 3)

		// Corrupt a payload byte of the middle frame only
		mid := want[1]
		start := len(want[0])
		var pos int
		if mid[0] == nmea.StartChar {
			pos = start + 1 + rng.Intn(len(mid)-6)
		} else {
			if len(mid) == ubx.Overhead {
				continue
			}
			pos = start + ubx.HeaderSize + rng.Intn(len(mid)-ubx.Overhead)
		}
		orig := stream[pos]
		stream[pos] = fieldAlphabet[rng.Intn(len(fieldAlphabet))]
		if stream[pos] == orig {
			continue
		}

		res := Scan(stream, 4096)
		var got [][]byte
		for _, f := range res.Frames {
			got = append(got, stream[f.Start:f.End])
		}

		if len(got) == 0 || !bytes.Equal(got[0], want[0]) {
			t.Fatalf("round %d: first frame lost", i)
		}
		if !bytes.Equal(got[len(got)-1], want[2]) {
			t.Fatalf("round %d: last frame lost\nstream % X", i, stream)
		}
	}
}
