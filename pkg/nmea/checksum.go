// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

import (
	"bytes"
	"fmt"
)

// Checksum computes the XOR of every byte after the leading '$' and before
// the first '*'. A sentence without a '$' prefix is summed from its first byte.
func Checksum(sentence []byte) byte {
	var cs byte
	start := 0
	if len(sentence) > 0 && sentence[0] == StartChar {
		start = 1
	}
	for _, c := range sentence[start:] {
		if c == ChecksumChar {
			break
		}
		cs ^= c
	}
	return cs
}

// Check verifies the structure and checksum of a complete sentence:
// "$" + body + "*" + two hex digits + CR LF, with exactly one '*'.
// It returns nil for a well-formed sentence and never modifies its input.
func Check(sentence []byte) error {
	n := len(sentence)
	if n == 0 {
		return ErrEmpty
	}
	if sentence[0] != StartChar {
		return ErrMissingStart
	}
	if n > MaxSentenceLength {
		return ErrTooLong
	}
	star := bytes.IndexByte(sentence, ChecksumChar)
	if star < 0 {
		return ErrMissingChecksum
	}
	if bytes.IndexByte(sentence[star+1:], ChecksumChar) >= 0 {
		return ErrMultipleStars
	}
	if !bytes.HasSuffix(sentence, []byte(Terminator)) {
		return ErrMissingCRLF
	}
	// Exactly two characters between '*' and CR LF
	if n-len(Terminator)-star-1 != 2 {
		return ErrBadChecksumHex
	}
	want, ok := parseHexByte(sentence[star+1], sentence[star+2])
	if !ok {
		return ErrBadChecksumHex
	}
	if got := Checksum(sentence[:star]); got != want {
		return fmt.Errorf("%w: computed 0x%02X, sentence carries 0x%02X", ErrChecksum, got, want)
	}
	return nil
}

// Validate reports whether the sentence is structurally sound and carries
// a matching checksum.
func Validate(sentence []byte) bool {
	return Check(sentence) == nil
}

// AppendChecksum appends "*hh\r\n" for the body already in b.
// b must begin with '$'.
func AppendChecksum(b []byte) []byte {
	cs := Checksum(b)
	return append(b, ChecksumChar, hexDigits[cs>>4], hexDigits[cs&0x0F], '\r', '\n')
}

const hexDigits = "0123456789ABCDEF"

func parseHexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexNibble(hi)
	l, ok2 := hexNibble(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
