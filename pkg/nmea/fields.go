// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

// SplitFields splits a validated sentence into exactly n comma-delimited
// fields. Field 0 is the address ("GPGLL", "PUBX"); the data fields follow.
// Splitting stops at the '*' that introduces the checksum.
//
// Missing trailing fields are returned as empty strings. If the sentence
// carries more than n fields the parse is abandoned and every field is
// returned empty.
func SplitFields(sentence []byte, n int) []string {
	fields := make([]string, n)
	if n <= 0 || len(sentence) == 0 {
		return fields
	}

	start := 0
	if sentence[0] == StartChar {
		start = 1
	}

	k := 0
	i := start
	for j := start; j <= len(sentence); j++ {
		end := j == len(sentence)
		if !end && sentence[j] != FieldSep && sentence[j] != ChecksumChar {
			continue
		}
		if k >= n {
			return make([]string, n)
		}
		fields[k] = string(sentence[i:j])
		k++
		i = j + 1
		if end || sentence[j] == ChecksumChar {
			break
		}
	}
	return fields
}

// Build renders a sentence from its address and data fields, computing the
// checksum and appending CR LF.
func Build(address string, fields ...string) []byte {
	size := 1 + len(address) + 5
	for _, f := range fields {
		size += len(f) + 1
	}
	b := make([]byte, 0, size)
	b = append(b, StartChar)
	b = append(b, address...)
	for _, f := range fields {
		b = append(b, FieldSep)
		b = append(b, f...)
	}
	return AppendChecksum(b)
}
