// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package nmea implements the NMEA 0183 sentence codec used by u-blox M9N
// class receivers, including the proprietary PUBX extension.
//
// The package validates checksums, splits data fields, decodes the GLL, GSA,
// ZDA and GNS sentences into typed values and builds the PUBX,40 and PUBX,41
// configuration sentences. Malformed input never produces an error from
// Parse; it produces a *Bad sentence that callers route like any other.
package nmea

import "errors"

// Framing characters
const (
	StartChar    = '$'
	ChecksumChar = '*'
	FieldSep     = ','
	Terminator   = "\r\n"
)

// MaxSentenceLength is the longest sentence accepted by Parse. The standard
// limit is 82 characters; u-blox high precision and PUBX output run longer.
const MaxSentenceLength = 256

// Field counts (address field included) for the decoded sentences
const (
	fieldsGLL = 8
	fieldsGSA = 19
	fieldsZDA = 7
	fieldsGNS = 14
	fieldsMax = 32
)

// Validation errors
var (
	ErrEmpty           = errors.New("nmea: empty sentence")
	ErrMissingStart    = errors.New("nmea: missing '$'")
	ErrMissingChecksum = errors.New("nmea: missing '*'")
	ErrMultipleStars   = errors.New("nmea: more than one '*'")
	ErrBadChecksumHex  = errors.New("nmea: checksum is not two hex digits")
	ErrMissingCRLF     = errors.New("nmea: missing CR LF terminator")
	ErrChecksum        = errors.New("nmea: checksum mismatch")
	ErrTooLong         = errors.New("nmea: sentence too long")
	ErrTooManyFields   = errors.New("nmea: too many fields")
	ErrField           = errors.New("nmea: unparseable field")
)
