// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

import "strings"

// TalkerID identifies the source system of a standard sentence.
type TalkerID uint8

// Talker IDs
const (
	TalkerUnknown     TalkerID = iota
	TalkerGPS                  // GP
	TalkerGLONASS              // GL
	TalkerGalileo              // GA
	TalkerBeiDou               // GB
	TalkerQZSS                 // GQ
	TalkerCombined             // GN
	TalkerProprietary          // P (PUBX)
)

var talkerCodes = map[string]TalkerID{
	"GP": TalkerGPS,
	"GL": TalkerGLONASS,
	"GA": TalkerGalileo,
	"GB": TalkerBeiDou,
	"GQ": TalkerQZSS,
	"GN": TalkerCombined,
}

// String returns the two-letter code.
func (t TalkerID) String() string {
	switch t {
	case TalkerGPS:
		return "GP"
	case TalkerGLONASS:
		return "GL"
	case TalkerGalileo:
		return "GA"
	case TalkerBeiDou:
		return "GB"
	case TalkerQZSS:
		return "GQ"
	case TalkerCombined:
		return "GN"
	case TalkerProprietary:
		return "P"
	default:
		return "??"
	}
}

// Message identifies a sentence formatter, or a PUBX sub-message.
type Message uint8

// Standard sentence formatters
const (
	MsgUnknown Message = iota
	MsgDTM
	MsgGAQ
	MsgGBQ
	MsgGBS
	MsgGGA
	MsgGLL
	MsgGLQ
	MsgGNQ
	MsgGNS
	MsgGPQ
	MsgGRS
	MsgGSA
	MsgGST
	MsgGSV
	MsgRLM
	MsgRMC
	MsgTXT
	MsgVLW
	MsgVTG
	MsgZDA

	// PUBX sub-messages
	MsgPUBXPosition
	MsgPUBXSvStatus
	MsgPUBXTime
	MsgPUBXRate
	MsgPUBXConfig
)

var formatters = map[string]Message{
	"DTM": MsgDTM,
	"GAQ": MsgGAQ,
	"GBQ": MsgGBQ,
	"GBS": MsgGBS,
	"GGA": MsgGGA,
	"GLL": MsgGLL,
	"GLQ": MsgGLQ,
	"GNQ": MsgGNQ,
	"GNS": MsgGNS,
	"GPQ": MsgGPQ,
	"GRS": MsgGRS,
	"GSA": MsgGSA,
	"GST": MsgGST,
	"GSV": MsgGSV,
	"RLM": MsgRLM,
	"RMC": MsgRMC,
	"TXT": MsgTXT,
	"VLW": MsgVLW,
	"VTG": MsgVTG,
	"ZDA": MsgZDA,
}

// PUBX sub-message ids
const (
	PUBXPosition = "00"
	PUBXSvStatus = "03"
	PUBXTime     = "04"
	PUBXRate     = "40"
	PUBXConfig   = "41"
)

var pubxIDs = map[string]Message{
	PUBXPosition: MsgPUBXPosition,
	PUBXSvStatus: MsgPUBXSvStatus,
	PUBXTime:     MsgPUBXTime,
	PUBXRate:     MsgPUBXRate,
	PUBXConfig:   MsgPUBXConfig,
}

// String returns the formatter, or "PUBX,nn" for proprietary sub-messages.
func (m Message) String() string {
	for k, v := range formatters {
		if v == m {
			return k
		}
	}
	for k, v := range pubxIDs {
		if v == m {
			return "PUBX," + k
		}
	}
	return "UNKNOWN"
}

// Formatter returns the three-letter formatter of a standard message, or ""
// for PUBX and unknown messages.
func (m Message) Formatter() string {
	if m < MsgDTM || m > MsgZDA {
		return ""
	}
	return m.String()
}

// IsProprietary reports whether m is a PUBX sub-message.
func (m Message) IsProprietary() bool {
	return m >= MsgPUBXPosition && m <= MsgPUBXConfig
}

// ParseAddress identifies the talker and message of an address field
// ("GPGLL", "PUBX") and, for PUBX, the first data field carrying the sub-id.
func ParseAddress(address, subID string) (TalkerID, Message) {
	address = strings.ToUpper(address)
	if address == "PUBX" {
		if m, ok := pubxIDs[subID]; ok {
			return TalkerProprietary, m
		}
		return TalkerProprietary, MsgUnknown
	}
	if len(address) != 5 {
		return TalkerUnknown, MsgUnknown
	}
	return talkerCodes[address[:2]], formatters[address[2:]]
}

// Identify returns the talker and message of a raw sentence without
// validating or decoding it.
func Identify(sentence []byte) (TalkerID, Message) {
	f := SplitFields(sentence, 2)
	if f[0] == "" {
		// SplitFields gave up on a long sentence; only the head matters here
		f = headFields(sentence)
	}
	return ParseAddress(f[0], f[1])
}

func headFields(sentence []byte) []string {
	s := string(sentence)
	s = strings.TrimPrefix(s, string(StartChar))
	if i := strings.IndexByte(s, ChecksumChar); i >= 0 {
		s = s[:i]
	}
	parts := strings.SplitN(s, string(FieldSep), 3)
	out := make([]string, 2)
	copy(out, parts)
	return out
}
