// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentence is a decoded NMEA sentence. The concrete type is one of *GLL,
// *GSA, *ZDA, *GNS, *PUBX, *Unknown or *Bad.
type Sentence interface {
	Talker() TalkerID
	Message() Message
	// Fields returns the address field followed by the data fields.
	Fields() []string
	// String renders the sentence as wire text with a fresh checksum.
	String() string
}

type base struct {
	talker TalkerID
	msg    Message
	fields []string
}

func (b *base) Talker() TalkerID { return b.talker }
func (b *base) Message() Message { return b.msg }
func (b *base) Fields() []string { return b.fields }

func (b *base) String() string {
	if len(b.fields) == 0 {
		return ""
	}
	return string(Build(b.fields[0], b.fields[1:]...))
}

// GLL is a geographic position (latitude/longitude) sentence.
type GLL struct {
	base
	HasPosition bool
	Lat         float64
	Lon         float64
	Time        UTCTime
	HasTime     bool
	Status      byte // 'A' valid, 'V' invalid
	PosMode     byte // 'A' autonomous, 'D' differential, 'N' no fix, ...
}

// GSA is a DOP and active satellites sentence.
type GSA struct {
	base
	OpMode       byte // 'M' manual, 'A' automatic
	NavMode      int  // 1 no fix, 2 2D, 3 3D
	SatelliteIDs []int
	PDOP         float64
	HDOP         float64
	VDOP         float64
	SystemID     uint8
}

// ZDA is a time and date sentence.
type ZDA struct {
	base
	DateTime
}

// GNS is a GNSS fix data sentence.
type GNS struct {
	base
	Time        UTCTime
	HasTime     bool
	HasPosition bool
	Lat         float64
	Lon         float64
	PosMode     string // one character per constellation
	NumSV       int
	HDOP        float64
	Altitude    float64
	Separation  float64
	DiffAge     float64
	DiffStation string
	NavStatus   byte
}

// PUBX is a u-blox proprietary sentence.
type PUBX struct {
	base
	SubID string
	// Data holds the fields after the sub-id.
	Data []string
}

// Unknown is a valid sentence with no typed decoder.
type Unknown struct {
	base
}

// Bad is a sentence that failed validation or decoding.
type Bad struct {
	base
	Raw []byte
	Err error
}

func (b *Bad) String() string {
	return fmt.Sprintf("bad sentence (%v): %q", b.Err, b.Raw)
}

// Parse validates and decodes one complete sentence ("$...*hh\r\n").
// It never fails: malformed input yields *Bad and unrecognized formatters
// yield *Unknown. The returned value does not alias raw.
func Parse(raw []byte) Sentence {
	if err := Check(raw); err != nil {
		bad := newBad(raw, err)
		bad.talker, bad.msg = Identify(raw)
		return bad
	}

	fields := SplitFields(raw, fieldsMax)
	if fields[0] == "" {
		return newBad(raw, ErrTooManyFields)
	}
	talker, msg := ParseAddress(fields[0], fields[1])
	fields = trimFields(raw, fields)
	b := base{talker: talker, msg: msg, fields: fields}

	var (
		s   Sentence
		err error
	)
	switch msg {
	case MsgGLL:
		s, err = decodeGLL(b, raw)
	case MsgGSA:
		s, err = decodeGSA(b, raw)
	case MsgZDA:
		s, err = decodeZDA(b, raw)
	case MsgGNS:
		s, err = decodeGNS(b, raw)
	default:
		if talker == TalkerProprietary {
			p := &PUBX{base: b, SubID: fields[1]}
			if len(fields) > 2 {
				p.Data = fields[2:]
			}
			return p
		}
		return &Unknown{base: b}
	}
	if err != nil {
		bad := newBad(raw, err)
		bad.talker, bad.msg = talker, msg
		return bad
	}
	return s
}

func newBad(raw []byte, err error) *Bad {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &Bad{Raw: cp, Err: err}
}

// trimFields drops the unused tail of a fixed-size split so Fields reflects
// what was on the wire.
func trimFields(raw []byte, fields []string) []string {
	n := 1
	star := strings.IndexByte(string(raw), ChecksumChar)
	for _, c := range raw[:star] {
		if c == FieldSep {
			n++
		}
	}
	return fields[:n]
}

// resplit returns exactly n fields, padding short sentences.
func resplit(raw []byte, n int) ([]string, error) {
	f := SplitFields(raw, n)
	if f[0] == "" {
		return nil, ErrTooManyFields
	}
	return f, nil
}

// fieldReader decodes typed fields and keeps the first failure.
type fieldReader struct {
	f   []string
	err error
}

func (r *fieldReader) fail(i int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w %d: %q", ErrField, i, r.f[i])
	}
}

func (r *fieldReader) decimal(i int) float64 {
	if r.f[i] == "" {
		return 0
	}
	v, ok := parseFloat(r.f[i])
	if !ok {
		r.fail(i)
	}
	return v
}

func (r *fieldReader) integer(i int) int {
	if r.f[i] == "" {
		return 0
	}
	v, ok := parseInt(r.f[i])
	if !ok {
		r.fail(i)
	}
	return v
}

func (r *fieldReader) latLon(i int) (lat, lon float64, ok bool) {
	if r.f[i] == "" && r.f[i+2] == "" {
		return 0, 0, false
	}
	lat, ok1 := ParseLatLon(r.f[i], r.f[i+1])
	if !ok1 || (r.f[i+1] != "N" && r.f[i+1] != "S") {
		r.fail(i)
		return 0, 0, false
	}
	lon, ok2 := ParseLatLon(r.f[i+2], r.f[i+3])
	if !ok2 || (r.f[i+3] != "E" && r.f[i+3] != "W") {
		r.fail(i + 2)
		return 0, 0, false
	}
	return lat, lon, true
}

func (r *fieldReader) time(i int) (UTCTime, bool) {
	if r.f[i] == "" {
		return UTCTime{}, false
	}
	t, ok := ParseUTCTime(r.f[i])
	if !ok {
		r.fail(i)
	}
	return t, ok
}

func decodeGLL(b base, raw []byte) (Sentence, error) {
	f, err := resplit(raw, fieldsGLL)
	if err != nil {
		return nil, err
	}
	r := fieldReader{f: f}
	s := &GLL{base: b}
	s.Lat, s.Lon, s.HasPosition = r.latLon(1)
	s.Time, s.HasTime = r.time(5)
	s.Status = firstChar(f[6])
	s.PosMode = firstChar(f[7])
	return s, r.err
}

func decodeGSA(b base, raw []byte) (Sentence, error) {
	f, err := resplit(raw, fieldsGSA)
	if err != nil {
		return nil, err
	}
	r := fieldReader{f: f}
	s := &GSA{base: b}
	s.OpMode = firstChar(f[1])
	s.NavMode = r.integer(2)
	for i := 3; i < 15; i++ {
		if f[i] != "" {
			s.SatelliteIDs = append(s.SatelliteIDs, r.integer(i))
		}
	}
	s.PDOP = r.decimal(15)
	s.HDOP = r.decimal(16)
	s.VDOP = r.decimal(17)
	if f[18] != "" {
		v, err := strconv.ParseUint(f[18], 16, 8)
		if err != nil {
			r.fail(18)
		}
		s.SystemID = uint8(v)
	}
	return s, r.err
}

func decodeZDA(b base, raw []byte) (Sentence, error) {
	f, err := resplit(raw, fieldsZDA)
	if err != nil {
		return nil, err
	}
	dt, ok := ParseDateTime(f[1], f[2], f[3], f[4], f[5], f[6])
	if !ok {
		return nil, fmt.Errorf("%w: date/time %q %q/%q/%q", ErrField, f[1], f[2], f[3], f[4])
	}
	return &ZDA{base: b, DateTime: dt}, nil
}

func decodeGNS(b base, raw []byte) (Sentence, error) {
	f, err := resplit(raw, fieldsGNS)
	if err != nil {
		return nil, err
	}
	r := fieldReader{f: f}
	s := &GNS{base: b}
	s.Time, s.HasTime = r.time(1)
	s.Lat, s.Lon, s.HasPosition = r.latLon(2)
	s.PosMode = f[6]
	s.NumSV = r.integer(7)
	s.HDOP = r.decimal(8)
	s.Altitude = r.decimal(9)
	s.Separation = r.decimal(10)
	s.DiffAge = r.decimal(11)
	s.DiffStation = f[12]
	s.NavStatus = firstChar(f[13])
	return s, r.err
}

// NewGLL builds a GLL sentence from typed values.
func NewGLL(talker TalkerID, lat, lon float64, t UTCTime, status, posMode byte) *GLL {
	latS, ns := FormatLatLon(lat, true)
	lonS, ew := FormatLatLon(lon, false)
	fields := []string{
		talker.String() + "GLL",
		latS, ns, lonS, ew,
		FormatUTCTime(t),
		string(status), string(posMode),
	}
	return &GLL{
		base:        base{talker: talker, msg: MsgGLL, fields: fields},
		HasPosition: true,
		Lat:         lat,
		Lon:         lon,
		Time:        t,
		HasTime:     true,
		Status:      status,
		PosMode:     posMode,
	}
}

// FormatLatLon renders signed degrees as ddmm.mmmmm (or dddmm.mmmmm) and a
// hemisphere letter.
func FormatLatLon(deg float64, latitude bool) (string, string) {
	hemi := "N"
	if !latitude {
		hemi = "E"
	}
	if deg < 0 {
		deg = -deg
		if latitude {
			hemi = "S"
		} else {
			hemi = "W"
		}
	}
	d := int(deg)
	m := math.Round((deg-float64(d))*60*1e5) / 1e5
	if m >= 60 {
		d++
		m -= 60
	}
	width := 2
	if !latitude {
		width = 3
	}
	return fmt.Sprintf("%0*d%08.5f", width, d, m), hemi
}

// FormatUTCTime renders hhmmss.ss.
func FormatUTCTime(t UTCTime) string {
	return fmt.Sprintf("%02d%02d%05.2f", t.Hour, t.Minute, t.Second)
}
