// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

import (
	"strconv"
	"strings"
	"time"
)

// ParseLatLon parses a ddmm.mmmm (latitude) or dddmm.mmmm (longitude) field
// together with its hemisphere letter into signed fractional degrees.
// South and West are negative.
func ParseLatLon(v string, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	if v == "" || (hemi != "N" && hemi != "S" && hemi != "E" && hemi != "W") {
		return 0, false
	}

	// The last two digits of the integer part are minutes
	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil || deg < 0 {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil || mins < 0 || mins >= 60 {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, true
}

// UTCTime is an NMEA hhmmss.sss time of day.
type UTCTime struct {
	Hour   int
	Minute int
	Second float64
}

// ParseUTCTime parses an hhmmss or hhmmss.sss field.
func ParseUTCTime(s string) (UTCTime, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return UTCTime{}, false
	}
	hh, err := strconv.Atoi(s[0:2])
	if err != nil {
		return UTCTime{}, false
	}
	mm, err := strconv.Atoi(s[2:4])
	if err != nil {
		return UTCTime{}, false
	}
	ss, err := strconv.ParseFloat(s[4:], 64)
	if err != nil {
		return UTCTime{}, false
	}
	// Leap second allowed
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss >= 61 {
		return UTCTime{}, false
	}
	return UTCTime{Hour: hh, Minute: mm, Second: ss}, true
}

// MillisSinceMidnight returns the time of day in milliseconds.
func (t UTCTime) MillisSinceMidnight() uint32 {
	ms := uint32(t.Hour)*3_600_000 + uint32(t.Minute)*60_000
	return ms + uint32(t.Second*1000+0.5)
}

// Duration returns the time of day as an offset from midnight.
func (t UTCTime) Duration() time.Duration {
	return time.Duration(t.MillisSinceMidnight()) * time.Millisecond
}

func (t UTCTime) String() string {
	return strconv.Itoa(100+t.Hour)[1:] + ":" + strconv.Itoa(100+t.Minute)[1:] + ":" +
		strconv.FormatFloat(t.Second, 'f', 3, 64)
}

// DateTime is a ZDA UTC date and time with the local zone description.
type DateTime struct {
	UTCTime
	Day         int
	Month       int
	Year        int
	ZoneHours   int
	ZoneMinutes int
}

// ParseDateTime assembles a DateTime from the ZDA time, day, month, year and
// local zone fields.
func ParseDateTime(tod, day, month, year, zoneHours, zoneMinutes string) (DateTime, bool) {
	t, ok := ParseUTCTime(tod)
	if !ok {
		return DateTime{}, false
	}
	d, err1 := strconv.Atoi(strings.TrimSpace(day))
	m, err2 := strconv.Atoi(strings.TrimSpace(month))
	y, err3 := strconv.Atoi(strings.TrimSpace(year))
	if err1 != nil || err2 != nil || err3 != nil {
		return DateTime{}, false
	}
	if d < 1 || d > 31 || m < 1 || m > 12 || y < 1980 {
		return DateTime{}, false
	}
	dt := DateTime{UTCTime: t, Day: d, Month: m, Year: y}
	// Zone fields are optional on many receivers
	if v, err := strconv.Atoi(strings.TrimSpace(zoneHours)); err == nil {
		dt.ZoneHours = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(zoneMinutes)); err == nil {
		dt.ZoneMinutes = v
	}
	return dt, true
}

// Midnight returns 00:00:00 UTC of the sentence's day.
func (dt DateTime) Midnight() time.Time {
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day, 0, 0, 0, 0, time.UTC)
}

// Time returns the UTC instant described by the sentence.
func (dt DateTime) Time() time.Time {
	return dt.Midnight().Add(dt.Duration())
}

// Unix returns the instant as milliseconds since the Unix epoch.
func (dt DateTime) Unix() int64 {
	return dt.Time().UnixMilli()
}

// Location returns the fixed zone described by the local zone fields.
func (dt DateTime) Location() *time.Location {
	offset := dt.ZoneHours*3600 + dt.ZoneMinutes*60
	if dt.ZoneHours < 0 && dt.ZoneMinutes > 0 {
		offset = dt.ZoneHours*3600 - dt.ZoneMinutes*60
	}
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstChar(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}
