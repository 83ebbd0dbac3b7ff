// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.Received().Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %-4s %s len=%d\n", timestamp, f.Protocol, f.Name(), len(f.Raw()))
	if f.Bad() {
		return result + fmt.Sprintf("  Error: %v\n  Raw: %s\n", f.Err(), formatRaw(f))
	}

	switch {
	case f.Sentence != nil:
		result += FormatSentence(f.Sentence)
	case f.Message != nil:
		result += FormatMessage(f.Message)
	}
	if !f.FixTime().IsZero() {
		result += fmt.Sprintf("  UTC: %s\n", f.FixTime().Format("2006-01-02 15:04:05.000"))
	}
	return result
}

func formatRaw(f *Frame) string {
	if f.Protocol == ProtocolNMEA {
		return fmt.Sprintf("%q", f.Raw())
	}
	return hex.EncodeToString(f.Raw())
}

// FormatSentence formats the decoded fields of a sentence
func FormatSentence(s nmea.Sentence) string {
	switch v := s.(type) {
	case *nmea.GLL:
		result := ""
		if v.HasPosition {
			result += fmt.Sprintf("  Position: %s\n", formatPosition(v.Lat, v.Lon))
		} else {
			result += "  Position: (none)\n"
		}
		if v.HasTime {
			result += fmt.Sprintf("  Time: %s\n", v.Time)
		}
		result += fmt.Sprintf("  Status: %s, Mode: %s\n", formatStatus(v.Status), formatPosMode(v.PosMode))
		return result

	case *nmea.GSA:
		ids := make([]string, len(v.SatelliteIDs))
		for i, id := range v.SatelliteIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		result := fmt.Sprintf("  Fix: %s (%c), System: %d\n", formatNavMode(v.NavMode), v.OpMode, v.SystemID)
		result += fmt.Sprintf("  Satellites: [%s]\n", strings.Join(ids, " "))
		result += fmt.Sprintf("  PDOP: %.2f, HDOP: %.2f, VDOP: %.2f\n", v.PDOP, v.HDOP, v.VDOP)
		return result

	case *nmea.ZDA:
		return fmt.Sprintf("  Date: %s, Zone: %s\n",
			v.Time().Format("2006-01-02 15:04:05.000"), v.Location())

	case *nmea.GNS:
		result := ""
		if v.HasPosition {
			result += fmt.Sprintf("  Position: %s, Alt: %.1f m\n", formatPosition(v.Lat, v.Lon), v.Altitude)
		} else {
			result += "  Position: (none)\n"
		}
		if v.HasTime {
			result += fmt.Sprintf("  Time: %s\n", v.Time)
		}
		result += fmt.Sprintf("  Mode: %s, Satellites: %d, HDOP: %.2f\n", v.PosMode, v.NumSV, v.HDOP)
		return result

	case *nmea.PUBX:
		return fmt.Sprintf("  Data: %s\n", strings.Join(v.Data, ","))
	}

	fields := s.Fields()
	if len(fields) > 1 {
		return fmt.Sprintf("  Fields: %s\n", strings.Join(fields[1:], ","))
	}
	return ""
}

// FormatMessage formats the decoded payload of a UBX message
func FormatMessage(m ubx.Message) string {
	switch v := m.(type) {
	case *ubx.Ack:
		return fmt.Sprintf("  Acknowledged: %v\n", v.Acked)
	case *ubx.Nak:
		return fmt.Sprintf("  Rejected: %v\n", v.Rejected)
	case *ubx.ValGetResponse:
		result := fmt.Sprintf("  Layer: %v, Position: %d\n", v.Layer, v.Position)
		for _, p := range v.Pairs {
			result += fmt.Sprintf("  %v = %v\n", p.KeyID(), p.Value())
		}
		return result
	case *ubx.UniqID:
		return fmt.Sprintf("  Unique ID: %s (version %d)\n", hex.EncodeToString(v.UniqueID), v.Version)
	case *ubx.Unknown:
		return fmt.Sprintf("  Payload: %s\n", hex.EncodeToString(v.Payload()))
	}
	return ""
}

func formatPosition(lat, lon float64) string {
	ns, ew := 'N', 'E'
	if lat < 0 {
		ns, lat = 'S', -lat
	}
	if lon < 0 {
		ew, lon = 'W', -lon
	}
	return fmt.Sprintf("%.6f°%c %.6f°%c", lat, ns, lon, ew)
}

func formatStatus(s byte) string {
	switch s {
	case 'A':
		return "VALID"
	case 'V':
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

func formatPosMode(m byte) string {
	switch m {
	case 'N':
		return "NO_FIX"
	case 'E':
		return "ESTIMATED"
	case 'A':
		return "AUTONOMOUS"
	case 'D':
		return "DIFFERENTIAL"
	case 'F':
		return "RTK_FLOAT"
	case 'R':
		return "RTK_FIXED"
	case 0:
		return "-"
	default:
		return string(m)
	}
}

func formatNavMode(m int) string {
	switch m {
	case 1:
		return "NO_FIX"
	case 2:
		return "2D"
	case 3:
		return "3D"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", m)
	}
}
