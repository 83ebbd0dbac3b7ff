// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"fmt"

	"github.com/Thermoquad/sextant/pkg/nmea"
)

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyInvalidPosition AnomalyType = iota
	AnomalyInvalidFix
	AnomalyInvalidDOP
	AnomalyInvalidDate
	AnomalyInvalidValue
)

// MaxDOP is the largest dilution of precision a receiver reports; values
// above it are flagged.
const MaxDOP = 99.99

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks the decoded values of a valid frame for anomalies.
// Bad frames and frames without a typed decoder yield no errors.
func ValidateFrame(f *Frame) []ValidationError {
	if f.Bad() || f.Sentence == nil {
		return nil
	}

	switch s := f.Sentence.(type) {
	case *nmea.GLL:
		if s.HasPosition {
			return validatePosition(s.Lat, s.Lon)
		}
	case *nmea.GNS:
		errors := []ValidationError{}
		if s.HasPosition {
			errors = append(errors, validatePosition(s.Lat, s.Lon)...)
		}
		errors = append(errors, validateDOP("HDOP", s.HDOP)...)
		return errors
	case *nmea.GSA:
		return validateGSA(s)
	case *nmea.ZDA:
		return validateDate(s.DateTime)
	}
	return nil
}

func validatePosition(lat, lon float64) []ValidationError {
	errors := []ValidationError{}

	if lat < -90 || lat > 90 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidPosition,
			Message: fmt.Sprintf("Latitude out of range (%.6f, valid: -90 to 90)", lat),
			Details: map[string]interface{}{"lat": lat, "min": -90.0, "max": 90.0},
		})
	}
	if lon < -180 || lon > 180 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidPosition,
			Message: fmt.Sprintf("Longitude out of range (%.6f, valid: -180 to 180)", lon),
			Details: map[string]interface{}{"lon": lon, "min": -180.0, "max": 180.0},
		})
	}

	return errors
}

func validateGSA(s *nmea.GSA) []ValidationError {
	errors := []ValidationError{}

	if s.NavMode < 1 || s.NavMode > 3 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidFix,
			Message: fmt.Sprintf("Invalid navigation mode=%d (valid 1-3)", s.NavMode),
			Details: map[string]interface{}{"nav_mode": s.NavMode, "min": 1, "max": 3},
		})
	}
	if s.OpMode != 'A' && s.OpMode != 'M' {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("Invalid operation mode %q (valid A or M)", s.OpMode),
			Details: map[string]interface{}{"op_mode": string(s.OpMode)},
		})
	}
	if len(s.SatelliteIDs) > 12 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("Too many satellites (%d, max 12)", len(s.SatelliteIDs)),
			Details: map[string]interface{}{"count": len(s.SatelliteIDs), "max": 12},
		})
	}

	errors = append(errors, validateDOP("PDOP", s.PDOP)...)
	errors = append(errors, validateDOP("HDOP", s.HDOP)...)
	errors = append(errors, validateDOP("VDOP", s.VDOP)...)
	return errors
}

func validateDOP(name string, v float64) []ValidationError {
	if v >= 0 && v <= MaxDOP {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyInvalidDOP,
		Message: fmt.Sprintf("%s out of range (%.2f, valid: 0 to %.2f)", name, v, MaxDOP),
		Details: map[string]interface{}{"name": name, "value": v, "min": 0.0, "max": MaxDOP},
	}}
}

func validateDate(dt nmea.DateTime) []ValidationError {
	errors := []ValidationError{}

	if dt.Midnight().Day() != dt.Day {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidDate,
			Message: fmt.Sprintf("Invalid date %04d-%02d-%02d", dt.Year, dt.Month, dt.Day),
			Details: map[string]interface{}{"year": dt.Year, "month": dt.Month, "day": dt.Day},
		})
	}
	if dt.ZoneHours < -13 || dt.ZoneHours > 13 || dt.ZoneMinutes < 0 || dt.ZoneMinutes > 59 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidDate,
			Message: fmt.Sprintf("Invalid local zone %+d:%02d", dt.ZoneHours, dt.ZoneMinutes),
			Details: map[string]interface{}{"zone_hours": dt.ZoneHours, "zone_minutes": dt.ZoneMinutes},
		})
	}

	return errors
}
