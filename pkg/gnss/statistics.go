// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	NMEAFrames      uint64
	UBXFrames       uint64
	ValidFrames     uint64
	ChecksumErrors  uint64
	DecodeErrors    uint64
	AnomalousValues uint64
	InvalidPosition uint64
	InvalidFix      uint64
	InvalidDOP      uint64
	InvalidDate     uint64
	Naks            uint64

	// Buffer counters, copied from the device
	DroppedBytes   uint64
	DiscardedBytes uint64
	RxResets       uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a frame and its validation errors
func (s *Statistics) Update(f *Frame, validationErrors []ValidationError) {
	s.TotalFrames++
	switch f.Protocol {
	case ProtocolNMEA:
		s.NMEAFrames++
	case ProtocolUBX:
		s.UBXFrames++
	}
	s.LastUpdateTime = time.Now()

	if f.Bad() {
		err := f.Err()
		if errors.Is(err, nmea.ErrChecksum) || errors.Is(err, ubx.ErrChecksum) {
			s.ChecksumErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	if _, ok := f.Message.(*ubx.Nak); ok {
		s.Naks++
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		return
	}
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyInvalidPosition:
			s.InvalidPosition++
		case AnomalyInvalidFix:
			s.InvalidFix++
		case AnomalyInvalidDOP:
			s.InvalidDOP++
		case AnomalyInvalidDate:
			s.InvalidDate++
		}
		s.AnomalousValues++
	}
}

// UpdateDevice copies the buffer loss counters from dev.
func (s *Statistics) UpdateDevice(dev *Device) {
	s.DroppedBytes = dev.Rx().Dropped()
	s.RxResets = dev.Rx().Resets()
	s.DiscardedBytes = dev.Discarded()
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// Errors returns the total number of bad or anomalous frames.
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.DecodeErrors + s.AnomalousValues
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	pct := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d (NMEA %d, UBX %d)\n", s.TotalFrames, s.NMEAFrames, s.UBXFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, pct(s.ValidFrames))

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, pct(s.ChecksumErrors))
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, pct(s.DecodeErrors))
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, pct(s.AnomalousValues))
		if s.InvalidPosition > 0 {
			result += fmt.Sprintf("  Position:         %5d\n", s.InvalidPosition)
		}
		if s.InvalidFix > 0 {
			result += fmt.Sprintf("  Fix Mode:         %5d\n", s.InvalidFix)
		}
		if s.InvalidDOP > 0 {
			result += fmt.Sprintf("  DOP:              %5d\n", s.InvalidDOP)
		}
		if s.InvalidDate > 0 {
			result += fmt.Sprintf("  Date:             %5d\n", s.InvalidDate)
		}
	}
	if s.Naks > 0 {
		result += fmt.Sprintf("NAKs:            %8d\n", s.Naks)
	}
	if s.DroppedBytes > 0 || s.DiscardedBytes > 0 || s.RxResets > 0 {
		result += fmt.Sprintf("Bytes Dropped:   %8d\n", s.DroppedBytes)
		result += fmt.Sprintf("Bytes Discarded: %8d\n", s.DiscardedBytes)
		result += fmt.Sprintf("Rx Resets:       %8d\n", s.RxResets)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
