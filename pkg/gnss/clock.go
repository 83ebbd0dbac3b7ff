// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
)

const halfDay = 12 * 60 * 60 * 1000

// FixClock turns the time-of-day carried by position sentences into full
// UTC timestamps. A ZDA sentence sets the current date; later fixes whose
// time of day jumps back by more than twelve hours are taken to belong to
// the following day.
//
// Frames must be fed in arrival order.
type FixClock struct {
	midnight time.Time
	lastMs   uint32
	valid    bool
}

// Observe updates the clock from s and returns the UTC time it describes,
// if any.
func (c *FixClock) Observe(s nmea.Sentence) (time.Time, bool) {
	switch v := s.(type) {
	case *nmea.ZDA:
		c.midnight = v.Midnight()
		c.lastMs = v.MillisSinceMidnight()
		c.valid = true
		return v.Time(), true
	case *nmea.GLL:
		if v.HasTime {
			return c.fix(v.Time)
		}
	case *nmea.GNS:
		if v.HasTime {
			return c.fix(v.Time)
		}
	}
	return time.Time{}, false
}

func (c *FixClock) fix(t nmea.UTCTime) (time.Time, bool) {
	if !c.valid {
		return time.Time{}, false
	}
	ms := t.MillisSinceMidnight()
	if ms+halfDay < c.lastMs {
		c.midnight = c.midnight.AddDate(0, 0, 1)
	}
	c.lastMs = ms
	return c.midnight.Add(t.Duration()), true
}

// Midnight returns the start of the current UTC day, or the zero time
// before the first ZDA.
func (c *FixClock) Midnight() time.Time {
	return c.midnight
}
