package enums

import (
	"fmt"
	"time"
)

// DurationUnit qualifies a bid's promised turnaround time.
type DurationUnit string

const (
	DurationUnitHours DurationUnit = "hours"
	DurationUnitDays  DurationUnit = "days"
	DurationUnitWeeks DurationUnit = "weeks"
)

var validDurationUnits = []DurationUnit{
	DurationUnitHours,
	DurationUnitDays,
	DurationUnitWeeks,
}

// String implements fmt.Stringer.
func (d DurationUnit) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DurationUnit.
func (d DurationUnit) IsValid() bool {
	for _, candidate := range validDurationUnits {
		if candidate == d {
			return true
		}
	}
	return false
}

// Span converts n units into a time.Duration. Unrecognized units count as days.
func (d DurationUnit) Span(n int) time.Duration {
	switch d {
	case DurationUnitHours:
		return time.Duration(n) * time.Hour
	case DurationUnitWeeks:
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return time.Duration(n) * 24 * time.Hour
	}
}

// ParseDurationUnit converts raw input into a DurationUnit.
func ParseDurationUnit(value string) (DurationUnit, error) {
	for _, candidate := range validDurationUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid duration unit %q", value)
}
