// Copyright IBM Corp. 2022, 2025
// SPDX-License-Identifier: MPL-2.0

package interval

import "errors"

// Granularity is the unit of an interval period and offset.
type Granularity string

const (
	GranularitySeconds Granularity = "second"
	GranularityMinutes Granularity = "minute"
	GranularityHours   Granularity = "hour"
)

// MaxNameLength is the longest allowed Spec name.
const MaxNameLength = 25

var (
	ErrInvalidGranularity = errors.New("granularity must be one of second, minute or hour")
	ErrInvalidPeriod      = errors.New("interval period must be greater than zero")
	ErrInvalidOffset      = errors.New("interval offset must be less than the interval period")
	ErrNameTooLong        = errors.New("name must be at most 25 characters")
)

func (g Granularity) valid() bool {
	switch g {
	case GranularitySeconds, GranularityMinutes, GranularityHours:
		return true
	}
	return false
}

// Spec describes a repeating interval synchronized to the wall clock: every
// Period units of Granularity, shifted into the period by Offset units. A
// 5-minute period with a 1-minute offset describes the instants 12:01,
// 12:06, 12:11, and so on.
type Spec struct {
	// Name identifies the interval in logs and in spec files. Maximum of
	// 25 characters.
	Name string `json:"name"`

	// Granularity is the unit for Period and Offset.
	Granularity Granularity `json:"granularity"`

	// Period is the non-zero length of the repeating interval.
	Period uint16 `json:"period"`

	// Offset shifts the start of each interval. It must be less than
	// Period.
	Offset uint16 `json:"offset"`
}

// NewSpec returns a validated Spec.
func NewSpec(name string, granularity Granularity, period, offset uint16) (Spec, error) {
	s := Spec{
		Name:        name,
		Granularity: granularity,
		Period:      period,
		Offset:      offset,
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate checks the Spec invariants. Specs built by NewSpec are already
// valid; call this for specs decoded from a file or assembled by hand.
func (s Spec) Validate() error {
	if !s.Granularity.valid() {
		return ErrInvalidGranularity
	}
	if s.Period == 0 {
		return ErrInvalidPeriod
	}
	if s.Offset >= s.Period {
		return ErrInvalidOffset
	}
	if len(s.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// PeriodSeconds returns the period normalized to seconds.
func (s Spec) PeriodSeconds() uint64 {
	return NormalizeSeconds(s.Granularity, s.Period)
}

// PeriodMilliseconds returns the period normalized to milliseconds.
func (s Spec) PeriodMilliseconds() uint64 {
	return NormalizeMilliseconds(s.Granularity, s.Period)
}

// OffsetSeconds returns the offset normalized to seconds.
func (s Spec) OffsetSeconds() uint64 {
	return NormalizeSeconds(s.Granularity, s.Offset)
}

// OffsetMilliseconds returns the offset normalized to milliseconds.
func (s Spec) OffsetMilliseconds() uint64 {
	return NormalizeMilliseconds(s.Granularity, s.Offset)
}

// NormalizeSeconds normalizes an interval period or offset to seconds.
// Unknown granularities normalize as seconds; validated Specs never carry
// one.
func NormalizeSeconds(granularity Granularity, interval uint16) uint64 {
	switch granularity {
	case GranularityMinutes:
		return uint64(interval) * 60
	case GranularityHours:
		return uint64(interval) * 3600
	default:
		return uint64(interval)
	}
}

// NormalizeMilliseconds normalizes an interval period or offset to
// milliseconds.
func NormalizeMilliseconds(granularity Granularity, interval uint16) uint64 {
	return NormalizeSeconds(granularity, interval) * 1000
}
