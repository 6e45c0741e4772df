// Copyright IBM Corp. 2022, 2025
// SPDX-License-Identifier: MPL-2.0

package interval

import (
	"errors"
	"time"
)

// ErrClockUnavailable means the system clock could not be read or has not
// been set. The condition is recoverable; retry once the clock is
// synchronized.
var ErrClockUnavailable = errors.New("system clock is unavailable or not set")

// Wall-clock readings before this instant are treated as an unsynchronized
// clock. A host whose clock was never set reports a time near the epoch,
// which must not be mistaken for a real instant.
var clockValidFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

type SystemClock struct{}

var _ Clock = (*SystemClock)(nil)

func (*SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (*SystemClock) Now() time.Time {
	return time.Now()
}

func (*SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// EpochSeconds returns the Unix epoch timestamp (UTC) in seconds read from
// clock, or 0 when the clock is unset.
func EpochSeconds(clock Clock) uint64 {
	t := clock.Now()
	if t.Before(clockValidFloor) {
		return 0
	}
	return uint64(t.Unix())
}

// EpochMilliseconds returns the Unix epoch timestamp (UTC) in milliseconds
// read from clock, or 0 when the clock is unset.
func EpochMilliseconds(clock Clock) uint64 {
	t := clock.Now()
	if t.Before(clockValidFloor) {
		return 0
	}
	return uint64(t.UnixMilli())
}

// EpochMicroseconds returns the Unix epoch timestamp (UTC) in microseconds
// read from clock, or 0 when the clock is unset.
func EpochMicroseconds(clock Clock) uint64 {
	t := clock.Now()
	if t.Before(clockValidFloor) {
		return 0
	}
	return uint64(t.UnixMicro())
}
