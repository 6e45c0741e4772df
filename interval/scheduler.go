package interval

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
)

var (
	// ErrNotEvaluated means no boundary has been established yet. Call
	// Poll or Delay before asking for event timestamps.
	ErrNotEvaluated = errors.New("interval has not been evaluated yet")

	// ErrSchedulerClosed means the Scheduler was closed and can no
	// longer be used.
	ErrSchedulerClosed = errors.New("scheduler is closed")
)

// Scheduler tracks one wall-clock-synchronized interval. It converts the
// configured Spec into absolute epoch timestamps: the boundaries are the
// instants congruent to the offset modulo the period, independent of when
// the Scheduler was created. Poll asks whether a boundary has elapsed;
// Delay suspends the caller until the next one.
//
// A Scheduler is safe for shared use; evaluations are serialized
// internally.
type Scheduler struct {
	spec  Spec
	log   hclog.Logger
	clock Clock

	// mu guards the event state below.
	mu        sync.Mutex
	lastEvent uint64 // epoch milliseconds of the most recent boundary
	nextEvent uint64 // epoch milliseconds of the upcoming boundary
	evaluated bool
	closed    bool
}

func NewScheduler(config Config) (*Scheduler, error) {
	if err := config.Spec.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	log := config.Logger
	if name := config.Spec.Name; name != "" {
		log = log.Named(name)
	}

	return &Scheduler{
		spec:  config.Spec,
		log:   log,
		clock: config.Clock,
	}, nil
}

// Poll reports whether an interval boundary has elapsed since the last
// evaluation, recording the boundary timestamps when it has. The first
// successful evaluation always reports true. Within one boundary window at
// most one call reports true, so Poll can gate conditional work inside a
// faster loop.
//
// Poll never blocks. It fails with ErrClockUnavailable, leaving the event
// state untouched, when the system clock is not set.
func (s *Scheduler) Poll() (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSchedulerClosed
	}

	nowMS := EpochMilliseconds(s.clock)
	if nowMS == 0 {
		s.mu.Unlock()
		metrics.IncrCounter([]string{"clock_unavailable"}, 1)
		return false, ErrClockUnavailable
	}

	elapsed := s.advanceLocked(nowMS)
	last, next := s.lastEvent, s.nextEvent
	s.mu.Unlock()

	if elapsed {
		metrics.IncrCounter([]string{"boundaries_elapsed"}, 1)
		s.log.Trace("interval boundary elapsed", "last", last, "next", next)
	}
	return elapsed, nil
}

// advanceLocked aligns the event state to the boundary grid at nowMS and
// reports whether nowMS falls into a later boundary window than the
// recorded one. A reading exactly on a boundary belongs to that boundary's
// window. Callers hold s.mu and have checked nowMS is non-zero.
func (s *Scheduler) advanceLocked(nowMS uint64) bool {
	periodMS := s.spec.PeriodMilliseconds()
	offsetMS := s.spec.OffsetMilliseconds()

	// The largest timestamp <= nowMS congruent to the offset modulo the
	// period. A non-zero nowMS is past the clock-valid floor, which
	// exceeds any representable offset, so the subtraction cannot wrap.
	aligned := nowMS - ((nowMS - offsetMS) % periodMS)

	if s.evaluated && aligned <= s.lastEvent {
		return false
	}
	s.lastEvent = aligned
	s.nextEvent = aligned + periodMS
	s.evaluated = true
	return true
}

// Delay blocks until the next interval boundary. The first call joins the
// boundary grid and wakes at the upcoming boundary; later calls wake one
// period after the previous wake. If the next boundary is already in the
// past, Delay returns immediately and the event state still advances by
// exactly one period, so a task that overran catches up one boundary per
// call without leaving the grid.
//
// Delay returns ctx.Err() if ctx is cancelled first; the unfired boundary
// is not recorded. It fails with ErrClockUnavailable, leaving the event
// state untouched, when the system clock is not set.
func (s *Scheduler) Delay(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}

	nowMS := EpochMilliseconds(s.clock)
	if nowMS == 0 {
		s.mu.Unlock()
		metrics.IncrCounter([]string{"clock_unavailable"}, 1)
		return ErrClockUnavailable
	}

	if !s.evaluated {
		s.advanceLocked(nowMS)
	}
	wake := s.nextEvent
	periodMS := s.spec.PeriodMilliseconds()
	s.mu.Unlock()

	if wake > nowMS {
		sleep := time.Duration(wake-nowMS) * time.Millisecond
		s.log.Trace("delaying until next boundary", "wake", wake, "sleep", sleep)

		start := s.clock.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(sleep):
		}
		metrics.MeasureSince([]string{"delay_duration"}, start)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	// Another evaluation may have advanced past wake while we slept;
	// never move the state backwards.
	if wake > s.lastEvent {
		s.lastEvent = wake
		s.nextEvent = wake + periodMS
	}
	metrics.IncrCounter([]string{"boundaries_elapsed"}, 1)
	return nil
}

// LastEvent returns the epoch timestamp (UTC) in milliseconds of the most
// recent interval boundary. It fails with ErrNotEvaluated until the first
// successful Poll or Delay.
func (s *Scheduler) LastEvent() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSchedulerClosed
	}
	if !s.evaluated {
		return 0, ErrNotEvaluated
	}
	return s.lastEvent, nil
}

// NextEvent returns the epoch timestamp (UTC) in milliseconds of the
// upcoming interval boundary. It fails with ErrNotEvaluated until the
// first successful Poll or Delay.
func (s *Scheduler) NextEvent() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSchedulerClosed
	}
	if !s.evaluated {
		return 0, ErrNotEvaluated
	}
	return s.nextEvent, nil
}

// Interval returns the configured granularity and period.
func (s *Scheduler) Interval() (Granularity, uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", 0, ErrSchedulerClosed
	}
	return s.spec.Granularity, s.spec.Period, nil
}

// Close marks the Scheduler unusable. Every later operation, including
// another Close, fails with ErrSchedulerClosed. A Delay sleeping when
// Close is called is not woken early; it fails once it wakes. Cancel the
// Delay's context to wake it.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	s.closed = true
	s.log.Debug("closed")
	return nil
}
