package interval

import (
	"context"
	"errors"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// TaskFunc is the unit of work a Runner executes at each interval
// boundary.
type TaskFunc func(ctx context.Context) error

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Spec describes the boundaries the task runs on.
	Spec Spec

	// Task runs once per elapsed boundary. A failing task is logged and
	// the Runner carries on to the next boundary.
	Task TaskFunc

	// BackOff shapes the retry cadence while the system clock is
	// unavailable.
	BackOff BackOffConfig

	// Logger receives runner diagnostics. The Spec name is attached as
	// the logger name. Defaults to a logger that discards everything.
	Logger hclog.Logger

	// Clock provides time functions. Defaults to the system clock.
	Clock Clock
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}
	if c.Clock == nil {
		c.Clock = &SystemClock{}
	}
	c.BackOff = c.BackOff.withDefaults()
	return c
}

// Runner drives a task on a wall-clock-synchronized schedule. It owns a
// Scheduler built from the configured Spec, delays to each boundary, and
// invokes the task. While the system clock is unavailable it retries with
// exponential backoff; scheduling resumes as soon as the clock is set.
type Runner struct {
	// This is the internal context. It cancels the Runner's Run method,
	// including a Delay in progress.
	ctx       context.Context
	ctxCancel context.CancelFunc

	config RunnerConfig
	log    hclog.Logger
	clock  Clock

	scheduler *Scheduler

	firstRun    *event
	runComplete *event
	runOnce     sync.Once
}

func NewRunner(ctx context.Context, config RunnerConfig) (*Runner, error) {
	if config.Task == nil {
		return nil, errors.New("runner requires a task")
	}
	config = config.withDefaults()

	scheduler, err := NewScheduler(Config{
		Spec:   config.Spec,
		Logger: config.Logger,
		Clock:  config.Clock,
	})
	if err != nil {
		return nil, err
	}

	log := config.Logger
	if name := config.Spec.Name; name != "" {
		log = log.Named(name)
	}

	r := &Runner{
		config:      config,
		log:         log,
		clock:       config.Clock,
		scheduler:   scheduler,
		firstRun:    newEvent(),
		runComplete: newEvent(),
	}
	r.ctx, r.ctxCancel = context.WithCancel(ctx)
	return r, nil
}

// Scheduler returns the Runner's underlying Scheduler, for querying event
// timestamps.
func (r *Runner) Scheduler() *Scheduler {
	return r.scheduler
}

// Run executes the task at each interval boundary forever. Run should be
// called in a goroutine. Run can be aborted by cancelling the context
// passed to NewRunner or by calling Stop. Call WaitFirstRun after Run in
// order to wait for the first boundary to fire.
//
//	r, _ := NewRunner(ctx, ...)
//	go r.Run()
//	err := r.WaitFirstRun()
func (r *Runner) Run() {
	r.runOnce.Do(func() {
		defer r.runComplete.SetDone()
		r.run(r.config.BackOff.getPolicy())
	})
}

// WaitFirstRun blocks until the task has been invoked at its first
// boundary.
//
// Run must be called or WaitFirstRun will never return. WaitFirstRun can
// be aborted by cancelling the context passed to NewRunner or by calling
// Stop.
func (r *Runner) WaitFirstRun() error {
	return r.firstRun.Wait(r.ctx)
}

// Stop stops the Runner after Run is called. This waits for the Runner's
// Run method to return and closes the Scheduler. After calling Stop, the
// Runner and its Scheduler are no longer valid to use.
func (r *Runner) Stop() {
	r.log.Info("stopping")

	// canceling the context will abort r.run()
	r.ctxCancel()
	// r.run() sets runComplete when it returns
	<-r.runComplete.Done()

	_ = r.scheduler.Close()
}

func (r *Runner) run(bo backoff.BackOff) {
	granularity, period, _ := r.scheduler.Interval()
	r.log.Debug("runner started", "granularity", granularity, "period", period)

	for {
		err := r.scheduler.Delay(r.ctx)
		if err == nil {
			metrics.SetGauge([]string{"clock_synchronized"}, 1)
			bo.Reset()
			r.runTask()
			continue
		}
		if !errors.Is(err, ErrClockUnavailable) {
			// Cancellation, or the Scheduler was closed under us.
			logNonContextError(r.log, "stopping", err)
			return
		}

		metrics.SetGauge([]string{"clock_synchronized"}, 0)
		r.log.Warn("system clock is not set; waiting to retry")

		// Retry with backoff.
		duration := bo.NextBackOff()
		if duration == backoff.Stop {
			// We should not hit this since we set MaxElapsedTime = 0.
			r.log.Warn("backoff stopped; aborting")
			return
		}

		r.log.Debug("backoff", "retry after", duration)
		select {
		case <-r.ctx.Done():
			r.log.Debug("aborting", "error", r.ctx.Err())
			return
		case <-r.clock.After(duration):
		}
	}
}

// runTask invokes the configured task once. Task errors are logged; the
// Runner carries on to the next boundary regardless.
func (r *Runner) runTask() {
	start := r.clock.Now()
	err := r.config.Task(r.ctx)
	metrics.MeasureSince([]string{"task_duration"}, start)
	if err != nil {
		logNonContextError(r.log, "task failed", err)
	}
	r.firstRun.SetDone()
}

func logNonContextError(log hclog.Logger, msg string, err error, args ...interface{}) {
	args = append(args, "error", err)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Trace("context error: "+msg, args...)
	} else {
		log.Error(msg, args...)
	}
}
