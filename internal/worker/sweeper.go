// Package worker runs the periodic maintenance jobs: OTP cleanup, crypto
// charge expiry and fee reminders.
package worker

import (
	"context"
	"sync"
	"time"

	"loan-settlement-engine/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Job is one periodic task. Run errors are logged and counted; the job keeps its schedule.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Counted adapts a sweep that reports how many rows it touched.
func Counted(log *zap.Logger, name string, fn func(ctx context.Context) (int, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := fn(ctx)
		if n > 0 {
			log.Info("sweep processed rows", zap.String("job", name), zap.Int("rows", n))
		}
		return err
	}
}

type Sweeper struct {
	jobs    []Job
	metrics *metrics.Recorder
	log     *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewSweeper(rec *metrics.Recorder, log *zap.Logger, jobs ...Job) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{jobs: jobs, metrics: rec, log: log.Named("worker")}
}

// Start launches one goroutine per job. Jobs with a non-positive interval are skipped.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Run == nil {
			s.log.Info("job disabled", zap.String("job", j.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Stop cancels every job and waits for in-flight runs to return.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context, j Job) {
	defer s.wg.Done()
	s.log.Info("job started", zap.String("job", j.Name), zap.Duration("interval", j.Interval))

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx, j)
		case <-ctx.Done():
			s.log.Info("job stopped", zap.String("job", j.Name))
			return
		}
	}
}

// RunOnce executes j a single time, recovering from panics so one bad run cannot kill the loop.
func (s *Sweeper) RunOnce(ctx context.Context, j Job) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", zap.String("job", j.Name), zap.Any("panic", r))
			s.metrics.Sweep(j.Name, errPanic)
			return
		}
		s.metrics.Sweep(j.Name, err)
	}()
	err = j.Run(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Warn("job failed", zap.String("job", j.Name), zap.Error(err))
	}
}

var errPanic = panicError{}

type panicError struct{}

func (panicError) Error() string { return "job panicked" }
