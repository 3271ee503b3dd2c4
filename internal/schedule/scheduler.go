// Package schedule runs configured discovery and scrape jobs on cron specs.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/config"
)

// Runner executes one job to completion.
type Runner interface {
	RunJob(ctx context.Context, job config.JobConfig) error
}

// Entry describes a registered job and its next activation.
type Entry struct {
	Job  config.JobConfig
	Next time.Time
}

// Scheduler triggers jobs on their cron specs. A job still running when its next
// activation arrives is skipped, and jobs on the same source never overlap.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *zap.Logger

	ids map[cron.EntryID]config.JobConfig

	mu    sync.Mutex
	ctx   context.Context
	locks map[string]*sync.Mutex
}

// New registers jobs with a cron instance in loc (nil means local time).
func New(runner Runner, jobs []config.JobConfig, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("schedule runner is required")
	}
	if len(jobs) == 0 {
		return nil, errors.New("no scheduled jobs configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		ids:    make(map[cron.EntryID]config.JobConfig, len(jobs)),
		ctx:    context.Background(),
		locks:  make(map[string]*sync.Mutex),
	}
	for i, job := range jobs {
		if job.Name == "" {
			job.Name = fmt.Sprintf("%s-%s-%d", job.Source, job.Action, i)
		}
		id, err := s.cron.AddFunc(job.Spec, func() { s.trigger(job) })
		if err != nil {
			return nil, fmt.Errorf("job %s: parse spec %q: %w", job.Name, job.Spec, err)
		}
		s.ids[id] = job
	}
	return s, nil
}

// Entries lists the registered jobs in activation order.
func (s *Scheduler) Entries() []Entry {
	entries := s.cron.Entries()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Job: s.ids[e.ID], Next: e.Next})
	}
	return out
}

// Run starts the scheduler and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	for _, e := range s.Entries() {
		s.logger.Info("job scheduled",
			zap.String("job", e.Job.Name),
			zap.String("spec", e.Job.Spec),
			zap.Time("next", e.Next),
		)
	}
	<-ctx.Done()
	s.logger.Info("scheduler stopping; waiting for running jobs")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) trigger(job config.JobConfig) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.runJob(ctx, job)
}

func (s *Scheduler) runJob(ctx context.Context, job config.JobConfig) {
	logger := s.logger.With(zap.String("job", job.Name), zap.String("source", job.Source))
	if ctx.Err() != nil {
		return
	}
	lock := s.sourceLock(job.Source)
	if !lock.TryLock() {
		logger.Warn("another job for this source is still running; skipping")
		return
	}
	defer lock.Unlock()

	start := time.Now()
	logger.Info("job started", zap.String("action", job.Action))
	if err := s.runner.RunJob(ctx, job); err != nil {
		logger.Error("job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	logger.Info("job finished", zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) sourceLock(source string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[source]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[source] = lock
	}
	return lock
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
