// Package scheduler runs the service's periodic loops on a single cron instance.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

type TickFunc func(ctx context.Context) error

// Task is one periodic loop. A tick that fires while the previous one is
// still running is skipped.
type Task struct {
	Name     string
	Schedule cron.Schedule
	Tick     TickFunc

	running atomic.Bool
	skipped atomic.Int64
}

// Every runs fn at a fixed interval (rounded to whole seconds by cron).
func Every(name string, d time.Duration, fn TickFunc) *Task {
	return &Task{Name: name, Schedule: cron.Every(d), Tick: fn}
}

// Cron runs fn on a standard five-field cron expression.
func Cron(name, expr string, fn TickFunc) (*Task, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", name, err)
	}
	return &Task{Name: name, Schedule: sched, Tick: fn}, nil
}

// Run executes one tick unless another is in flight. It reports whether the tick ran.
func (t *Task) Run(ctx context.Context, log *slog.Logger) bool {
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		log.Debug("tick skipped, previous still running", "task", t.Name)
		return false
	}
	defer t.running.Store(false)

	if err := t.Tick(ctx); err != nil {
		log.Error("tick failed", "task", t.Name, "err", err)
	}
	return true
}

// Skipped counts ticks dropped by the overlap guard.
func (t *Task) Skipped() int64 { return t.skipped.Load() }

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  []*Task
}

// New builds a scheduler whose cron expressions are evaluated in UTC.
func New(log *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithLogger(NewCronLogger(log))),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Add(t *Task) {
	s.tasks = append(s.tasks, t)
	s.cron.Schedule(t.Schedule, cron.FuncJob(func() {
		t.Run(s.ctx, s.log)
	}))
}

func (s *Scheduler) Tasks() []*Task { return s.tasks }

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, t := range s.tasks {
		s.log.Info("task scheduled", "task", t.Name, "next", t.Schedule.Next(time.Now().UTC()))
	}
}

// Stop cancels in-flight ticks and waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
